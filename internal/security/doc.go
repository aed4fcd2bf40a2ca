// Package security seals and opens the service account credentials used by
// the Google Drive share sink.
//
// A sealed file is a JSON SealedCredentials document: AES-256-GCM ciphertext
// under a key derived from a passphrase with scrypt. LoadCredentials accepts
// either a sealed file or a plain service account key, so deployments can move
// to sealed credentials without a flag day.
package security
