package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/scrypt"
)

const sealVersion = 1

var (
	// ErrPassphraseRequired is returned when a sealed file is read without a passphrase
	ErrPassphraseRequired = errors.New("sealed credentials require a passphrase")
	// ErrTampered is returned when the integrity hash does not match the payload
	ErrTampered = errors.New("sealed credentials failed integrity verification")
)

// KDFParams are the scrypt cost parameters
type KDFParams struct {
	N      int `json:"n"`
	R      int `json:"r"`
	P      int `json:"p"`
	KeyLen int `json:"key_len"`
}

// DefaultKDFParams returns the OWASP recommended scrypt minimums for AES-256
func DefaultKDFParams() KDFParams {
	return KDFParams{N: 32768, R: 8, P: 1, KeyLen: 32}
}

// Validate rejects parameters weaker than the defaults
func (p KDFParams) Validate() error {
	switch {
	case p.N < 32768 || p.N&(p.N-1) != 0:
		return errors.New("scrypt N must be a power of two of at least 32768")
	case p.R < 8:
		return errors.New("scrypt r must be at least 8")
	case p.P < 1:
		return errors.New("scrypt p must be at least 1")
	case p.KeyLen != 32:
		return errors.New("key length must be 32 for AES-256")
	}
	return nil
}

// SealedCredentials is the on-disk form of encrypted credentials
type SealedCredentials struct {
	Version    uint8     `json:"version"`
	KDF        KDFParams `json:"kdf"`
	Salt       []byte    `json:"salt"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
	Integrity  []byte    `json:"integrity"`
}

// Seal encrypts plaintext under passphrase
func Seal(plaintext, passphrase []byte, params KDFParams) (*SealedCredentials, error) {
	if len(plaintext) == 0 {
		return nil, errors.New("plaintext cannot be empty")
	}
	if len(passphrase) < 16 {
		return nil, errors.New("passphrase must be at least 16 bytes")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt, params)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	return &SealedCredentials{
		Version:    sealVersion,
		KDF:        params,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		Integrity:  integrityHash(ciphertext, salt, nonce),
	}, nil
}

// Open decrypts sealed credentials. The caller should Wipe the result once
// the credentials have been handed to the client library.
func Open(sealed *SealedCredentials, passphrase []byte) ([]byte, error) {
	if sealed == nil {
		return nil, errors.New("sealed credentials cannot be nil")
	}
	if sealed.Version != sealVersion {
		return nil, fmt.Errorf("unsupported sealed credentials version %d", sealed.Version)
	}
	if len(passphrase) == 0 {
		return nil, ErrPassphraseRequired
	}
	if err := sealed.KDF.Validate(); err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(sealed.Integrity, integrityHash(sealed.Ciphertext, sealed.Salt, sealed.Nonce)) != 1 {
		return nil, ErrTampered
	}

	gcm, err := newGCM(passphrase, sealed.Salt, sealed.KDF)
	if err != nil {
		return nil, err
	}
	if len(sealed.Nonce) != gcm.NonceSize() {
		return nil, ErrTampered
	}

	plaintext, err := gcm.Open(nil, sealed.Nonce, sealed.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt credentials: %w", err)
	}
	return plaintext, nil
}

// LoadCredentials reads a credentials file, opening it when it is sealed.
// A plain service account key is returned unchanged.
func LoadCredentials(path string, passphrase []byte) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	sealed, ok := parseSealed(data)
	if !ok {
		return data, nil
	}
	return Open(sealed, passphrase)
}

// WriteSealed writes sealed credentials to path with owner-only permissions
func WriteSealed(path string, sealed *SealedCredentials) error {
	data, err := json.MarshalIndent(sealed, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Wipe zeroes b in place
func Wipe(b []byte) {
	clear(b)
}

func parseSealed(data []byte) (*SealedCredentials, bool) {
	var envelope struct {
		Version    uint8  `json:"version"`
		Ciphertext []byte `json:"ciphertext"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Version == 0 || len(envelope.Ciphertext) == 0 {
		return nil, false
	}

	var sealed SealedCredentials
	if err := json.Unmarshal(data, &sealed); err != nil {
		return nil, false
	}
	return &sealed, true
}

func newGCM(passphrase, salt []byte, params KDFParams) (cipher.AEAD, error) {
	key, err := scrypt.Key(passphrase, salt, params.N, params.R, params.P, params.KeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer Wipe(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

func integrityHash(ciphertext, salt, nonce []byte) []byte {
	h := sha256.New()
	h.Write([]byte("FIELDREPORT-SEALED-V1"))
	h.Write(ciphertext)
	h.Write(salt)
	h.Write(nonce)
	return h.Sum(nil)
}
