// Command sealcreds encrypts a Google service account key for the Drive
// share sink. The passphrase is read from FIELDREPORT_SHARE_DRIVE_CREDENTIALS_KEY,
// the same variable the server uses to open the file.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"fieldreport/internal/config"
	"fieldreport/internal/security"
)

const passphraseEnv = config.EnvPrefix + "_SHARE_DRIVE_CREDENTIALS_KEY"

func main() {
	if err := run(os.Args[1:], os.Getenv(passphraseEnv), os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("Sealing failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(args []string, passphrase string, output io.Writer) error {
	fs := flag.NewFlagSet("sealcreds", flag.ContinueOnError)
	fs.SetOutput(output)
	in := fs.String("in", "", "plain service account key (JSON)")
	out := fs.String("out", "", "sealed output file (defaults to <in>.sealed)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}
	if passphrase == "" {
		return fmt.Errorf("%s is not set", passphraseEnv)
	}
	if *out == "" {
		*out = *in + ".sealed"
	}

	plaintext, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	defer security.Wipe(plaintext)
	if !json.Valid(plaintext) {
		return fmt.Errorf("%s is not a JSON key file", *in)
	}

	sealed, err := security.Seal(plaintext, []byte(passphrase), security.DefaultKDFParams())
	if err != nil {
		return err
	}
	if err := security.WriteSealed(*out, sealed); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}

	fmt.Fprintf(output, "sealed credentials written to %s\n", *out)
	return nil
}
