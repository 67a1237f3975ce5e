// Package signature verifies the downloaded patch archive against a
// detached GPG signature. Verification is opt-in: it runs only when the
// index publishes a signature URL and the user supplies a keyring.
package signature

import (
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Verifier checks detached signatures against a trusted keyring.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier loads the keyring at keyringPath, accepting both armored
// and binary key files.
func NewVerifier(keyringPath string) (*Verifier, error) {
	keyringFile, err := os.Open(keyringPath)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer keyringFile.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(keyringFile)
	if err != nil {
		keyringFile.Seek(0, io.SeekStart)
		keyring, err = openpgp.ReadKeyRing(keyringFile)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}
	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring %s contains no keys", keyringPath)
	}

	return &Verifier{keyring: keyring}, nil
}

// VerifyFile checks that signaturePath is a valid detached signature
// over archivePath by a key in the keyring. Armored signatures are
// tried first, then binary.
func (v *Verifier) VerifyFile(archivePath, signaturePath string) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	sigFile, err := os.Open(signaturePath)
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sigFile.Close()

	_, err = openpgp.CheckArmoredDetachedSignature(v.keyring, archiveFile, sigFile, nil)
	if err != nil {
		archiveFile.Seek(0, io.SeekStart)
		sigFile.Seek(0, io.SeekStart)
		_, err = openpgp.CheckDetachedSignature(v.keyring, archiveFile, sigFile, nil)
	}
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}
	return nil
}
