// Package keypair loads the RSA private key used for Snowflake key-pair
// authentication. Keys may be DER or PEM encoded, PKCS#8 or PKCS#1, and
// optionally protected by a passphrase.
package keypair

import (
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/youmark/pkcs8"
)

var (
	// ErrNotFound indicates the key file does not exist.
	ErrNotFound = errors.New("private key file not found")
	// ErrPassphraseRequired indicates the key is encrypted but no passphrase was provided.
	ErrPassphraseRequired = errors.New("private key requires a passphrase but none was provided")
	// ErrWrongPassphrase indicates decryption with the provided passphrase failed.
	ErrWrongPassphrase = errors.New("private key passphrase is incorrect")
	// ErrInvalidFormat indicates the file is not a recognizable DER or PEM private key.
	ErrInvalidFormat = errors.New("invalid private key format")
)

// Load reads and decodes the private key at path. DER decoding is attempted
// first, then PEM, matching the .p8 files produced by the Snowflake key-pair
// setup instructions.
func Load(path, passphrase string) (*rsa.PrivateKey, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat key file %s: %w", path, err)
	}
	log.Printf("Key file found: %s (%d bytes)", path, info.Size())

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file %s: %w", path, err)
	}

	key, derErr := parseDER(data, passphrase)
	if derErr == nil {
		return key, nil
	}
	// Passphrase problems and decoded-but-unusable keys are definitive; do
	// not mask them with a PEM retry.
	if errors.Is(derErr, ErrPassphraseRequired) || errors.Is(derErr, ErrWrongPassphrase) ||
		errors.Is(derErr, ErrInvalidFormat) {
		return nil, derErr
	}

	key, pemErr := parsePEM(data, passphrase)
	if pemErr == nil {
		return key, nil
	}
	if errors.Is(pemErr, ErrPassphraseRequired) || errors.Is(pemErr, ErrWrongPassphrase) {
		return nil, pemErr
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, pemErr)
}

// parseDER decodes a raw DER-encoded PKCS#8 key, encrypted or not.
func parseDER(data []byte, passphrase string) (*rsa.PrivateKey, error) {
	if isEncryptedPKCS8(data) {
		if passphrase == "" {
			return nil, ErrPassphraseRequired
		}
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(data, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWrongPassphrase, err)
		}
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("not a DER-encoded PKCS#8 key: %w", err)
	}
	return asRSA(parsed)
}

// parsePEM decodes a PEM-armored key of any of the common block types.
func parsePEM(data []byte, passphrase string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	switch block.Type {
	case "ENCRYPTED PRIVATE KEY":
		if passphrase == "" {
			return nil, ErrPassphraseRequired
		}
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWrongPassphrase, err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#8 PEM block: %w", err)
		}
		return asRSA(parsed)
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#1 PEM block: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}
}

// encryptedPrivateKeyInfo matches the ASN.1 structure of RFC 5958
// EncryptedPrivateKeyInfo. A plain PrivateKeyInfo has three fields and will
// not unmarshal into it, which is what distinguishes the two.
type encryptedPrivateKeyInfo struct {
	Algo          pkix.AlgorithmIdentifier
	EncryptedData []byte
}

func isEncryptedPKCS8(der []byte) bool {
	var epki encryptedPrivateKeyInfo
	rest, err := asn1.Unmarshal(der, &epki)
	return err == nil && len(rest) == 0 && len(epki.EncryptedData) > 0
}

func asRSA(key any) (*rsa.PrivateKey, error) {
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported key type %T, Snowflake key-pair authentication requires an RSA key", ErrInvalidFormat, key)
	}
	return rsaKey, nil
}
