package keypair

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youmark/pkcs8"
)

func writeKeyFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}
	return path
}

func generateRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return key
}

func TestLoadDERKey(t *testing.T) {
	key := generateRSAKey(t)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	path := writeKeyFile(t, "rsa_key.p8", der)
	loaded, err := Load(path, "")
	require.NoError(t, err)
	assert.True(t, key.Equal(loaded))
}

func TestLoadPEMKey(t *testing.T) {
	key := generateRSAKey(t)

	tests := []struct {
		name      string
		blockType string
		bytes     func() []byte
	}{
		{
			name:      "pkcs8",
			blockType: "PRIVATE KEY",
			bytes: func() []byte {
				der, err := x509.MarshalPKCS8PrivateKey(key)
				require.NoError(t, err)
				return der
			},
		},
		{
			name:      "pkcs1",
			blockType: "RSA PRIVATE KEY",
			bytes: func() []byte {
				return x509.MarshalPKCS1PrivateKey(key)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := pem.EncodeToMemory(&pem.Block{Type: tt.blockType, Bytes: tt.bytes()})
			path := writeKeyFile(t, "rsa_key.pem", data)

			loaded, err := Load(path, "")
			require.NoError(t, err)
			assert.True(t, key.Equal(loaded))
		})
	}
}

func TestLoadEncryptedKey(t *testing.T) {
	key := generateRSAKey(t)
	der, err := pkcs8.MarshalPrivateKey(key, []byte("hunter2"), nil)
	require.NoError(t, err)

	t.Run("der with passphrase", func(t *testing.T) {
		path := writeKeyFile(t, "rsa_key.p8", der)
		loaded, err := Load(path, "hunter2")
		require.NoError(t, err)
		assert.True(t, key.Equal(loaded))
	})

	t.Run("pem with passphrase", func(t *testing.T) {
		data := pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der})
		path := writeKeyFile(t, "rsa_key.pem", data)
		loaded, err := Load(path, "hunter2")
		require.NoError(t, err)
		assert.True(t, key.Equal(loaded))
	})

	t.Run("missing passphrase", func(t *testing.T) {
		path := writeKeyFile(t, "rsa_key.p8", der)
		_, err := Load(path, "")
		assert.ErrorIs(t, err, ErrPassphraseRequired)
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		path := writeKeyFile(t, "rsa_key.p8", der)
		_, err := Load(path, "wrong")
		assert.ErrorIs(t, err, ErrWrongPassphrase)
	})

	t.Run("pem missing passphrase", func(t *testing.T) {
		data := pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der})
		path := writeKeyFile(t, "rsa_key.pem", data)
		_, err := Load(path, "")
		assert.ErrorIs(t, err, ErrPassphraseRequired)
	})
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.p8"), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadGarbage(t *testing.T) {
	path := writeKeyFile(t, "garbage.p8", []byte("this is not a key"))
	_, err := Load(path, "")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	// A passphrase failure must never be reported for malformed input.
	assert.NotErrorIs(t, err, ErrPassphraseRequired)
	assert.NotErrorIs(t, err, ErrWrongPassphrase)
}

func TestLoadRejectsNonRSA(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(ecKey)
	require.NoError(t, err)

	path := writeKeyFile(t, "ec_key.p8", der)
	_, err = Load(path, "")
	assert.Error(t, err)
}
