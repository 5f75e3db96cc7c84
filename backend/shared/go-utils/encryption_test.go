package utils

import (
	"bytes"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestAESGCMRoundTrip(t *testing.T) {
	ciphertext, err := Encrypt(testKey(), "1234")
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "1234")

	decrypted, err := Decrypt(testKey(), ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "1234", decrypted)
}

func TestAESGCMNonceIsRandom(t *testing.T) {
	a, err := Encrypt(testKey(), "same")
	require.NoError(t, err)
	b, err := Encrypt(testKey(), "same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAESGCMInvalidKey(t *testing.T) {
	_, err := Encrypt([]byte("not-32-bytes"), "some text")
	assert.ErrorIs(t, err, ErrBadEncryptionKey)

	_, err = Decrypt([]byte("not-32-bytes"), "some ciphertext")
	assert.ErrorIs(t, err, ErrBadEncryptionKey)
}

func TestAESGCMTamperedCiphertext(t *testing.T) {
	ciphertext, err := Encrypt(testKey(), "secret")
	require.NoError(t, err)

	other := testKey()
	other[0] = 0xff
	_, err = Decrypt(other, ciphertext)
	assert.Error(t, err)
}

func TestOpenSSLSaltedRoundTrip(t *testing.T) {
	passphrase := []byte("mysecretpass")
	plaintext := "id,status\n1,approved\n"

	ciphertext, err := EncryptOpenSSLSalted(passphrase, plaintext)
	require.NoError(t, err)

	decrypted, err := DecryptOpenSSLSalted(passphrase, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestOpenSSLSaltedEmptyPassphrase(t *testing.T) {
	_, err := EncryptOpenSSLSalted(nil, "some text")
	assert.Error(t, err)

	_, err = DecryptOpenSSLSalted(nil, "some ciphertext")
	assert.Error(t, err)
}

func TestOpenSSLSaltedCorruption(t *testing.T) {
	ciphertext, err := EncryptOpenSSLSalted([]byte("testing"), "Some data")
	require.NoError(t, err)

	_, err = DecryptOpenSSLSalted([]byte("testing"), ciphertext[:len(ciphertext)-4])
	assert.Error(t, err)
}

// TestOpenSSLInterop checks that exports decrypt with the openssl CLI.
func TestOpenSSLInterop(t *testing.T) {
	if _, err := exec.LookPath("openssl"); err != nil {
		t.Skip("openssl CLI not found in PATH")
	}

	passphrase := "mysecretpass"
	plaintext := "Hello from Go -> OpenSSL interop!"

	myCipher, err := EncryptOpenSSLSalted([]byte(passphrase), plaintext)
	require.NoError(t, err)

	cmdDec := exec.Command("openssl", "enc", "-d", "-aes-256-cbc", "-salt", "-pbkdf2",
		"-iter", "10000", "-md", "sha256", "-base64", "-A", "-pass", "pass:"+passphrase)
	cmdDec.Stdin = strings.NewReader(myCipher + "\n")

	var outDec, errDec bytes.Buffer
	cmdDec.Stdout = &outDec
	cmdDec.Stderr = &errDec
	if err := cmdDec.Run(); err != nil {
		if strings.Contains(errDec.String(), "unknown option") {
			t.Skipf("openssl lacks -pbkdf2: %s", errDec.String())
		}
		t.Fatalf("openssl decryption failed: %v\n%s", err, errDec.String())
	}
	assert.Equal(t, plaintext, outDec.String())
}
