package utils

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	opensslMagic      = "Salted__"
	opensslSaltLen    = 8
	opensslIterations = 10000
)

var ErrBadEncryptionKey = errors.New("encryption key must be 32 bytes for AES-256")

// Encrypt seals text with AES-256-GCM and returns base64url([nonce || ciphertext || tag]).
// Used for column-level encryption of sensitive applicant data.
func Encrypt(encryptionKey []byte, text string) (string, error) {
	gcm, err := newGCM(encryptionKey)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(text), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func Decrypt(encryptionKey []byte, encoded string) (string, error) {
	gcm, err := newGCM(encryptionKey)
	if err != nil {
		return "", err
	}

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", errors.New("malformed ciphertext (too short for nonce)")
	}

	plaintext, err := gcm.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, ErrBadEncryptionKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptOpenSSLSalted produces standard base64 of "Salted__" + salt + AES-256-CBC
// ciphertext, with key and IV from PBKDF2-SHA256. Exports written this way open with
//
//	openssl enc -aes-256-cbc -d -salt -pbkdf2 -base64 -A -pass pass:"$PASSPHRASE"
func EncryptOpenSSLSalted(passphrase []byte, text string) (string, error) {
	if len(passphrase) == 0 {
		return "", errors.New("passphrase cannot be empty")
	}

	salt := make([]byte, opensslSaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	key, iv := opensslDerive(passphrase, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	plaintext := pkcs7Pad([]byte(text), block.BlockSize())
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)

	out := make([]byte, 0, len(opensslMagic)+len(salt)+len(ciphertext))
	out = append(out, opensslMagic...)
	out = append(out, salt...)
	out = append(out, ciphertext...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptOpenSSLSalted reverses EncryptOpenSSLSalted (and `openssl enc -pbkdf2 -salt`).
func DecryptOpenSSLSalted(passphrase []byte, b64Cipher string) (string, error) {
	if len(passphrase) == 0 {
		return "", errors.New("passphrase cannot be empty")
	}
	if b64Cipher == "" {
		return "", errors.New("ciphertext cannot be empty")
	}

	raw, err := base64.StdEncoding.DecodeString(b64Cipher)
	if err != nil {
		return "", err
	}
	headerLen := len(opensslMagic) + opensslSaltLen
	if len(raw) < headerLen || string(raw[:len(opensslMagic)]) != opensslMagic {
		return "", errors.New("data does not begin with 'Salted__' header and salt")
	}
	ciphertext := raw[headerLen:]
	if len(ciphertext) == 0 {
		return "", errors.New("no ciphertext data")
	}

	key, iv := opensslDerive(passphrase, raw[len(opensslMagic):headerLen])
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	if len(ciphertext)%block.BlockSize() != 0 {
		return "", errors.New("ciphertext not multiple of block size")
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	unpadded, err := pkcs7Unpad(plaintext, block.BlockSize())
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func opensslDerive(passphrase, salt []byte) (key, iv []byte) {
	derived := pbkdf2.Key(passphrase, salt, opensslIterations, 48, sha256.New)
	return derived[:32], derived[32:]
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("invalid padding size")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errors.New("invalid padding size")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
