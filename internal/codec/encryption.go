package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/waloy/waloy/internal/domain"
)

// encryptionMagic marks an object as AES-256-GCM encrypted. It is followed
// by a 16-byte Argon2id salt and a 12-byte GCM nonce, then ciphertext+tag.
var encryptionMagic = []byte("WALOY-ENC\x00")

const (
	saltLen  = 16
	nonceLen = 12

	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
)

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
}

func encrypt(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("codec: generate salt: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("codec: generate nonce: %w", err)
	}

	gcm, err := newGCM(deriveKey(passphrase, salt))
	if err != nil {
		return nil, &domain.CryptoError{Err: err}
	}

	out := make([]byte, 0, len(encryptionMagic)+saltLen+nonceLen+len(plaintext)+gcm.Overhead())
	out = append(out, encryptionMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, nil)
	return out, nil
}

// decryptIfEncrypted inverts encrypt if data carries the encryption magic;
// otherwise it returns data unchanged (unencrypted objects are legal).
func decryptIfEncrypted(passphrase string, data []byte) ([]byte, error) {
	if !hasPrefix(data, encryptionMagic) {
		return data, nil
	}
	if passphrase == "" {
		return nil, &domain.CryptoError{Err: fmt.Errorf("codec: object is encrypted but no encryption_key configured")}
	}

	rest := data[len(encryptionMagic):]
	if len(rest) < saltLen+nonceLen {
		return nil, &domain.CorruptionError{What: "encryption header", Err: fmt.Errorf("codec: truncated header")}
	}
	salt := rest[:saltLen]
	nonce := rest[saltLen : saltLen+nonceLen]
	ciphertext := rest[saltLen+nonceLen:]

	gcm, err := newGCM(deriveKey(passphrase, salt))
	if err != nil {
		return nil, &domain.CryptoError{Err: err}
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, &domain.CryptoError{Err: fmt.Errorf("codec: decrypt: %w", err)}
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
