package config

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

// SealedPrefix marks a sealed secret.
const SealedPrefix = "sealed:v1:"

const (
	nonceSize = 24
	keySize   = 32
	keyInfo   = "ddldiff:connection-secret:v1"
)

// ErrNoSecretKey is returned when a sealed secret is used without a secret key.
var ErrNoSecretKey = errors.New("no secret key configured (set DDLDIFF_SECRET_KEY or secret_key)")

// IsSealed reports whether value is a sealed secret.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}

// SealSecret encrypts plaintext with a key derived from masterKey and returns
// "sealed:v1:<base64(nonce|box)>".
func SealSecret(plaintext, masterKey string) (string, error) {
	key, err := deriveKey(masterKey)
	if err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, key)
	return SealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

// OpenSecret reverses SealSecret. Values without the sealed prefix are returned
// unchanged.
func OpenSecret(value, masterKey string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	key, err := deriveKey(masterKey)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decoding sealed secret: %w", err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", errors.New("sealed secret is truncated")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plaintext, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, key)
	if !ok {
		return "", errors.New("sealed secret cannot be opened with the configured key")
	}
	return string(plaintext), nil
}

func deriveKey(masterKey string) (*[keySize]byte, error) {
	if masterKey == "" {
		return nil, ErrNoSecretKey
	}
	var key [keySize]byte
	r := hkdf.New(sha256.New, []byte(masterKey), nil, []byte(keyInfo))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return nil, fmt.Errorf("deriving secret key: %w", err)
	}
	return &key, nil
}
