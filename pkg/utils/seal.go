package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// Sealer encrypts short secrets with NaCl secretbox under a fixed 32-byte key.
// Sealed values are base64(nonce || box).
type Sealer struct {
	key [32]byte
}

// NewSealerFromHex builds a sealer from a 64 character hex key.
func NewSealerFromHex(keyHex string) (*Sealer, error) {
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(raw))
	}
	s := &Sealer{}
	copy(s.key[:], raw)
	return s, nil
}

// Seal encrypts plaintext. The empty string seals to the empty string.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", errors.New("sealed value too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", errors.New("sealed value failed authentication")
	}
	return string(plain), nil
}
