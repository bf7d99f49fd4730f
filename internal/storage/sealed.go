package storage

import (
	"context"
	"crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

var ErrSealed = errors.New("storage: sealed value cannot be opened with this key")

const (
	saltSize  = 16
	nonceSize = 24
)

// scrypt cost parameters for the box key.
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// Sealed encrypts the values of the listed keys with NaCl secretbox before
// handing them to the inner store. Other keys pass through unchanged.
// A sealed value is laid out as salt | nonce | box.
type Sealed struct {
	inner      Store
	passphrase []byte
	keys       map[string]bool
}

// NewSealed seals the listed keys with a box key derived from passphrase
// through scrypt, using a fresh salt per value.
func NewSealed(inner Store, passphrase string, keys ...string) *Sealed {
	s := &Sealed{inner: inner, passphrase: []byte(passphrase), keys: make(map[string]bool)}
	for _, k := range keys {
		s.keys[k] = true
	}
	return s
}

func (s *Sealed) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.inner.Get(ctx, key)
	if err != nil || !s.keys[key] {
		return data, err
	}
	if len(data) < saltSize+nonceSize+secretbox.Overhead {
		return nil, ErrSealed
	}
	boxKey, err := s.boxKey(data[:saltSize])
	if err != nil {
		return nil, err
	}
	var nonce [nonceSize]byte
	copy(nonce[:], data[saltSize:saltSize+nonceSize])
	out, ok := secretbox.Open(nil, data[saltSize+nonceSize:], &nonce, boxKey)
	if !ok {
		return nil, ErrSealed
	}
	return out, nil
}

func (s *Sealed) Set(ctx context.Context, key string, value []byte) error {
	if !s.keys[key] {
		return s.inner.Set(ctx, key, value)
	}
	header := make([]byte, saltSize+nonceSize)
	if _, err := io.ReadFull(rand.Reader, header); err != nil {
		return err
	}
	box, err := s.boxKey(header[:saltSize])
	if err != nil {
		return err
	}
	var nonce [nonceSize]byte
	copy(nonce[:], header[saltSize:])
	return s.inner.Set(ctx, key, secretbox.Seal(header, value, &nonce, box))
}

func (s *Sealed) boxKey(salt []byte) (*[32]byte, error) {
	dk, err := scrypt.Key(s.passphrase, salt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, err
	}
	var key [32]byte
	copy(key[:], dk)
	return &key, nil
}

func (s *Sealed) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *Sealed) Close() error {
	return s.inner.Close()
}
