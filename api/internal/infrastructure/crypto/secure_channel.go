package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"sync"
	"unicode/utf8"
)

const (
	// IVSize is the length of the random prefix carried by every sealed message.
	IVSize = aes.BlockSize

	// ContentType marks sealed bodies so intermediaries do not treat them as JSON.
	ContentType = "text/plain; charset=UTF-8"
)

// Channel seals outgoing payloads and opens incoming ones.
//
// 🛡️ SLA: the wire format is base64(IV || AES-256-CBC(PKCS#7(plaintext))). There is no
// authentication tag and the default key ships inside every client, so a Channel is an
// obfuscation layer over the transport, not a confidentiality boundary. Tampered
// ciphertext that still carries valid padding opens to garbage plaintext.
//
// A Channel is immutable after construction and safe for concurrent use.
type Channel struct {
	// 🛡️ Optimized: the expanded key schedule is built once and reused per message
	block cipher.Block
	prims Primitives
}

// Option customises a Channel at construction time.
type Option func(*Channel)

// WithPrimitives swaps the cryptographic capability backing the channel.
func WithPrimitives(p Primitives) Option {
	return func(c *Channel) {
		if p != nil {
			c.prims = p
		}
	}
}

// NewChannel derives the channel key from passphrase and imports it once.
func NewChannel(passphrase string, opts ...Option) (*Channel, error) {
	key, err := DeriveKey(passphrase)
	if err != nil {
		return nil, err
	}

	// 🛡️ Privacy Tip: the block keeps its own schedule, so the derived bytes can go
	defer func() {
		for i := range key {
			key[i] = 0
		}
	}()

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: block cipher failure: %w", err)
	}

	c := &Channel{block: block, prims: StdPrimitives()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var defaultChannel = sync.OnceValue(func() *Channel {
	c, err := NewChannel(DefaultPassphrase)
	if err != nil {
		// DefaultPassphrase is a compile-time constant of valid length.
		panic(err)
	}
	return c
})

// Default returns the process-wide channel keyed with DefaultPassphrase.
// It is built on first use; concurrent first callers share one instance.
func Default() *Channel {
	return defaultChannel()
}

// Seal encrypts plaintext under a fresh IV and returns the transport envelope.
func (c *Channel) Seal(plaintext string) (string, error) {
	iv, err := c.prims.RandomBytes(IVSize)
	if err != nil {
		return "", fmt.Errorf("crypto: iv generation failure: %w", err)
	}
	if len(iv) != IVSize {
		return "", fmt.Errorf("crypto: iv generation returned %d bytes", len(iv))
	}

	ciphertext, err := c.prims.EncryptCBC(c.block, iv, []byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("crypto: encrypt failure: %w", err)
	}

	// 🛡️ Memory Safety: one allocation for the whole frame
	frame := make([]byte, 0, IVSize+len(ciphertext))
	frame = append(frame, iv...)
	frame = append(frame, ciphertext...)

	return base64.StdEncoding.EncodeToString(frame), nil
}

// Open reverses Seal. Failures are *DecodeError or *DecryptError, both of which
// match ErrUnreadable.
func (c *Channel) Open(opaque string) (string, error) {
	frame, err := base64.StdEncoding.DecodeString(opaque)
	if err != nil {
		return "", &DecodeError{Reason: "invalid base64", Err: err}
	}

	if len(frame) < IVSize {
		return "", &DecodeError{Reason: fmt.Sprintf("frame is %d bytes, shorter than the %d byte iv", len(frame), IVSize)}
	}

	iv, ciphertext := frame[:IVSize], frame[IVSize:]

	plaintext, err := c.prims.DecryptCBC(c.block, iv, ciphertext)
	if err != nil {
		return "", &DecryptError{Err: err}
	}

	if !utf8.Valid(plaintext) {
		return "", &DecodeError{Reason: "plaintext is not valid UTF-8"}
	}

	return string(plaintext), nil
}
