package crypto

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// Primitives is the cryptographic capability a Channel is built on.
// Implementations honour the CBC / PKCS#7 / 16-byte IV contract.
type Primitives interface {
	EncryptCBC(block cipher.Block, iv, data []byte) ([]byte, error)
	DecryptCBC(block cipher.Block, iv, data []byte) ([]byte, error)
	RandomBytes(n int) ([]byte, error)
}

type stdPrimitives struct {
	random io.Reader
}

// StdPrimitives returns the capability backed by crypto/cipher and crypto/rand.
func StdPrimitives() Primitives {
	return stdPrimitives{random: rand.Reader}
}

// NewPrimitives returns the standard capability drawing IVs from random.
func NewPrimitives(random io.Reader) Primitives {
	return stdPrimitives{random: random}
}

func (p stdPrimitives) RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(p.random, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (p stdPrimitives) EncryptCBC(block cipher.Block, iv, data []byte) ([]byte, error) {
	bs := block.BlockSize()
	if len(iv) != bs {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", bs, len(iv))
	}
	padded := pkcs7Pad(data, bs)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func (p stdPrimitives) DecryptCBC(block cipher.Block, iv, data []byte) ([]byte, error) {
	bs := block.BlockSize()
	if len(iv) != bs {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", bs, len(iv))
	}
	// CryptBlocks panics on partial blocks, so the length is checked first.
	if len(data) == 0 || len(data)%bs != 0 {
		return nil, errBlockLength
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	return pkcs7Unpad(out, bs)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data), len(data)+n)
	copy(padded, data)
	return append(padded, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errBlockLength
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, errPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errPadding
		}
	}
	return data[:len(data)-n], nil
}
