package crypto

import (
	"errors"
	"fmt"
)

// ErrUnreadable matches every failure to open a sealed payload. Callers that do not
// care about the cause treat it as one opaque request failure.
var ErrUnreadable = errors.New("crypto: unreadable sealed payload")

var (
	errBlockLength = errors.New("ciphertext is not a positive multiple of the block size")
	errPadding     = errors.New("invalid PKCS#7 padding")
)

// DecodeError reports a frame that could not be parsed: bad base64, a frame shorter
// than the IV, or plaintext that is not UTF-8.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crypto: decode failure: %s: %v", e.Reason, e.Err)
	}
	return "crypto: decode failure: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrUnreadable }

// DecryptError reports ciphertext the block cipher rejected (length or padding).
type DecryptError struct {
	Err error
}

func (e *DecryptError) Error() string {
	return fmt.Sprintf("crypto: decrypt failure: %v", e.Err)
}

func (e *DecryptError) Unwrap() error { return e.Err }

func (e *DecryptError) Is(target error) bool { return target == ErrUnreadable }
