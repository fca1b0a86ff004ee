// Package security holds the inventory password in memory.
package security

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap/zapcore"
)

const redacted = "[REDACTED]"

// Password is the secret the inventory file is sealed with. Formatting,
// JSON and log encoding never reveal its bytes.
type Password []byte

// NewPassword copies in into a new Password.
func NewPassword(in []byte) Password {
	out := make([]byte, len(in))
	copy(out, in)
	return Password(out)
}

// PasswordFromString converts a configuration value into a Password.
func PasswordFromString(in string) Password { return Password(in) }

func (p Password) String() string { return redacted }

// Format implements fmt.Formatter so every verb prints the placeholder.
func (p Password) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, redacted)
}

func (p Password) MarshalJSON() ([]byte, error) { return json.Marshal(redacted) }

func (p Password) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// MarshalLogObject keeps the password out of zap.Object fields.
func (p Password) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("value", redacted)
	enc.AddInt("length", len(p))
	return nil
}

// Empty reports whether no password is set.
func (p Password) Empty() bool { return len(p) == 0 }

// Equal compares in constant time.
func (p Password) Equal(other Password) bool {
	return subtle.ConstantTimeCompare(p, other) == 1
}

// Use hands fn the underlying bytes without copying. fn must not retain them.
func (p Password) Use(fn func([]byte) error) error {
	return fn([]byte(p))
}

// Zero overwrites the bytes in place.
func (p *Password) Zero() {
	if p == nil {
		return
	}
	for i := range *p {
		(*p)[i] = 0
	}
	*p = nil
}
