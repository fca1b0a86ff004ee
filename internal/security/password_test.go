package security

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPassword_Redaction(t *testing.T) {
	p := PasswordFromString("hunter2")

	assert.Equal(t, redacted, p.String())
	assert.Equal(t, redacted, fmt.Sprintf("%v", p))
	assert.Equal(t, redacted, fmt.Sprintf("%#v", p))
	assert.Equal(t, redacted, fmt.Sprintf("%s", p))
	assert.NotContains(t, fmt.Sprintf("%x", p), "68756e74657232")

	b, err := json.Marshal(struct{ P Password }{P: p})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hunter2")
}

func TestPassword_LogRedaction(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	logger.Info("opened", zap.Object("password", PasswordFromString("hunter2")), zap.Stringer("again", PasswordFromString("hunter2")))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.NotContains(t, fmt.Sprint(fields), "hunter2")
	assert.Equal(t, redacted, fields["again"])
}

func TestPassword_EqualAndEmpty(t *testing.T) {
	assert.True(t, Password(nil).Empty())
	assert.False(t, PasswordFromString("a").Empty())

	assert.True(t, PasswordFromString("abc").Equal(PasswordFromString("abc")))
	assert.False(t, PasswordFromString("abc").Equal(PasswordFromString("abd")))
	assert.False(t, PasswordFromString("abc").Equal(PasswordFromString("ab")))
}

func TestPassword_NewPasswordCopies(t *testing.T) {
	in := []byte("secret")
	p := NewPassword(in)
	in[0] = 'X'

	var seen string
	require.NoError(t, p.Use(func(b []byte) error {
		seen = string(b)
		return nil
	}))
	assert.Equal(t, "secret", seen)
}

func TestPassword_Zero(t *testing.T) {
	p := NewPassword([]byte("secret"))
	backing := []byte(p)

	p.Zero()

	assert.True(t, p.Empty())
	assert.Equal(t, make([]byte, 6), backing)

	var nilPtr *Password
	assert.NotPanics(t, func() { nilPtr.Zero() })
}
