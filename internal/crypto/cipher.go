// Package crypto seals inventory payloads under a password.
//
// The key is derived with Argon2id and split into an AES-256 key and an
// HMAC-SHA256 key. Payloads are encrypted with AES-CBC (PKCS#7) and then
// authenticated. The envelope is
//
//	u8 version | u32 time | u32 memoryKiB | u8 threads | salt[16] | iv[16] | ciphertext | tag[32]
//
// with integers in little-endian order. The tag covers the length-prefixed
// associated data followed by every envelope byte before the tag.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"computer-inventory/pkg/errors"

	"golang.org/x/crypto/argon2"
)

const (
	// Version is the envelope layout produced by Encrypt.
	Version = 1

	SaltSize = 16
	TagSize  = sha256.Size

	keySize    = 32
	headerSize = 1 + 4 + 4 + 1 + SaltSize + aes.BlockSize

	// Overhead is the smallest envelope: header, one padded block and the tag.
	Overhead = headerSize + aes.BlockSize + TagSize

	maxTime      = 64
	maxMemoryKiB = 4 << 20
)

// Params are the Argon2id cost parameters stored in every envelope.
type Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultParams follow the Argon2 RFC recommendation for interactive use.
var DefaultParams = Params{Time: 3, MemoryKiB: 64 * 1024, Threads: 4}

// Validate reports whether p is usable for key derivation.
func (p Params) Validate() error {
	switch {
	case p.Time == 0 || p.Time > maxTime:
		return fmt.Errorf("argon2 time %d out of range 1..%d", p.Time, maxTime)
	case p.Threads == 0:
		return fmt.Errorf("argon2 threads must be positive")
	case p.MemoryKiB < 8*uint32(p.Threads) || p.MemoryKiB > maxMemoryKiB:
		return fmt.Errorf("argon2 memory %d KiB out of range %d..%d", p.MemoryKiB, 8*uint32(p.Threads), maxMemoryKiB)
	}
	return nil
}

// Exceeds reports whether p costs more than limit in any dimension.
func (p Params) Exceeds(limit Params) bool {
	return p.Time > limit.Time || p.MemoryKiB > limit.MemoryKiB || p.Threads > limit.Threads
}

type options struct {
	aad       []byte
	params    Params
	maxParams *Params
	rand      io.Reader
}

// Option configures Encrypt and Decrypt.
type Option func(*options)

// WithAssociatedData binds aad to the envelope. Decrypt must be given the
// same bytes.
func WithAssociatedData(aad []byte) Option {
	return func(o *options) {
		o.aad = aad
	}
}

// WithParams sets the KDF cost used by Encrypt. Decrypt reads the cost from
// the envelope.
func WithParams(p Params) Option {
	return func(o *options) {
		o.params = p
	}
}

// WithMaxParams makes Decrypt reject envelopes whose stored cost exceeds
// limit before any key is derived.
func WithMaxParams(limit Params) Option {
	return func(o *options) {
		o.maxParams = &limit
	}
}

// WithRandom replaces the source of salts and IVs.
func WithRandom(r io.Reader) Option {
	return func(o *options) {
		o.rand = r
	}
}

func newOptions(opts []Option) options {
	o := options{params: DefaultParams, rand: rand.Reader}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DeriveKey stretches password with salt into an encryption key followed by
// a MAC key.
func DeriveKey(password, salt []byte, p Params) []byte {
	return argon2.IDKey(password, salt, p.Time, p.MemoryKiB, p.Threads, 2*keySize)
}

// Encrypt seals plaintext under password. Every call draws a fresh salt and
// IV, so equal inputs never produce equal envelopes.
func Encrypt(plaintext, password []byte, opts ...Option) ([]byte, error) {
	o := newOptions(opts)
	if err := o.params.Validate(); err != nil {
		return nil, errors.BadRequestError(err.Error())
	}

	padded := pad(plaintext)
	out := make([]byte, headerSize, headerSize+len(padded)+TagSize)
	out[0] = Version
	binary.LittleEndian.PutUint32(out[1:5], o.params.Time)
	binary.LittleEndian.PutUint32(out[5:9], o.params.MemoryKiB)
	out[9] = o.params.Threads
	salt := out[10 : 10+SaltSize]
	iv := out[10+SaltSize : headerSize]
	if _, err := io.ReadFull(o.rand, out[10:headerSize]); err != nil {
		return nil, errors.InternalError("failed to read random bytes", err)
	}

	key := DeriveKey(password, salt, o.params)
	defer zero(key)
	encKey, macKey := key[:keySize], key[keySize:]

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, errors.InternalError("failed to create cipher", err)
	}
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	zero(padded)

	out = append(out, ciphertext...)
	return append(out, tag(macKey, o.aad, out)...), nil
}

// Decrypt opens an envelope produced by Encrypt. A structurally impossible
// envelope is MALFORMED_DATA. A wrong password and a tampered envelope are
// both DECRYPTION_FAILED.
func Decrypt(envelope, password []byte, opts ...Option) ([]byte, error) {
	o := newOptions(opts)

	if len(envelope) < Overhead {
		return nil, errors.MalformedData(fmt.Sprintf("envelope of %d bytes is shorter than %d", len(envelope), Overhead))
	}
	if envelope[0] != Version {
		return nil, errors.MalformedData(fmt.Sprintf("unsupported envelope version %d", envelope[0]))
	}
	params := Params{
		Time:      binary.LittleEndian.Uint32(envelope[1:5]),
		MemoryKiB: binary.LittleEndian.Uint32(envelope[5:9]),
		Threads:   envelope[9],
	}
	if err := params.Validate(); err != nil {
		return nil, errors.MalformedData(err.Error())
	}
	if o.maxParams != nil && params.Exceeds(*o.maxParams) {
		return nil, errors.MalformedData(fmt.Sprintf("argon2 cost t=%d m=%d KiB p=%d exceeds limit t=%d m=%d KiB p=%d",
			params.Time, params.MemoryKiB, params.Threads,
			o.maxParams.Time, o.maxParams.MemoryKiB, o.maxParams.Threads))
	}

	body := envelope[:len(envelope)-TagSize]
	ciphertext := body[headerSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.MalformedData(fmt.Sprintf("ciphertext length %d is not a multiple of %d", len(ciphertext), aes.BlockSize))
	}
	salt := envelope[10 : 10+SaltSize]
	iv := envelope[10+SaltSize : headerSize]

	key := DeriveKey(password, salt, params)
	defer zero(key)
	encKey, macKey := key[:keySize], key[keySize:]

	if !hmac.Equal(tag(macKey, o.aad, body), envelope[len(body):]) {
		return nil, errors.DecryptionFailed(nil)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, errors.InternalError("failed to create cipher", err)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	out, err := unpad(plaintext)
	if err != nil {
		return nil, errors.DecryptionFailed(err)
	}
	return out, nil
}

func tag(macKey, aad, body []byte) []byte {
	mac := hmac.New(sha256.New, macKey)
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(aad)))
	mac.Write(n[:])
	mac.Write(aad)
	mac.Write(body)
	return mac.Sum(nil)
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
