// Package storage persists a store as a single encrypted file and loads it
// back.
//
// File layout:
//
//	"PCINV" | u8 format version | u8 flags | cipher envelope
//
// The six header bytes after the magic are authenticated together with the
// magic as associated data of the envelope. Flag bit 0 marks a zstd
// compressed payload.
package storage

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"computer-inventory/internal/codec"
	"computer-inventory/internal/crypto"
	"computer-inventory/internal/security"
	"computer-inventory/internal/store"
	"computer-inventory/pkg/errors"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

const (
	Magic         = "PCINV"
	FormatVersion = 1

	flagZstd   = 1 << 0
	knownFlags = flagZstd

	headerSize = len(Magic) + 2

	// DefaultMaxPayload bounds the decoded payload and the file size.
	DefaultMaxPayload = 256 << 20

	// kdfCostFactor is how far the KDF cost stored in a file may exceed the
	// configured cost before Load refuses to derive a key.
	kdfCostFactor = 4
)

// Options configure the pipeline.
type Options struct {
	Compress   bool
	KDF        crypto.Params
	MaxPayload int64
	FileMode   os.FileMode
}

// DefaultOptions compress payloads and use the default KDF cost.
func DefaultOptions() Options {
	return Options{
		Compress:   true,
		KDF:        crypto.DefaultParams,
		MaxPayload: DefaultMaxPayload,
		FileMode:   0o600,
	}
}

// Service saves and loads inventory files.
type Service struct {
	opts   Options
	logger *zap.Logger
}

// rename is swapped in tests to simulate a failing final step.
var rename = os.Rename

// NewService fills zero options with defaults.
func NewService(opts Options, logger *zap.Logger) *Service {
	def := DefaultOptions()
	if opts.KDF == (crypto.Params{}) {
		opts.KDF = def.KDF
	}
	if opts.MaxPayload <= 0 {
		opts.MaxPayload = def.MaxPayload
	}
	if opts.FileMode == 0 {
		opts.FileMode = def.FileMode
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{opts: opts, logger: logger}
}

// Save validates s and writes it to path. The previous file, if any, is
// replaced only once the new one is completely on disk.
func (svc *Service) Save(s *store.Store, path string, password security.Password) error {
	if err := s.Validate(); err != nil {
		return err
	}

	payload, err := codec.Encode(s)
	if err != nil {
		return errors.WrapError(err, "failed to encode store")
	}

	var flags byte
	if svc.opts.Compress {
		payload, err = compress(payload)
		if err != nil {
			return errors.WrapError(err, "failed to compress payload")
		}
		flags |= flagZstd
	}

	header := makeHeader(flags)
	var envelope []byte
	err = password.Use(func(pw []byte) error {
		var encErr error
		envelope, encErr = crypto.Encrypt(payload, pw,
			crypto.WithParams(svc.opts.KDF),
			crypto.WithAssociatedData(header))
		return encErr
	})
	if err != nil {
		return err
	}

	if err := svc.writeAtomic(path, append(header, envelope...)); err != nil {
		return err
	}

	employees, computers := s.Len()
	svc.logger.Info("Inventory saved",
		zap.String("path", path),
		zap.Int("employees", employees),
		zap.Int("computers", computers),
		zap.Bool("compressed", svc.opts.Compress),
		zap.Int("bytes", headerSize+len(envelope)))
	return nil
}

// kdfLimit is the highest KDF cost Load accepts from a file when the
// service is configured with p. Files written with the default cost always
// stay readable.
func kdfLimit(p crypto.Params) crypto.Params {
	scale := func(v, floor uint32, ceil uint64) uint32 {
		return uint32(min(uint64(max(v, floor))*kdfCostFactor, ceil))
	}
	def := crypto.DefaultParams
	return crypto.Params{
		Time:      scale(p.Time, def.Time, math.MaxUint32),
		MemoryKiB: scale(p.MemoryKiB, def.MemoryKiB, math.MaxUint32),
		Threads:   uint8(scale(uint32(p.Threads), uint32(def.Threads), math.MaxUint8)),
	}
}

// Load reads path and returns the validated store it holds.
func (svc *Service) Load(path string, password security.Password) (*store.Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.IOFailure("stat "+path, err)
	}
	// Compressed payloads may expand, so the file itself is bounded by the
	// payload limit plus envelope overhead.
	if info.Size() > svc.opts.MaxPayload+int64(headerSize+crypto.Overhead) {
		return nil, errors.MalformedData(fmt.Sprintf("file of %d bytes exceeds limit", info.Size()))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IOFailure("read "+path, err)
	}

	flags, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = password.Use(func(pw []byte) error {
		var decErr error
		payload, decErr = crypto.Decrypt(data[headerSize:], pw,
			crypto.WithAssociatedData(data[:headerSize]),
			crypto.WithMaxParams(kdfLimit(svc.opts.KDF)))
		return decErr
	})
	if err != nil {
		svc.logger.Warn("Failed to open inventory", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	if flags&flagZstd != 0 {
		payload, err = svc.decompress(payload)
		if err != nil {
			return nil, err
		}
	}

	s, err := codec.Decode(payload)
	if err != nil {
		svc.logger.Warn("Rejected inventory contents", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	employees, computers := s.Len()
	svc.logger.Info("Inventory loaded",
		zap.String("path", path),
		zap.Int("employees", employees),
		zap.Int("computers", computers))
	return s, nil
}

func makeHeader(flags byte) []byte {
	h := make([]byte, 0, headerSize)
	h = append(h, Magic...)
	return append(h, FormatVersion, flags)
}

func parseHeader(data []byte) (byte, error) {
	if len(data) < headerSize || !bytes.Equal(data[:len(Magic)], []byte(Magic)) {
		return 0, errors.MalformedData("not an inventory file")
	}
	if v := data[len(Magic)]; v != FormatVersion {
		return 0, errors.MalformedData(fmt.Sprintf("unsupported format version %d", v))
	}
	flags := data[len(Magic)+1]
	if flags&^knownFlags != 0 {
		return 0, errors.MalformedData(fmt.Sprintf("unknown flags 0x%02x", flags))
	}
	return flags, nil
}

func compress(payload []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(payload, make([]byte, 0, len(payload)/2)), nil
}

func (svc *Service) decompress(payload []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(uint64(svc.opts.MaxPayload)),
		zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, errors.InternalError("failed to create decompressor", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, errors.MalformedData(fmt.Sprintf("invalid compressed payload: %v", err))
	}
	return out, nil
}

func (svc *Service) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.IOFailure("create temp file in "+dir, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.IOFailure("write "+tmp.Name(), err)
	}
	if err := tmp.Chmod(svc.opts.FileMode); err != nil {
		_ = tmp.Close()
		return errors.IOFailure("chmod "+tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.IOFailure("sync "+tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return errors.IOFailure("close "+tmp.Name(), err)
	}
	if err := rename(tmp.Name(), path); err != nil {
		return errors.IOFailure("rename to "+path, err)
	}
	committed = true

	if d, err := os.Open(dir); err == nil {
		if err := d.Sync(); err != nil {
			svc.logger.Debug("Directory sync failed", zap.String("dir", dir), zap.Error(err))
		}
		_ = d.Close()
	}
	return nil
}
