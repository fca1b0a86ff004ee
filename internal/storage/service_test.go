package storage

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"computer-inventory/internal/crypto"
	"computer-inventory/internal/model"
	"computer-inventory/internal/security"
	"computer-inventory/internal/store"
	apperrors "computer-inventory/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var fastKDF = crypto.Params{Time: 1, MemoryKiB: 64, Threads: 1}

func newTestService(compress bool) *Service {
	return NewService(Options{Compress: compress, KDF: fastKDF}, zap.NewNop())
}

func sampleStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New()
	emp := s.AddEmployee(model.Employee{LastName: "Ivanov", Department: "Security", EmploymentDate: "2015-09-01"})
	s.AddEmployee(model.Employee{LastName: "Sidorova", Status: model.StatusSeparated})
	pc, err := s.AddComputer(model.Computer{InventoryNumber: "INV-1", SerialNumber: "SN-1", RAMSize: 16, StorageSize: 512})
	require.NoError(t, err)
	_, err = s.AddComputer(model.Computer{InventoryNumber: "INV-2", SerialNumber: "SN-2", RAMSize: 4, StorageSize: 128, Condition: model.ConditionBroken})
	require.NoError(t, err)
	require.True(t, s.AssignComputer(emp, pc))
	return s
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	for _, compress := range []bool{true, false} {
		t.Run(map[bool]string{true: "zstd", false: "plain"}[compress], func(t *testing.T) {
			svc := newTestService(compress)
			path := filepath.Join(t.TempDir(), "inventory.pcinv")
			s := sampleStore(t)

			require.NoError(t, svc.Save(s, path, security.PasswordFromString("pw")))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, Magic, string(data[:len(Magic)]))
			assert.Equal(t, byte(FormatVersion), data[len(Magic)])
			assert.Equal(t, compress, data[len(Magic)+1]&flagZstd != 0)

			loaded, err := svc.Load(path, security.PasswordFromString("pw"))
			require.NoError(t, err)
			assert.Equal(t, s.Employees(), loaded.Employees())
			assert.Equal(t, s.Computers(), loaded.Computers())
		})
	}
}

func TestSave_FilePermissions(t *testing.T) {
	svc := newTestService(true)
	path := filepath.Join(t.TempDir(), "inventory.pcinv")
	require.NoError(t, svc.Save(sampleStore(t), path, security.PasswordFromString("pw")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_WrongPassword(t *testing.T) {
	svc := newTestService(true)
	path := filepath.Join(t.TempDir(), "inventory.pcinv")
	require.NoError(t, svc.Save(sampleStore(t), path, security.PasswordFromString("right")))

	_, err := svc.Load(path, security.PasswordFromString("wrong"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDecryptionFailed))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := newTestService(true).Load(filepath.Join(t.TempDir(), "absent"), security.PasswordFromString("pw"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrIO))
}

func TestLoad_HeaderChecks(t *testing.T) {
	svc := newTestService(true)
	dir := t.TempDir()
	path := filepath.Join(dir, "inventory.pcinv")
	require.NoError(t, svc.Save(sampleStore(t), path, security.PasswordFromString("pw")))
	valid, err := os.ReadFile(path)
	require.NoError(t, err)

	mutate := func(i int, b byte) []byte {
		out := append([]byte(nil), valid...)
		out[i] = b
		return out
	}
	// The envelope stores Argon2 memory at bytes 5..9.
	withMemory := func(kib uint32) []byte {
		out := append([]byte(nil), valid...)
		binary.LittleEndian.PutUint32(out[headerSize+5:headerSize+9], kib)
		return out
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "empty file", data: nil, want: apperrors.ErrMalformedData},
		{name: "bad magic", data: mutate(0, 'X'), want: apperrors.ErrMalformedData},
		{name: "future version", data: mutate(len(Magic), 2), want: apperrors.ErrMalformedData},
		{name: "unknown flag", data: mutate(len(Magic)+1, 0x80|flagZstd), want: apperrors.ErrMalformedData},
		// Flipping the compression flag is caught by the envelope tag.
		{name: "cleared compression flag", data: mutate(len(Magic)+1, 0), want: apperrors.ErrDecryptionFailed},
		{name: "truncated envelope", data: valid[:headerSize+10], want: apperrors.ErrMalformedData},
		{name: "tampered tag", data: mutate(len(valid)-1, valid[len(valid)-1]^0xFF), want: apperrors.ErrDecryptionFailed},
		{name: "kdf memory above limit", data: withMemory(1 << 20), want: apperrors.ErrMalformedData},
		{name: "kdf time above limit", data: mutate(headerSize+1, 13), want: apperrors.ErrMalformedData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(dir, "case.pcinv")
			require.NoError(t, os.WriteFile(p, tt.data, 0o600))

			_, err := svc.Load(p, security.PasswordFromString("pw"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestKDFLimit(t *testing.T) {
	tests := []struct {
		name string
		kdf  crypto.Params
		want crypto.Params
	}{
		{
			name: "cheap config keeps default files readable",
			kdf:  fastKDF,
			want: crypto.Params{Time: 12, MemoryKiB: 256 * 1024, Threads: 16},
		},
		{
			name: "costly config scales",
			kdf:  crypto.Params{Time: 10, MemoryKiB: 512 * 1024, Threads: 8},
			want: crypto.Params{Time: 40, MemoryKiB: 2048 * 1024, Threads: 32},
		},
		{
			name: "clamped to field width",
			kdf:  crypto.Params{Time: 64, MemoryKiB: math.MaxUint32, Threads: 255},
			want: crypto.Params{Time: 256, MemoryKiB: math.MaxUint32, Threads: math.MaxUint8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kdfLimit(tt.kdf)
			assert.Equal(t, tt.want, got)
			assert.False(t, crypto.DefaultParams.Exceeds(got))
		})
	}
}

func TestLoad_CostWithinLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.pcinv")
	writer := NewService(Options{KDF: crypto.Params{Time: 2, MemoryKiB: 128, Threads: 2}}, zap.NewNop())
	require.NoError(t, writer.Save(sampleStore(t), path, security.PasswordFromString("pw")))

	_, err := newTestService(true).Load(path, security.PasswordFromString("pw"))
	assert.NoError(t, err)
}

func TestSave_ValidationFailureKeepsPreviousFile(t *testing.T) {
	svc := newTestService(true)
	path := filepath.Join(t.TempDir(), "inventory.pcinv")
	require.NoError(t, svc.Save(sampleStore(t), path, security.PasswordFromString("pw")))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	broken := store.New()
	dangling := 42
	require.NoError(t, broken.AddEmployeeWithID(model.Employee{ID: 1, Status: model.StatusActive, ComputerID: &dangling}))

	err = svc.Save(broken, path, security.PasswordFromString("pw"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSave_RenameFailureKeepsPreviousFile(t *testing.T) {
	svc := newTestService(false)
	dir := t.TempDir()
	path := filepath.Join(dir, "inventory.pcinv")
	require.NoError(t, svc.Save(sampleStore(t), path, security.PasswordFromString("pw")))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	orig := rename
	rename = func(string, string) error { return os.ErrPermission }
	t.Cleanup(func() { rename = orig })

	s := sampleStore(t)
	s.AddEmployee(model.Employee{LastName: "Newcomer"})
	err = svc.Save(s, path, security.PasswordFromString("pw"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrIO))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be removed")
}

func TestSave_MissingDirectory(t *testing.T) {
	err := newTestService(true).Save(sampleStore(t), filepath.Join(t.TempDir(), "no", "such", "file"), security.PasswordFromString("pw"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrIO))
}

func TestLoad_OversizedFile(t *testing.T) {
	svc := NewService(Options{KDF: fastKDF, MaxPayload: 16}, zap.NewNop())
	path := filepath.Join(t.TempDir(), "big.pcinv")
	require.NoError(t, os.WriteFile(path, make([]byte, 1024), 0o600))

	_, err := svc.Load(path, security.PasswordFromString("pw"))
	assert.True(t, errors.Is(err, apperrors.ErrMalformedData))
}

func TestSaveLoad_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	svc := NewService(Options{Compress: true, KDF: fastKDF}, zap.New(core))
	path := filepath.Join(t.TempDir(), "inventory.pcinv")

	require.NoError(t, svc.Save(sampleStore(t), path, security.PasswordFromString("hunter2")))
	_, err := svc.Load(path, security.PasswordFromString("hunter2"))
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("Inventory saved").Len())
	assert.Equal(t, 1, logs.FilterMessage("Inventory loaded").Len())
	for _, entry := range logs.All() {
		for _, f := range entry.Context {
			assert.NotContains(t, f.String, "hunter2")
		}
	}
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(Options{}, nil)
	assert.Equal(t, crypto.DefaultParams, svc.opts.KDF)
	assert.Equal(t, int64(DefaultMaxPayload), svc.opts.MaxPayload)
	assert.Equal(t, os.FileMode(0o600), svc.opts.FileMode)
	assert.NotNil(t, svc.logger)
}
