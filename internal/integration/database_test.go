package integration

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"computer-inventory/internal/config"
	"computer-inventory/internal/crypto"
	"computer-inventory/internal/database"
	"computer-inventory/internal/model"
	"computer-inventory/internal/repository"
	"computer-inventory/internal/security"
	"computer-inventory/internal/service"
	"computer-inventory/internal/storage"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// loadTestConfig reads the mirror connection from TEST_DB_* variables.
func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()

	port, err := strconv.Atoi(getEnv("TEST_DB_PORT", "5432"))
	require.NoError(t, err)

	return &config.Config{
		Database: config.DatabaseConfig{
			Enabled:         true,
			Host:            getEnv("TEST_DB_HOST", "localhost"),
			Port:            port,
			User:            getEnv("TEST_DB_USER", "postgres"),
			Password:        getEnv("TEST_DB_PASSWORD", "postgres"),
			Name:            getEnv("TEST_DB_NAME", "inventory_test"),
			SSLMode:         getEnv("TEST_DB_SSLMODE", "disable"),
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Minute,
			ConnMaxIdleTime: time.Minute,
		},
	}
}

// initTestDatabase connects and migrates, skipping when no server answers.
func initTestDatabase(t *testing.T, cfg *config.Config) *sql.DB {
	t.Helper()

	db, err := database.InitDB(cfg)
	if err != nil {
		t.Skipf("Skipping database integration test: %v", err)
	}
	require.NoError(t, database.Migrate(context.Background(), db))
	cleanDatabase(t, db)
	return db
}

func cleanDatabase(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`DELETE FROM employees`)
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM computers`)
	require.NoError(t, err)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func TestIntegration_MirrorReplaceAll(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping database integration test in short mode")
	}

	cfg := loadTestConfig(t)
	db := initTestDatabase(t, cfg)
	defer func() {
		cleanDatabase(t, db)
		db.Close()
	}()

	repo := repository.NewInventoryRepository(db)
	ctx := context.Background()
	held := 1

	computers := []model.Computer{
		{ID: 1, InventoryNumber: "INV-1", SerialNumber: "SN-1", RAMSize: 16, StorageSize: 512, Condition: model.ConditionWorking},
		{ID: 2, InventoryNumber: "INV-2", SerialNumber: "SN-2", RAMSize: 8, StorageSize: 256, Condition: model.ConditionInRepair},
	}
	employees := []model.Employee{
		{ID: 1, LastName: "Ivanov", Status: model.StatusActive, ComputerID: &held},
		{ID: 2, LastName: "Petrov", Status: model.StatusSeparated},
	}

	t.Run("Replace_Populates_Mirror", func(t *testing.T) {
		require.NoError(t, repo.ReplaceAll(ctx, employees, computers))

		nEmployees, nComputers, err := repo.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, nEmployees)
		assert.Equal(t, 2, nComputers)

		var computerID sql.NullInt64
		require.NoError(t, db.QueryRow(`SELECT computer_id FROM employees WHERE id = 1`).Scan(&computerID))
		assert.True(t, computerID.Valid)
		assert.EqualValues(t, 1, computerID.Int64)
	})

	t.Run("Replace_Drops_Removed_Rows", func(t *testing.T) {
		require.NoError(t, repo.ReplaceAll(ctx, employees[1:], computers[1:]))

		nEmployees, nComputers, err := repo.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, nEmployees)
		assert.Equal(t, 1, nComputers)
	})

	t.Run("Failed_Replace_Keeps_Previous_Rows", func(t *testing.T) {
		duplicate := []model.Computer{computers[0], computers[0]}
		require.Error(t, repo.ReplaceAll(ctx, nil, duplicate))

		nEmployees, nComputers, err := repo.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, nEmployees)
		assert.Equal(t, 1, nComputers)
	})
}

func TestIntegration_SaveSyncsMirror(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping database integration test in short mode")
	}

	cfg := loadTestConfig(t)
	db := initTestDatabase(t, cfg)
	defer func() {
		cleanDatabase(t, db)
		db.Close()
	}()

	repo := repository.NewInventoryRepository(db)
	files := storage.NewService(storage.Options{KDF: crypto.Params{Time: 1, MemoryKiB: 64, Threads: 1}}, nil)
	svc := service.NewInventoryService(files, nil, zap.NewNop(), service.WithMirror(repo))
	svc.CreateNew(filepath.Join(t.TempDir(), "inventory.pcinv"), security.PasswordFromString(testPassword))
	defer svc.Close()

	ctx := context.Background()
	_, err := svc.CreateComputer(ctx, model.Computer{InventoryNumber: "INV-9", SerialNumber: "SN-9", RAMSize: 32, StorageSize: 1024})
	require.NoError(t, err)
	_, err = svc.CreateEmployee(ctx, model.Employee{LastName: "Sidorova"})
	require.NoError(t, err)
	_, err = svc.AssignComputer(ctx, 1, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Save(ctx))

	nEmployees, nComputers, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, nEmployees)
	assert.Equal(t, 1, nComputers)

	var lastName string
	require.NoError(t, db.QueryRow(`SELECT last_name FROM employees WHERE computer_id = 1`).Scan(&lastName))
	assert.Equal(t, "Sidorova", lastName)
}
