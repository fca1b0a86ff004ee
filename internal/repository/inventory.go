package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"computer-inventory/internal/model"
)

// InventoryRepository mirrors the inventory into PostgreSQL. The file
// remains the source of truth; the mirror is replaced wholesale.
type InventoryRepository interface {
	ReplaceAll(ctx context.Context, employees []model.Employee, computers []model.Computer) error
	Counts(ctx context.Context) (employees, computers int, err error)
}

type inventoryRepository struct {
	DB      *sql.DB
	timeout time.Duration
}

// NewInventoryRepository creates a new InventoryRepository.
func NewInventoryRepository(db *sql.DB) InventoryRepository {
	return &inventoryRepository{DB: db, timeout: 30 * time.Second}
}

const (
	insertComputerQuery = `
		INSERT INTO computers (id, inventory_number, serial_number, manufacturer, model, cpu_model, chipset,
			ram_size, storage_type, storage_size, room_number, condition,
			commissioning_date, last_maintenance_date, warranty_expiration_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	insertEmployeeQuery = `
		INSERT INTO employees (id, institute, department, last_name, initials, position, phone, email,
			employment_date, status, computer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
)

// ReplaceAll deletes the mirrored rows and inserts the given records in
// one transaction. Computers go first so employee references resolve.
func (r *inventoryRepository) ReplaceAll(ctx context.Context, employees []model.Employee, computers []model.Computer) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM employees`); err != nil {
		return fmt.Errorf("failed to clear employees: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM computers`); err != nil {
		return fmt.Errorf("failed to clear computers: %w", err)
	}

	for _, c := range computers {
		_, err := tx.ExecContext(ctx, insertComputerQuery,
			c.ID, c.InventoryNumber, c.SerialNumber, c.Manufacturer, c.Model, c.CPUModel, c.Chipset,
			c.RAMSize, c.StorageType, c.StorageSize, c.RoomNumber, string(c.Condition),
			c.CommissioningDate, c.LastMaintenanceDate, c.WarrantyExpirationDate,
		)
		if err != nil {
			return fmt.Errorf("failed to insert computer %d: %w", c.ID, err)
		}
	}

	for _, e := range employees {
		var computerID sql.NullInt64
		if e.ComputerID != nil {
			computerID = sql.NullInt64{Int64: int64(*e.ComputerID), Valid: true}
		}
		_, err := tx.ExecContext(ctx, insertEmployeeQuery,
			e.ID, e.Institute, e.Department, e.LastName, e.Initials, e.Position, e.Phone, e.Email,
			e.EmploymentDate, string(e.Status), computerID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert employee %d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Counts returns the number of mirrored rows.
func (r *inventoryRepository) Counts(ctx context.Context) (employees, computers int, err error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = r.DB.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM employees), (SELECT COUNT(*) FROM computers)`,
	).Scan(&employees, &computers)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count mirrored rows: %w", err)
	}
	return employees, computers, nil
}
