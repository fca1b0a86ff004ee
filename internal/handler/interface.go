package handler

import (
	"context"
	"net/http"

	"computer-inventory/internal/model"
	"computer-inventory/internal/service"
	"computer-inventory/internal/store"
)

// Inventory is the part of the inventory service the HTTP layer uses.
type Inventory interface {
	IsLoaded() bool
	IsDirty() bool
	Path() string
	Save(ctx context.Context) error

	CreateEmployee(ctx context.Context, e model.Employee) (*model.Employee, error)
	GetEmployee(ctx context.Context, id int) (*model.Employee, error)
	ListEmployees(ctx context.Context) ([]model.Employee, error)
	SearchEmployees(ctx context.Context, lastName string) ([]model.Employee, error)
	UpdateEmployee(ctx context.Context, id int, e model.Employee) (*model.Employee, error)
	DeleteEmployee(ctx context.Context, id int) error

	CreateComputer(ctx context.Context, c model.Computer) (*model.Computer, error)
	GetComputer(ctx context.Context, id int) (*model.Computer, error)
	ListComputers(ctx context.Context) ([]model.Computer, error)
	FreeComputers(ctx context.Context) ([]model.Computer, error)
	SearchComputers(ctx context.Context, inventory string) ([]model.Computer, error)
	CheckUnique(ctx context.Context, inventoryNumber, serialNumber string) (bool, bool, error)
	UpdateComputer(ctx context.Context, id int, c model.Computer) (*model.Computer, error)
	DeleteComputer(ctx context.Context, id int) error

	AssignComputer(ctx context.Context, employeeID, computerID int) (*model.Employee, error)
	UnassignEmployee(ctx context.Context, employeeID int) (bool, error)
	UnassignComputer(ctx context.Context, computerID int) (bool, error)

	RAMReport(ctx context.Context, below int) ([]model.Computer, error)
	Stats(ctx context.Context) (*store.Stats, error)
	Violations(ctx context.Context) ([]string, error)
}

var _ Inventory = (*service.InventoryService)(nil)

// InventoryHandlerInterface defines the contract for inventory HTTP handlers.
type InventoryHandlerInterface interface {
	// Employees
	ListEmployeesHandler(w http.ResponseWriter, r *http.Request)
	CreateEmployeeHandler(w http.ResponseWriter, r *http.Request)
	SearchEmployeesHandler(w http.ResponseWriter, r *http.Request)
	GetEmployeeHandler(w http.ResponseWriter, r *http.Request)
	UpdateEmployeeHandler(w http.ResponseWriter, r *http.Request)
	DeleteEmployeeHandler(w http.ResponseWriter, r *http.Request)

	// Assignments
	AssignComputerHandler(w http.ResponseWriter, r *http.Request)
	UnassignEmployeeHandler(w http.ResponseWriter, r *http.Request)
	UnassignComputerHandler(w http.ResponseWriter, r *http.Request)

	// Computers
	ListComputersHandler(w http.ResponseWriter, r *http.Request)
	CreateComputerHandler(w http.ResponseWriter, r *http.Request)
	FreeComputersHandler(w http.ResponseWriter, r *http.Request)
	SearchComputersHandler(w http.ResponseWriter, r *http.Request)
	CheckUniqueHandler(w http.ResponseWriter, r *http.Request)
	GetComputerHandler(w http.ResponseWriter, r *http.Request)
	UpdateComputerHandler(w http.ResponseWriter, r *http.Request)
	DeleteComputerHandler(w http.ResponseWriter, r *http.Request)

	// Reports and persistence
	RAMReportHandler(w http.ResponseWriter, r *http.Request)
	StatsHandler(w http.ResponseWriter, r *http.Request)
	ValidateHandler(w http.ResponseWriter, r *http.Request)
	SaveHandler(w http.ResponseWriter, r *http.Request)

	HealthHandler(w http.ResponseWriter, r *http.Request)
}

// Ensure InventoryHandler implements InventoryHandlerInterface at compile time
var _ InventoryHandlerInterface = (*InventoryHandler)(nil)
