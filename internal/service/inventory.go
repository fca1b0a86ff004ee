package service

import (
	"context"
	"fmt"
	"sync"

	"computer-inventory/internal/model"
	"computer-inventory/internal/security"
	"computer-inventory/internal/store"
	"computer-inventory/pkg/errors"
	"computer-inventory/pkg/validation"

	"go.uber.org/zap"
)

// Persister reads and writes inventory files.
type Persister interface {
	Save(s *store.Store, path string, password security.Password) error
	Load(path string, password security.Password) (*store.Store, error)
}

// Mirror receives a full copy of the inventory after every save.
type Mirror interface {
	ReplaceAll(ctx context.Context, employees []model.Employee, computers []model.Computer) error
}

// InventoryService is the session around one inventory file. It owns the
// live store, remembers the password and tracks unsaved changes. All
// methods are safe for concurrent use.
type InventoryService struct {
	mu       sync.Mutex
	store    *store.Store
	path     string
	password security.Password
	loaded   bool
	dirty    bool

	storage      Persister
	notifier     NotificationService
	mirror       Mirror
	lowRAMBelow  int
	logger       *zap.Logger
	pendingSends sync.WaitGroup
}

// Option configures an InventoryService.
type Option func(*InventoryService)

// WithMirror copies the inventory to m after each successful save.
func WithMirror(m Mirror) Option {
	return func(s *InventoryService) { s.mirror = m }
}

// WithLowRAMThreshold sends a warning when a computer with less RAM is
// added or updated. Zero disables the warning.
func WithLowRAMThreshold(below int) Option {
	return func(s *InventoryService) { s.lowRAMBelow = below }
}

// NewInventoryService creates a service with no inventory open.
func NewInventoryService(storage Persister, notifier NotificationService, logger *zap.Logger, opts ...Option) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	s := &InventoryService{
		storage:  storage,
		notifier: notifier,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateNew starts an empty inventory that will be saved to path. The
// session is dirty until the first save.
func (s *InventoryService) CreateNew(path string, password security.Password) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.password.Zero()
	s.store = store.New()
	s.path = path
	s.password = security.NewPassword(password)
	s.loaded = true
	s.dirty = true
	s.logger.Info("Created new inventory", zap.String("path", path))
}

// Open loads path and makes it the current inventory. On failure the
// current session is left as it was.
func (s *InventoryService) Open(path string, password security.Password) error {
	loaded, err := s.storage.Load(path, password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.password.Zero()
	s.store = loaded
	s.path = path
	s.password = security.NewPassword(password)
	s.loaded = true
	s.dirty = false
	return nil
}

// Save writes the inventory to its current path.
func (s *InventoryService) Save(ctx context.Context) error {
	s.mu.Lock()
	path := s.path
	s.mu.Unlock()
	return s.SaveAs(ctx, path)
}

// SaveAs writes the inventory to path and makes path current.
func (s *InventoryService) SaveAs(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return err
	}
	if path == "" {
		return errors.BadRequestError("no file path for the inventory")
	}
	if err := s.storage.Save(s.store, path, s.password); err != nil {
		return err
	}
	s.path = path
	s.dirty = false

	if s.mirror != nil {
		if err := s.mirror.ReplaceAll(ctx, s.store.Employees(), s.store.Computers()); err != nil {
			s.logger.Warn("Failed to update database mirror", zap.Error(err))
		}
	}
	return nil
}

// SyncMirror copies the current inventory to the mirror.
func (s *InventoryService) SyncMirror(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return err
	}
	if s.mirror == nil {
		return errors.BadRequestError("no database mirror configured")
	}
	if err := s.mirror.ReplaceAll(ctx, s.store.Employees(), s.store.Computers()); err != nil {
		return errors.WrapError(err, "failed to update database mirror")
	}
	return nil
}

// Close forgets the inventory and wipes the password. Pending
// notifications are waited for.
func (s *InventoryService) Close() {
	s.mu.Lock()
	s.password.Zero()
	s.store = nil
	s.loaded = false
	s.dirty = false
	s.mu.Unlock()

	s.pendingSends.Wait()
}

// Wait blocks until every notification sent so far has been delivered or
// has failed.
func (s *InventoryService) Wait() {
	s.pendingSends.Wait()
}

func (s *InventoryService) IsLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *InventoryService) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *InventoryService) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Employees

// CreateEmployee checks the input fields and adds the employee. Any id or
// assignment in e is ignored.
func (s *InventoryService) CreateEmployee(ctx context.Context, e model.Employee) (*model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	e.ComputerID = nil
	if err := checkEmployee(&e); err != nil {
		return nil, err
	}

	id := s.store.AddEmployee(e)
	s.dirty = true
	created, _ := s.store.Employee(id)

	s.logger.Info("Employee created", zap.Int("employee_id", id), zap.String("last_name", created.LastName))
	return &created, nil
}

func (s *InventoryService) GetEmployee(ctx context.Context, id int) (*model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	e, ok := s.store.Employee(id)
	if !ok {
		return nil, errors.NotFoundError("employee")
	}
	return &e, nil
}

func (s *InventoryService) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	return s.store.Employees(), nil
}

// SearchEmployees matches a case-sensitive substring of the last name.
func (s *InventoryService) SearchEmployees(ctx context.Context, lastName string) ([]model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	return s.store.FindEmployeesByLastName(lastName), nil
}

// UpdateEmployee replaces the employee's fields. The assignment is kept;
// it only changes through AssignComputer and the unassign calls.
func (s *InventoryService) UpdateEmployee(ctx context.Context, id int, updates model.Employee) (*model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	existing, ok := s.store.Employee(id)
	if !ok {
		return nil, errors.NotFoundError("employee")
	}
	if err := checkEmployee(&updates); err != nil {
		return nil, err
	}

	updates.ID = id
	updates.ComputerID = existing.ComputerID
	s.store.UpdateEmployee(updates)
	s.dirty = true

	updated, _ := s.store.Employee(id)
	s.logger.Info("Employee updated", zap.Int("employee_id", id))
	return &updated, nil
}

// DeleteEmployee removes the employee. A computer they held becomes free.
func (s *InventoryService) DeleteEmployee(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return err
	}
	e, ok := s.store.Employee(id)
	if !ok {
		return errors.NotFoundError("employee")
	}

	s.store.RemoveEmployee(id)
	s.dirty = true

	if e.ComputerID != nil {
		if c, ok := s.store.Computer(*e.ComputerID); ok {
			s.notify(ctx, AssignmentNotification{
				Type:            NotificationTypeComputerReleased,
				EmployeeID:      e.ID,
				EmployeeName:    e.LastName,
				ComputerID:      c.ID,
				InventoryNumber: c.InventoryNumber,
				Message:         fmt.Sprintf("Computer %s released: employee %s removed", c.InventoryNumber, e.LastName),
			})
		}
	}
	s.logger.Info("Employee deleted", zap.Int("employee_id", id))
	return nil
}

// Computers

// CreateComputer checks the input fields and adds the computer.
func (s *InventoryService) CreateComputer(ctx context.Context, c model.Computer) (*model.Computer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	if err := checkComputer(&c); err != nil {
		return nil, err
	}

	id, err := s.store.AddComputer(c)
	if err != nil {
		return nil, err
	}
	s.dirty = true
	created, _ := s.store.Computer(id)

	s.checkLowRAM(ctx, created)
	s.logger.Info("Computer created", zap.Int("computer_id", id), zap.String("inventory_number", created.InventoryNumber))
	return &created, nil
}

func (s *InventoryService) GetComputer(ctx context.Context, id int) (*model.Computer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	c, ok := s.store.Computer(id)
	if !ok {
		return nil, errors.NotFoundError("computer")
	}
	return &c, nil
}

func (s *InventoryService) ListComputers(ctx context.Context) ([]model.Computer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	return s.store.Computers(), nil
}

func (s *InventoryService) FreeComputers(ctx context.Context) ([]model.Computer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	return s.store.FreeComputers(), nil
}

// SearchComputers matches a case-sensitive substring of the inventory number.
func (s *InventoryService) SearchComputers(ctx context.Context, inventory string) ([]model.Computer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	return s.store.FindComputersByInventory(inventory), nil
}

// CheckUnique reports whether each number is still free to use.
func (s *InventoryService) CheckUnique(ctx context.Context, inventoryNumber, serialNumber string) (inventoryFree, serialFree bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return false, false, err
	}
	return s.store.IsInventoryNumberUnique(inventoryNumber), s.store.IsSerialNumberUnique(serialNumber), nil
}

func (s *InventoryService) UpdateComputer(ctx context.Context, id int, updates model.Computer) (*model.Computer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	if _, ok := s.store.Computer(id); !ok {
		return nil, errors.NotFoundError("computer")
	}
	if err := checkComputer(&updates); err != nil {
		return nil, err
	}

	updates.ID = id
	if _, err := s.store.UpdateComputer(updates); err != nil {
		return nil, err
	}
	s.dirty = true

	updated, _ := s.store.Computer(id)
	s.checkLowRAM(ctx, updated)
	s.logger.Info("Computer updated", zap.Int("computer_id", id))
	return &updated, nil
}

// DeleteComputer removes the computer and clears its assignment.
func (s *InventoryService) DeleteComputer(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return err
	}
	c, ok := s.store.Computer(id)
	if !ok {
		return errors.NotFoundError("computer")
	}
	holderID, held := s.store.AssigneeOf(id)
	holder, _ := s.store.Employee(holderID)

	s.store.RemoveComputer(id)
	s.dirty = true

	if held {
		s.notify(ctx, AssignmentNotification{
			Type:            NotificationTypeComputerRemoved,
			EmployeeID:      holder.ID,
			EmployeeName:    holder.LastName,
			ComputerID:      c.ID,
			InventoryNumber: c.InventoryNumber,
			Message:         fmt.Sprintf("Computer %s removed (was assigned to %s)", c.InventoryNumber, holder.LastName),
		})
	}
	s.logger.Info("Computer deleted", zap.Int("computer_id", id))
	return nil
}

// Assignments

// AssignComputer gives the computer to the employee. Unknown ids are
// NOT_FOUND; a separated employee or a computer held by someone else is
// CONFLICT.
func (s *InventoryService) AssignComputer(ctx context.Context, employeeID, computerID int) (*model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	e, ok := s.store.Employee(employeeID)
	if !ok {
		return nil, errors.NotFoundError("employee")
	}
	c, ok := s.store.Computer(computerID)
	if !ok {
		return nil, errors.NotFoundError("computer")
	}

	if !s.store.AssignComputer(employeeID, computerID) {
		if e.Status == model.StatusSeparated {
			return nil, errors.ConflictError(fmt.Sprintf("employee %d is separated", employeeID))
		}
		holder, _ := s.store.AssigneeOf(computerID)
		return nil, errors.ConflictError(fmt.Sprintf("computer %d is already assigned to employee %d", computerID, holder)).
			WithDetail("holder_id", holder)
	}
	s.dirty = true

	previous := e.ComputerID
	updated, _ := s.store.Employee(employeeID)
	if previous == nil || *previous != computerID {
		s.notify(ctx, AssignmentNotification{
			Type:            NotificationTypeComputerAssigned,
			EmployeeID:      e.ID,
			EmployeeName:    e.LastName,
			ComputerID:      c.ID,
			InventoryNumber: c.InventoryNumber,
			Message:         fmt.Sprintf("Computer %s assigned to %s", c.InventoryNumber, e.LastName),
		})
	}
	s.logger.Info("Computer assigned", zap.Int("employee_id", employeeID), zap.Int("computer_id", computerID))
	return &updated, nil
}

// UnassignEmployee clears the employee's assignment and reports whether
// there was one.
func (s *InventoryService) UnassignEmployee(ctx context.Context, employeeID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return false, err
	}
	e, ok := s.store.Employee(employeeID)
	if !ok {
		return false, errors.NotFoundError("employee")
	}
	if !s.store.UnassignComputer(employeeID) {
		return false, nil
	}
	s.dirty = true
	s.notifyUnassigned(ctx, e, *e.ComputerID)
	return true, nil
}

// UnassignComputer clears whatever assignment points at the computer and
// reports whether there was one.
func (s *InventoryService) UnassignComputer(ctx context.Context, computerID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return false, err
	}
	if _, ok := s.store.Computer(computerID); !ok {
		return false, errors.NotFoundError("computer")
	}
	holderID, held := s.store.AssigneeOf(computerID)
	holder, _ := s.store.Employee(holderID)

	if !s.store.UnassignComputerByComputerID(computerID) {
		return false, nil
	}
	s.dirty = true
	if held {
		s.notifyUnassigned(ctx, holder, computerID)
	}
	return true, nil
}

// Reports

// RAMReport lists computers with less than below of RAM.
func (s *InventoryService) RAMReport(ctx context.Context, below int) ([]model.Computer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	return s.store.ComputersWithRAMLessThan(below), nil
}

func (s *InventoryService) Stats(ctx context.Context) (*store.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	stats := s.store.Stats()
	return &stats, nil
}

// Violations runs the full validation sweep without saving.
func (s *InventoryService) Violations(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded(); err != nil {
		return nil, err
	}
	return s.store.Violations(), nil
}

func (s *InventoryService) requireLoaded() error {
	if !s.loaded {
		return errors.BadRequestError("no inventory is open")
	}
	return nil
}

func checkEmployee(e *model.Employee) error {
	if e.Status == "" {
		e.Status = model.StatusActive
	}
	if violations := validation.ValidateEmployeeInput(e); len(violations) > 0 {
		return errors.ValidationFailed(violations)
	}
	return nil
}

func checkComputer(c *model.Computer) error {
	if c.Condition == "" {
		c.Condition = model.ConditionWorking
	}
	if violations := validation.ValidateComputerInput(c); len(violations) > 0 {
		return errors.ValidationFailed(violations)
	}
	return nil
}
