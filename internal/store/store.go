// Package store holds the in-memory inventory: employees, computers and the
// assignment between them.
//
// A Store is not safe for concurrent use. Records live in insertion-ordered
// slices; lookups by id, uniqueness keys and assignment holders go through
// indexes kept in step with every mutation.
package store

import (
	"strings"

	"computer-inventory/internal/model"
	"computer-inventory/pkg/errors"
)

// Store is the in-memory entity store.
type Store struct {
	employees []model.Employee
	computers []model.Computer

	nextEmployeeID int
	nextComputerID int

	employeePos map[int]int    // employee id -> index in employees
	computerPos map[int]int    // computer id -> index in computers
	inventory   map[string]int // inventory number -> computer id
	serials     map[string]int // serial number -> computer id
	holders     map[int]int    // computer id -> employee id
}

// New returns an empty store.
func New() *Store {
	return &Store{
		nextEmployeeID: 1,
		nextComputerID: 1,
		employeePos:    make(map[int]int),
		computerPos:    make(map[int]int),
		inventory:      make(map[string]int),
		serials:        make(map[string]int),
		holders:        make(map[int]int),
	}
}

// AddEmployee appends e under a freshly allocated id and returns that id.
// The employee starts without a computer; use AssignComputer afterwards.
func (s *Store) AddEmployee(e model.Employee) int {
	e = e.Clone()
	e.ID = s.nextEmployeeID
	e.ComputerID = nil
	s.nextEmployeeID++
	if e.Status == "" {
		e.Status = model.StatusActive
	}
	s.appendEmployee(e)
	return e.ID
}

// AddComputer appends c under a freshly allocated id and returns that id.
// The inventory and serial numbers must not be held by another computer.
func (s *Store) AddComputer(c model.Computer) (int, error) {
	if !s.IsInventoryNumberUnique(c.InventoryNumber) {
		return 0, errors.UniquenessViolation("inventory number", c.InventoryNumber)
	}
	if !s.IsSerialNumberUnique(c.SerialNumber) {
		return 0, errors.UniquenessViolation("serial number", c.SerialNumber)
	}

	c.ID = s.nextComputerID
	s.nextComputerID++
	if c.Condition == "" {
		c.Condition = model.ConditionWorking
	}
	s.appendComputer(c)
	return c.ID, nil
}

// AddEmployeeWithID appends e keeping its id. It is the restore path used
// when rebuilding a store from storage; the record is taken as-is and the
// full validation sweep is expected to follow.
func (s *Store) AddEmployeeWithID(e model.Employee) error {
	if e.ID <= 0 {
		return errors.InvalidIdentifier("employee", e.ID)
	}
	if _, exists := s.employeePos[e.ID]; exists {
		return errors.DuplicateIdentifier("employee", e.ID)
	}

	s.appendEmployee(e.Clone())
	if e.ID >= s.nextEmployeeID {
		s.nextEmployeeID = e.ID + 1
	}
	return nil
}

// AddComputerWithID appends c keeping its id. See AddEmployeeWithID.
func (s *Store) AddComputerWithID(c model.Computer) error {
	if c.ID <= 0 {
		return errors.InvalidIdentifier("computer", c.ID)
	}
	if _, exists := s.computerPos[c.ID]; exists {
		return errors.DuplicateIdentifier("computer", c.ID)
	}

	s.appendComputer(c)
	if c.ID >= s.nextComputerID {
		s.nextComputerID = c.ID + 1
	}
	return nil
}

// UpdateEmployee replaces the fields of the employee with the same id. It
// reports false when no such employee exists. The stored assignment is
// kept; it only changes through AssignComputer and the unassign calls.
func (s *Store) UpdateEmployee(e model.Employee) bool {
	pos, ok := s.employeePos[e.ID]
	if !ok {
		return false
	}
	if e.Status == "" {
		e.Status = model.StatusActive
	}
	e = e.Clone()
	e.ComputerID = s.employees[pos].ComputerID
	s.employees[pos] = e
	return true
}

// UpdateComputer replaces the computer with the same id. It reports false
// when no such computer exists. A conflicting inventory or serial number
// leaves the store unchanged.
func (s *Store) UpdateComputer(c model.Computer) (bool, error) {
	pos, ok := s.computerPos[c.ID]
	if !ok {
		return false, nil
	}
	if owner, taken := s.inventory[c.InventoryNumber]; taken && owner != c.ID {
		return false, errors.UniquenessViolation("inventory number", c.InventoryNumber)
	}
	if owner, taken := s.serials[c.SerialNumber]; taken && owner != c.ID {
		return false, errors.UniquenessViolation("serial number", c.SerialNumber)
	}

	if c.Condition == "" {
		c.Condition = model.ConditionWorking
	}

	old := s.computers[pos]
	if s.inventory[old.InventoryNumber] == old.ID {
		delete(s.inventory, old.InventoryNumber)
	}
	if s.serials[old.SerialNumber] == old.ID {
		delete(s.serials, old.SerialNumber)
	}

	s.computers[pos] = c
	s.inventory[c.InventoryNumber] = c.ID
	s.serials[c.SerialNumber] = c.ID
	return true, nil
}

// RemoveEmployee deletes the employee with the given id, if any.
func (s *Store) RemoveEmployee(id int) {
	pos, ok := s.employeePos[id]
	if !ok {
		return
	}
	s.employees = append(s.employees[:pos], s.employees[pos+1:]...)
	s.reindex()
}

// RemoveComputer deletes the computer with the given id, if any, and clears
// the assignment of every employee that referenced it.
func (s *Store) RemoveComputer(id int) {
	pos, ok := s.computerPos[id]
	if !ok {
		return
	}
	s.clearReferences(id)
	s.computers = append(s.computers[:pos], s.computers[pos+1:]...)
	s.reindex()
}

// AssignComputer links a computer to an employee. It returns false when
// either id is unknown, the employee is separated, or another employee
// already holds the computer.
func (s *Store) AssignComputer(employeeID, computerID int) bool {
	pos, ok := s.employeePos[employeeID]
	if !ok {
		return false
	}
	if _, ok := s.computerPos[computerID]; !ok {
		return false
	}

	e := &s.employees[pos]
	if e.Status == model.StatusSeparated {
		return false
	}
	if holder, held := s.holders[computerID]; held && holder != employeeID {
		return false
	}

	if e.ComputerID != nil && s.holders[*e.ComputerID] == employeeID {
		delete(s.holders, *e.ComputerID)
	}
	id := computerID
	e.ComputerID = &id
	s.holders[computerID] = employeeID
	return true
}

// UnassignComputer clears the employee's assignment. It reports whether
// anything changed.
func (s *Store) UnassignComputer(employeeID int) bool {
	pos, ok := s.employeePos[employeeID]
	if !ok {
		return false
	}
	e := &s.employees[pos]
	if e.ComputerID == nil {
		return false
	}
	e.ComputerID = nil
	s.reindexHolders()
	return true
}

// UnassignComputerByComputerID clears the assignment held on the computer.
// It reports whether anything changed.
func (s *Store) UnassignComputerByComputerID(computerID int) bool {
	if !s.clearReferences(computerID) {
		return false
	}
	s.reindexHolders()
	return true
}

// Employees returns a copy of all employees in insertion order.
func (s *Store) Employees() []model.Employee {
	out := make([]model.Employee, len(s.employees))
	for i, e := range s.employees {
		out[i] = e.Clone()
	}
	return out
}

// Computers returns a copy of all computers in insertion order.
func (s *Store) Computers() []model.Computer {
	return append([]model.Computer(nil), s.computers...)
}

// Employee looks up an employee by id.
func (s *Store) Employee(id int) (model.Employee, bool) {
	pos, ok := s.employeePos[id]
	if !ok {
		return model.Employee{}, false
	}
	return s.employees[pos].Clone(), true
}

// Computer looks up a computer by id.
func (s *Store) Computer(id int) (model.Computer, bool) {
	pos, ok := s.computerPos[id]
	if !ok {
		return model.Computer{}, false
	}
	return s.computers[pos], true
}

// AssigneeOf returns the id of the employee holding the computer.
func (s *Store) AssigneeOf(computerID int) (int, bool) {
	id, ok := s.holders[computerID]
	return id, ok
}

// FreeComputers returns the computers nobody holds, in insertion order.
func (s *Store) FreeComputers() []model.Computer {
	var out []model.Computer
	for _, c := range s.computers {
		if _, held := s.holders[c.ID]; !held {
			out = append(out, c)
		}
	}
	return out
}

// ComputersWithRAMLessThan returns computers whose RAM size is below limit.
func (s *Store) ComputersWithRAMLessThan(limit int) []model.Computer {
	var out []model.Computer
	for _, c := range s.computers {
		if c.RAMSize < limit {
			out = append(out, c)
		}
	}
	return out
}

// FindEmployeesByLastName returns employees whose last name contains sub.
func (s *Store) FindEmployeesByLastName(sub string) []model.Employee {
	var out []model.Employee
	for _, e := range s.employees {
		if strings.Contains(e.LastName, sub) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// FindComputersByInventory returns computers whose inventory number contains sub.
func (s *Store) FindComputersByInventory(sub string) []model.Computer {
	var out []model.Computer
	for _, c := range s.computers {
		if strings.Contains(c.InventoryNumber, sub) {
			out = append(out, c)
		}
	}
	return out
}

// IsInventoryNumberUnique reports whether no computer uses the inventory number.
func (s *Store) IsInventoryNumberUnique(inventoryNumber string) bool {
	_, taken := s.inventory[inventoryNumber]
	return !taken
}

// IsSerialNumberUnique reports whether no computer uses the serial number.
func (s *Store) IsSerialNumberUnique(serialNumber string) bool {
	_, taken := s.serials[serialNumber]
	return !taken
}

// Len returns the number of employees and computers.
func (s *Store) Len() (employees, computers int) {
	return len(s.employees), len(s.computers)
}

func (s *Store) appendEmployee(e model.Employee) {
	s.employees = append(s.employees, e)
	s.employeePos[e.ID] = len(s.employees) - 1
	if e.ComputerID != nil {
		if _, held := s.holders[*e.ComputerID]; !held {
			s.holders[*e.ComputerID] = e.ID
		}
	}
}

func (s *Store) appendComputer(c model.Computer) {
	s.computers = append(s.computers, c)
	s.computerPos[c.ID] = len(s.computers) - 1
	if _, taken := s.inventory[c.InventoryNumber]; !taken {
		s.inventory[c.InventoryNumber] = c.ID
	}
	if _, taken := s.serials[c.SerialNumber]; !taken {
		s.serials[c.SerialNumber] = c.ID
	}
}

// clearReferences drops every employee reference to computerID.
func (s *Store) clearReferences(computerID int) bool {
	changed := false
	for i := range s.employees {
		e := &s.employees[i]
		if e.ComputerID != nil && *e.ComputerID == computerID {
			e.ComputerID = nil
			changed = true
		}
	}
	return changed
}

// reindex rebuilds every index from the slices. The first record in
// insertion order wins a contested key.
func (s *Store) reindex() {
	s.employeePos = make(map[int]int, len(s.employees))
	for i, e := range s.employees {
		s.employeePos[e.ID] = i
	}

	s.computerPos = make(map[int]int, len(s.computers))
	s.inventory = make(map[string]int, len(s.computers))
	s.serials = make(map[string]int, len(s.computers))
	for i, c := range s.computers {
		s.computerPos[c.ID] = i
		if _, taken := s.inventory[c.InventoryNumber]; !taken {
			s.inventory[c.InventoryNumber] = c.ID
		}
		if _, taken := s.serials[c.SerialNumber]; !taken {
			s.serials[c.SerialNumber] = c.ID
		}
	}

	s.reindexHolders()
}

func (s *Store) reindexHolders() {
	s.holders = make(map[int]int)
	for _, e := range s.employees {
		if e.ComputerID == nil {
			continue
		}
		if _, held := s.holders[*e.ComputerID]; !held {
			s.holders[*e.ComputerID] = e.ID
		}
	}
}
