package store

import (
	"fmt"

	"computer-inventory/pkg/errors"
	"computer-inventory/pkg/validation"
)

// Validate runs a full consistency sweep and returns a VALIDATION_FAILED
// error listing every violation, or nil when the store is consistent.
func (s *Store) Validate() error {
	if violations := s.Violations(); len(violations) > 0 {
		return errors.ValidationFailed(violations)
	}
	return nil
}

// Violations inspects the whole store from scratch, ignoring the indexes,
// and returns every problem found in a stable order.
func (s *Store) Violations() []string {
	var out []string

	employeeIDs := make(map[int]struct{}, len(s.employees))
	for i := range s.employees {
		e := &s.employees[i]
		if e.ID <= 0 {
			out = append(out, fmt.Sprintf("invalid employee id: %d", e.ID))
		}
		if _, dup := employeeIDs[e.ID]; dup {
			out = append(out, fmt.Sprintf("duplicate employee id: %d", e.ID))
		}
		employeeIDs[e.ID] = struct{}{}

		for _, msg := range validation.ValidateEmployeeInput(e) {
			out = append(out, fmt.Sprintf("employee %d: %s", e.ID, msg))
		}
	}

	computerIDs := make(map[int]struct{}, len(s.computers))
	inventory := make(map[string]struct{}, len(s.computers))
	serials := make(map[string]struct{}, len(s.computers))
	for i := range s.computers {
		c := &s.computers[i]
		if c.ID <= 0 {
			out = append(out, fmt.Sprintf("invalid computer id: %d", c.ID))
		}
		if _, dup := computerIDs[c.ID]; dup {
			out = append(out, fmt.Sprintf("duplicate computer id: %d", c.ID))
		}
		computerIDs[c.ID] = struct{}{}

		if _, dup := inventory[c.InventoryNumber]; dup {
			out = append(out, fmt.Sprintf("computer %d: duplicate inventory number: %q", c.ID, c.InventoryNumber))
		}
		inventory[c.InventoryNumber] = struct{}{}

		if _, dup := serials[c.SerialNumber]; dup {
			out = append(out, fmt.Sprintf("computer %d: duplicate serial number: %q", c.ID, c.SerialNumber))
		}
		serials[c.SerialNumber] = struct{}{}

		for _, msg := range validation.ValidateComputerInput(c) {
			out = append(out, fmt.Sprintf("computer %d: %s", c.ID, msg))
		}
	}

	claimed := make(map[int]int)
	for _, e := range s.employees {
		if e.ComputerID == nil {
			continue
		}
		compID := *e.ComputerID
		if _, exists := computerIDs[compID]; !exists {
			out = append(out, fmt.Sprintf("employee %d: assigned computer %d does not exist", e.ID, compID))
			continue
		}
		if first, dup := claimed[compID]; dup {
			out = append(out, fmt.Sprintf("computer %d is assigned to several employees (%d, %d)", compID, first, e.ID))
			continue
		}
		claimed[compID] = e.ID
	}

	return out
}
