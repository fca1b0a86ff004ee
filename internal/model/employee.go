package model

// Status is the employment status of an employee.
type Status string

const (
	StatusActive    Status = "active"
	StatusSeparated Status = "separated"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusSeparated
}

// Employee represents a person that may hold one computer.
type Employee struct {
	ID             int    `json:"id"`
	Institute      string `json:"institute,omitempty"`
	Department     string `json:"department,omitempty"`
	LastName       string `json:"last_name"`
	Initials       string `json:"initials,omitempty"`
	Position       string `json:"position,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	EmploymentDate string `json:"employment_date,omitempty"`
	Status         Status `json:"status"`
	ComputerID     *int   `json:"computer_id,omitempty"`
}

// HasComputer reports whether the employee currently holds a computer.
func (e Employee) HasComputer() bool {
	return e.ComputerID != nil
}

// Clone returns a copy that does not share the ComputerID pointer.
func (e Employee) Clone() Employee {
	if e.ComputerID != nil {
		id := *e.ComputerID
		e.ComputerID = &id
	}
	return e
}
