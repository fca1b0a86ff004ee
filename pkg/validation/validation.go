package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"computer-inventory/internal/model"
)

// Now is the clock used for future-date checks.
var Now = time.Now

// dateLayoutLength is the length of every accepted date format.
const dateLayoutLength = 10

// ValidateDate checks a free-text date. Accepted formats are YYYY-MM-DD,
// DD.MM.YYYY and DD/MM/YYYY. An empty value is valid. Dates after today are
// rejected unless allowFuture is set.
func ValidateDate(value string, allowFuture bool) error {
	if value == "" {
		return nil
	}

	date, ok := parseDate(value)
	if !ok {
		return fmt.Errorf("invalid date: %q", value)
	}

	if !allowFuture && isFuture(date) {
		return fmt.Errorf("date is in the future: %q", value)
	}

	return nil
}

// IsValidNonFutureDate is the boolean form of ValidateDate.
func IsValidNonFutureDate(value string, allowFuture bool) (bool, string) {
	if err := ValidateDate(value, allowFuture); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func parseDate(value string) (time.Time, bool) {
	if len(value) != dateLayoutLength {
		return time.Time{}, false
	}

	var ys, ms, ds string
	switch {
	case value[4] == '-' && value[7] == '-':
		ys, ms, ds = value[0:4], value[5:7], value[8:10]
	case (value[2] == '.' || value[2] == '/') && value[5] == value[2]:
		ds, ms, ys = value[0:2], value[3:5], value[6:10]
	default:
		return time.Time{}, false
	}

	y, okY := parseDigits(ys)
	m, okM := parseDigits(ms)
	d, okD := parseDigits(ds)
	if !okY || !okM || !okD || y < 1 || m < 1 || m > 12 || d < 1 {
		return time.Time{}, false
	}

	// time.Date normalizes overflow (Feb 30 -> Mar 2); a changed month means the day was out of range.
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.Local)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func parseDigits(s string) (int, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func isFuture(date time.Time) bool {
	now := Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	return date.After(today)
}

// ValidateRequired checks if a string field is not empty
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidatePositive checks that a numeric field is strictly positive.
func ValidatePositive(fieldName string, value int) error {
	if value <= 0 {
		return fmt.Errorf("%s must be greater than 0", fieldName)
	}
	return nil
}

// ValidateEmployeeInput runs every record-local check for an employee and
// returns all problems found.
func ValidateEmployeeInput(e *model.Employee) []string {
	var errors []string

	if err := ValidateDate(e.EmploymentDate, false); err != nil {
		errors = append(errors, "employment_date: "+err.Error())
	}

	if !e.Status.Valid() {
		errors = append(errors, fmt.Sprintf("unknown status: %q", e.Status))
	}

	return errors
}

// ValidateComputerInput runs every record-local check for a computer and
// returns all problems found.
func ValidateComputerInput(c *model.Computer) []string {
	var errors []string

	if err := ValidateRequired("inventory_number", c.InventoryNumber); err != nil {
		errors = append(errors, err.Error())
	}
	if err := ValidateRequired("serial_number", c.SerialNumber); err != nil {
		errors = append(errors, err.Error())
	}
	if err := ValidatePositive("ram_size", c.RAMSize); err != nil {
		errors = append(errors, err.Error())
	}
	if err := ValidatePositive("storage_size", c.StorageSize); err != nil {
		errors = append(errors, err.Error())
	}

	if !c.Condition.Valid() {
		errors = append(errors, fmt.Sprintf("unknown condition: %q", c.Condition))
	}

	dates := []struct {
		field       string
		value       string
		allowFuture bool
	}{
		{"commissioning_date", c.CommissioningDate, false},
		{"last_maintenance_date", c.LastMaintenanceDate, false},
		{"warranty_expiration_date", c.WarrantyExpirationDate, true},
	}
	for _, d := range dates {
		if err := ValidateDate(d.value, d.allowFuture); err != nil {
			errors = append(errors, d.field+": "+err.Error())
		}
	}

	return errors
}
