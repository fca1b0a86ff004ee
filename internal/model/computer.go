package model

// Condition is the physical state of a computer.
type Condition string

const (
	ConditionWorking  Condition = "working"
	ConditionBroken   Condition = "broken"
	ConditionInRepair Condition = "in-repair"
	ConditionRetired  Condition = "retired"
)

// Valid reports whether c is one of the known conditions.
func (c Condition) Valid() bool {
	switch c {
	case ConditionWorking, ConditionBroken, ConditionInRepair, ConditionRetired:
		return true
	}
	return false
}

// Conditions lists every known condition in display order.
func Conditions() []Condition {
	return []Condition{ConditionWorking, ConditionBroken, ConditionInRepair, ConditionRetired}
}

// Computer represents a computer in the inventory.
// RAMSize and StorageSize are in gigabytes. Dates are kept as entered.
type Computer struct {
	ID                     int       `json:"id"`
	InventoryNumber        string    `json:"inventory_number"`
	SerialNumber           string    `json:"serial_number"`
	Manufacturer           string    `json:"manufacturer,omitempty"`
	Model                  string    `json:"model,omitempty"`
	CPUModel               string    `json:"cpu_model,omitempty"`
	Chipset                string    `json:"chipset,omitempty"`
	RAMSize                int       `json:"ram_size"`
	StorageType            string    `json:"storage_type,omitempty"`
	StorageSize            int       `json:"storage_size"`
	RoomNumber             string    `json:"room_number,omitempty"`
	Condition              Condition `json:"condition"`
	CommissioningDate      string    `json:"commissioning_date,omitempty"`
	LastMaintenanceDate    string    `json:"last_maintenance_date,omitempty"`
	WarrantyExpirationDate string    `json:"warranty_expiration_date,omitempty"`
}
