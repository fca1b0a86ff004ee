// Package codec converts a store to and from its flat binary form.
//
// Layout, little-endian:
//
//	u64 employee count
//	  i32 id, 9 strings, u8 has-computer, [i32 computer id]
//	u64 computer count
//	  i32 id, 6 strings, i32 ram, string storage type, i32 storage, 5 strings
//
// A string is a u64 byte length followed by the raw bytes.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"computer-inventory/internal/model"
	"computer-inventory/internal/store"
	"computer-inventory/pkg/errors"
)

var order = binary.LittleEndian

// Encode serializes every employee and computer in insertion order.
func Encode(s *store.Store) ([]byte, error) {
	w := &writer{}

	employees := s.Employees()
	w.u64(uint64(len(employees)))
	for _, e := range employees {
		if err := w.i32(e.ID); err != nil {
			return nil, fmt.Errorf("employee %d id: %w", e.ID, err)
		}
		for _, field := range employeeStrings(&e) {
			w.str(*field)
		}
		if e.ComputerID == nil {
			w.u8(0)
			continue
		}
		w.u8(1)
		if err := w.i32(*e.ComputerID); err != nil {
			return nil, fmt.Errorf("employee %d computer id: %w", e.ID, err)
		}
	}

	computers := s.Computers()
	w.u64(uint64(len(computers)))
	for _, c := range computers {
		head, tail := computerStrings(&c)
		if err := w.i32(c.ID); err != nil {
			return nil, fmt.Errorf("computer %d id: %w", c.ID, err)
		}
		for _, field := range head {
			w.str(*field)
		}
		if err := w.i32(c.RAMSize); err != nil {
			return nil, fmt.Errorf("computer %d ram size: %w", c.ID, err)
		}
		w.str(c.StorageType)
		if err := w.i32(c.StorageSize); err != nil {
			return nil, fmt.Errorf("computer %d storage size: %w", c.ID, err)
		}
		for _, field := range tail {
			w.str(*field)
		}
	}

	return w.buf, nil
}

// Decode rebuilds a store through the restore path and validates it. Any
// truncation, impossible length, bad flag or trailing byte is MALFORMED_DATA.
func Decode(data []byte) (*store.Store, error) {
	r := &reader{buf: data}
	s := store.New()

	// Every employee needs at least id + 9 length prefixes + flag.
	employeeCount, err := r.count(4 + 9*8 + 1)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < employeeCount; i++ {
		var e model.Employee
		if e.ID, err = r.i32(); err != nil {
			return nil, err
		}
		for _, field := range employeeStrings(&e) {
			if *field, err = r.str(); err != nil {
				return nil, err
			}
		}

		var flag uint8
		if flag, err = r.u8(); err != nil {
			return nil, err
		}
		switch flag {
		case 0:
		case 1:
			id, err := r.i32()
			if err != nil {
				return nil, err
			}
			e.ComputerID = &id
		default:
			return nil, errors.MalformedData(fmt.Sprintf("invalid computer flag %d at offset %d", flag, r.off-1))
		}

		if err := s.AddEmployeeWithID(e); err != nil {
			return nil, err
		}
	}

	// id + 12 length prefixes + ram + storage size.
	computerCount, err := r.count(4 + 12*8 + 4 + 4)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < computerCount; i++ {
		var c model.Computer
		head, tail := computerStrings(&c)
		if c.ID, err = r.i32(); err != nil {
			return nil, err
		}
		for _, field := range head {
			if *field, err = r.str(); err != nil {
				return nil, err
			}
		}
		if c.RAMSize, err = r.i32(); err != nil {
			return nil, err
		}
		if c.StorageType, err = r.str(); err != nil {
			return nil, err
		}
		if c.StorageSize, err = r.i32(); err != nil {
			return nil, err
		}
		for _, field := range tail {
			if *field, err = r.str(); err != nil {
				return nil, err
			}
		}

		if err := s.AddComputerWithID(c); err != nil {
			return nil, err
		}
	}

	if r.remaining() != 0 {
		return nil, errors.MalformedData(fmt.Sprintf("%d trailing bytes after computers", r.remaining()))
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// employeeStrings lists the employee text fields in wire order. Status is
// carried as a string.
func employeeStrings(e *model.Employee) []*string {
	return []*string{
		&e.Institute, &e.Department, &e.LastName, &e.Initials, &e.Position,
		&e.Phone, &e.Email, &e.EmploymentDate, (*string)(&e.Status),
	}
}

// computerStrings lists the computer text fields before RAM size and after
// storage size, in wire order.
func computerStrings(c *model.Computer) (head, tail []*string) {
	head = []*string{
		&c.InventoryNumber, &c.SerialNumber, &c.Manufacturer, &c.Model, &c.CPUModel, &c.Chipset,
	}
	tail = []*string{
		&c.RoomNumber, (*string)(&c.Condition), &c.CommissioningDate, &c.LastMaintenanceDate, &c.WarrantyExpirationDate,
	}
	return head, tail
}

type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) u64(v uint64) {
	w.buf = order.AppendUint64(w.buf, v)
}

func (w *writer) i32(v int) error {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return fmt.Errorf("value %d does not fit in 32 bits", v)
	}
	w.buf = order.AppendUint32(w.buf, uint32(int32(v)))
	return nil
}

func (w *writer) str(s string) {
	w.u64(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) take(n int, what string) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, errors.MalformedData(fmt.Sprintf("truncated %s at offset %d: need %d bytes, have %d", what, r.off, n, r.remaining()))
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.take(1, "flag")
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u64(what string) (uint64, error) {
	b, err := r.take(8, what)
	if err != nil {
		return 0, err
	}
	return order.Uint64(b), nil
}

func (r *reader) i32() (int, error) {
	b, err := r.take(4, "integer")
	if err != nil {
		return 0, err
	}
	return int(int32(order.Uint32(b))), nil
}

func (r *reader) str() (string, error) {
	n, err := r.u64("string length")
	if err != nil {
		return "", err
	}
	if n > uint64(r.remaining()) {
		return "", errors.MalformedData(fmt.Sprintf("string length %d at offset %d exceeds remaining %d bytes", n, r.off-8, r.remaining()))
	}
	b, err := r.take(int(n), "string")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// count reads a record count and rejects counts that cannot fit in the
// rest of the buffer given the minimum record size.
func (r *reader) count(minRecord int) (uint64, error) {
	n, err := r.u64("record count")
	if err != nil {
		return 0, err
	}
	if n > uint64(r.remaining()/minRecord) {
		return 0, errors.MalformedData(fmt.Sprintf("record count %d at offset %d exceeds buffer", n, r.off-8))
	}
	return n, nil
}
