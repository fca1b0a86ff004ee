package store

import (
	"errors"
	"testing"

	"computer-inventory/internal/model"
	apperrors "computer-inventory/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newComputer(inv, serial string, ram int) model.Computer {
	return model.Computer{
		InventoryNumber: inv,
		SerialNumber:    serial,
		Manufacturer:    "Dell",
		Model:           "OptiPlex",
		CPUModel:        "i5",
		RAMSize:         ram,
		StorageType:     "SSD",
		StorageSize:     256,
	}
}

func intPtr(v int) *int { return &v }

func TestAddEmployee_AllocatesSequentialIDs(t *testing.T) {
	s := New()

	id1 := s.AddEmployee(model.Employee{LastName: "Ivanov"})
	id2 := s.AddEmployee(model.Employee{LastName: "Petrov", ID: 99})

	assert.Equal(t, 1, id1)
	assert.Equal(t, 2, id2)

	e, ok := s.Employee(1)
	require.True(t, ok)
	assert.Equal(t, model.StatusActive, e.Status)
}

func TestAddComputer_DuplicateInventory(t *testing.T) {
	s := New()
	_, err := s.AddComputer(newComputer("INV-1", "SN-1", 16))
	require.NoError(t, err)

	_, err = s.AddComputer(newComputer("INV-1", "SN-2", 16))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUniqueness))

	_, computers := s.Len()
	assert.Equal(t, 1, computers)
}

func TestAddComputer_DuplicateSerial(t *testing.T) {
	s := New()
	_, err := s.AddComputer(newComputer("INV-1", "SN-1", 16))
	require.NoError(t, err)

	_, err = s.AddComputer(newComputer("INV-2", "SN-1", 16))
	assert.True(t, errors.Is(err, apperrors.ErrUniqueness))
	assert.True(t, s.IsInventoryNumberUnique("INV-2"))
}

func TestAddWithID_RestorePath(t *testing.T) {
	s := New()

	err := s.AddEmployeeWithID(model.Employee{ID: 0})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidIdentifier))

	require.NoError(t, s.AddEmployeeWithID(model.Employee{ID: 7, LastName: "Sidorov"}))
	err = s.AddEmployeeWithID(model.Employee{ID: 7})
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateIdentifier))

	assert.Equal(t, 8, s.AddEmployee(model.Employee{LastName: "Next"}))

	err = s.AddComputerWithID(model.Computer{ID: -3})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidIdentifier))

	c := newComputer("INV-5", "SN-5", 8)
	c.ID = 5
	require.NoError(t, s.AddComputerWithID(c))
	assert.True(t, errors.Is(s.AddComputerWithID(c), apperrors.ErrDuplicateIdentifier))

	// A lower restored id must not move the counter backwards.
	low := newComputer("INV-2", "SN-2", 8)
	low.ID = 2
	require.NoError(t, s.AddComputerWithID(low))

	id, err := s.AddComputer(newComputer("INV-6", "SN-6", 8))
	require.NoError(t, err)
	assert.Equal(t, 6, id)
}

func TestUpdateEmployee(t *testing.T) {
	s := New()
	id := s.AddEmployee(model.Employee{LastName: "Ivanov"})

	assert.False(t, s.UpdateEmployee(model.Employee{ID: 42, LastName: "Nobody"}))
	assert.True(t, s.UpdateEmployee(model.Employee{ID: id, LastName: "Ivanova", Status: model.StatusSeparated}))

	e, ok := s.Employee(id)
	require.True(t, ok)
	assert.Equal(t, "Ivanova", e.LastName)
	assert.Equal(t, model.StatusSeparated, e.Status)
}

func TestEmployeeWrites_CannotBypassAssignment(t *testing.T) {
	tests := []struct {
		name  string
		write func(t *testing.T, s *Store, holder, other, pc int)
	}{
		{
			name: "add claims a held computer",
			write: func(t *testing.T, s *Store, holder, other, pc int) {
				s.AddEmployee(model.Employee{LastName: "Intruder", ComputerID: intPtr(pc)})
			},
		},
		{
			name: "add claims a missing computer",
			write: func(t *testing.T, s *Store, holder, other, pc int) {
				s.AddEmployee(model.Employee{LastName: "Ghost", ComputerID: intPtr(99)})
			},
		},
		{
			name: "update claims a held computer",
			write: func(t *testing.T, s *Store, holder, other, pc int) {
				require.True(t, s.UpdateEmployee(model.Employee{ID: other, LastName: "Petrov", ComputerID: intPtr(pc)}))
			},
		},
		{
			name: "update drops the holder's computer",
			write: func(t *testing.T, s *Store, holder, other, pc int) {
				require.True(t, s.UpdateEmployee(model.Employee{ID: holder, LastName: "Ivanova"}))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			holder := s.AddEmployee(model.Employee{LastName: "Ivanov"})
			other := s.AddEmployee(model.Employee{LastName: "Petrov"})
			pc, err := s.AddComputer(newComputer("INV-1", "SN-1", 8))
			require.NoError(t, err)
			require.True(t, s.AssignComputer(holder, pc))

			tt.write(t, s, holder, other, pc)

			assert.NoError(t, s.Validate())
			got, ok := s.AssigneeOf(pc)
			require.True(t, ok)
			assert.Equal(t, holder, got)

			e, _ := s.Employee(holder)
			require.NotNil(t, e.ComputerID)
			assert.Equal(t, pc, *e.ComputerID)
			for _, e := range s.Employees() {
				if e.ID != holder {
					assert.Nil(t, e.ComputerID, "employee %d", e.ID)
				}
			}
		})
	}
}

func TestUpdateComputer_UniquenessAgainstOthers(t *testing.T) {
	s := New()
	id1, err := s.AddComputer(newComputer("INV-1", "SN-1", 16))
	require.NoError(t, err)
	_, err = s.AddComputer(newComputer("INV-2", "SN-2", 16))
	require.NoError(t, err)

	// Keeping its own numbers is not a conflict.
	same := newComputer("INV-1", "SN-1", 32)
	same.ID = id1
	ok, err := s.UpdateComputer(same)
	require.NoError(t, err)
	assert.True(t, ok)

	clash := newComputer("INV-2", "SN-9", 64)
	clash.ID = id1
	ok, err = s.UpdateComputer(clash)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, apperrors.ErrUniqueness))

	c, _ := s.Computer(id1)
	assert.Equal(t, 32, c.RAMSize, "store must be unchanged after a conflict")

	renamed := newComputer("INV-10", "SN-10", 32)
	renamed.ID = id1
	ok, err = s.UpdateComputer(renamed)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, s.IsInventoryNumberUnique("INV-1"))
	assert.False(t, s.IsInventoryNumberUnique("INV-10"))

	missing := newComputer("INV-77", "SN-77", 8)
	missing.ID = 77
	ok, err = s.UpdateComputer(missing)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestAssignComputer_AlreadyAssigned(t *testing.T) {
	s := New()
	a := s.AddEmployee(model.Employee{LastName: "A"})
	b := s.AddEmployee(model.Employee{LastName: "B"})
	c, err := s.AddComputer(newComputer("INV-1", "SN-1", 16))
	require.NoError(t, err)

	require.True(t, s.AssignComputer(a, c))
	assert.True(t, s.AssignComputer(a, c), "re-assigning to the same holder is allowed")
	assert.False(t, s.AssignComputer(b, c))

	ea, _ := s.Employee(a)
	require.NotNil(t, ea.ComputerID)
	assert.Equal(t, c, *ea.ComputerID)

	eb, _ := s.Employee(b)
	assert.Nil(t, eb.ComputerID)
}

func TestAssignComputer_Rejections(t *testing.T) {
	s := New()
	active := s.AddEmployee(model.Employee{LastName: "A"})
	gone := s.AddEmployee(model.Employee{LastName: "B", Status: model.StatusSeparated})
	c, err := s.AddComputer(newComputer("INV-1", "SN-1", 16))
	require.NoError(t, err)

	assert.False(t, s.AssignComputer(99, c))
	assert.False(t, s.AssignComputer(active, 99))
	assert.False(t, s.AssignComputer(gone, c))
}

func TestAssignComputer_MovesHolderIndex(t *testing.T) {
	s := New()
	a := s.AddEmployee(model.Employee{LastName: "A"})
	b := s.AddEmployee(model.Employee{LastName: "B"})
	c1, _ := s.AddComputer(newComputer("INV-1", "SN-1", 16))
	c2, _ := s.AddComputer(newComputer("INV-2", "SN-2", 16))

	require.True(t, s.AssignComputer(a, c1))
	require.True(t, s.AssignComputer(a, c2))

	// c1 was released when a moved to c2.
	assert.True(t, s.AssignComputer(b, c1))
	holder, ok := s.AssigneeOf(c2)
	require.True(t, ok)
	assert.Equal(t, a, holder)
}

func TestUnassign(t *testing.T) {
	s := New()
	a := s.AddEmployee(model.Employee{LastName: "A"})
	c, _ := s.AddComputer(newComputer("INV-1", "SN-1", 16))

	assert.False(t, s.UnassignComputer(a))
	assert.False(t, s.UnassignComputer(99))

	require.True(t, s.AssignComputer(a, c))
	assert.True(t, s.UnassignComputer(a))
	assert.Len(t, s.FreeComputers(), 1)

	require.True(t, s.AssignComputer(a, c))
	assert.True(t, s.UnassignComputerByComputerID(c))
	assert.False(t, s.UnassignComputerByComputerID(c))
	_, held := s.AssigneeOf(c)
	assert.False(t, held)
}

func TestRemoveComputer_ClearsAssignment(t *testing.T) {
	s := New()
	a := s.AddEmployee(model.Employee{LastName: "A"})
	c, _ := s.AddComputer(newComputer("INV-1", "SN-1", 16))
	other, _ := s.AddComputer(newComputer("INV-2", "SN-2", 16))
	require.True(t, s.AssignComputer(a, c))

	s.RemoveComputer(c)
	s.RemoveComputer(12345)

	e, ok := s.Employee(a)
	require.True(t, ok, "employee must survive the cascade")
	assert.Nil(t, e.ComputerID)

	_, ok = s.Computer(c)
	assert.False(t, ok)
	got, ok := s.Computer(other)
	require.True(t, ok)
	assert.Equal(t, "INV-2", got.InventoryNumber)
	assert.True(t, s.IsInventoryNumberUnique("INV-1"))
}

func TestRemoveEmployee_Reindexes(t *testing.T) {
	s := New()
	a := s.AddEmployee(model.Employee{LastName: "A"})
	b := s.AddEmployee(model.Employee{LastName: "B"})
	c := s.AddEmployee(model.Employee{LastName: "C"})

	s.RemoveEmployee(b)
	s.RemoveEmployee(b)

	list := s.Employees()
	require.Len(t, list, 2)
	assert.Equal(t, a, list[0].ID)
	assert.Equal(t, c, list[1].ID)

	assert.True(t, s.UpdateEmployee(model.Employee{ID: c, LastName: "C2"}))
	e, _ := s.Employee(c)
	assert.Equal(t, "C2", e.LastName)
}

func TestScenario_AssignRemoveFree(t *testing.T) {
	s := New()

	ivanov := s.AddEmployee(model.Employee{LastName: "Ivanov"})
	require.Equal(t, 1, ivanov)

	comp, err := s.AddComputer(model.Computer{InventoryNumber: "INV-1", SerialNumber: "SN-1", RAMSize: 16})
	require.NoError(t, err)
	require.Equal(t, 1, comp)

	assert.True(t, s.AssignComputer(1, 1))
	assert.Empty(t, s.FreeComputers())

	petrov := s.AddEmployee(model.Employee{LastName: "Petrov"})
	require.Equal(t, 2, petrov)
	assert.False(t, s.AssignComputer(2, 1))

	s.RemoveEmployee(1)
	free := s.FreeComputers()
	require.Len(t, free, 1)
	assert.Equal(t, 1, free[0].ID)
}

func TestScenario_RAMReport(t *testing.T) {
	s := New()
	_, err := s.AddComputer(model.Computer{InventoryNumber: "INV-1", SerialNumber: "SN-1", RAMSize: 16})
	require.NoError(t, err)

	below32 := s.ComputersWithRAMLessThan(32)
	require.Len(t, below32, 1)
	assert.Equal(t, "INV-1", below32[0].InventoryNumber)

	assert.Empty(t, s.ComputersWithRAMLessThan(8))
	assert.Empty(t, s.ComputersWithRAMLessThan(16))
}

func TestSearch(t *testing.T) {
	s := New()
	s.AddEmployee(model.Employee{LastName: "Ivanov"})
	s.AddEmployee(model.Employee{LastName: "Ivanova"})
	s.AddEmployee(model.Employee{LastName: "Petrov"})
	_, _ = s.AddComputer(newComputer("INV-100", "SN-1", 8))
	_, _ = s.AddComputer(newComputer("INV-200", "SN-2", 8))

	assert.Len(t, s.FindEmployeesByLastName("Ivanov"), 2)
	assert.Len(t, s.FindEmployeesByLastName("ivanov"), 0, "search is case-sensitive")
	assert.Len(t, s.FindComputersByInventory("INV-1"), 1)
	assert.Len(t, s.FindComputersByInventory("INV"), 2)
}

func TestAccessorsReturnCopies(t *testing.T) {
	s := New()
	a := s.AddEmployee(model.Employee{LastName: "A"})
	c, _ := s.AddComputer(newComputer("INV-1", "SN-1", 16))
	require.True(t, s.AssignComputer(a, c))

	list := s.Employees()
	*list[0].ComputerID = 999
	list[0].LastName = "Changed"

	e, _ := s.Employee(a)
	assert.Equal(t, "A", e.LastName)
	assert.Equal(t, c, *e.ComputerID)
}

func TestStats(t *testing.T) {
	s := New()
	a := s.AddEmployee(model.Employee{LastName: "A"})
	s.AddEmployee(model.Employee{LastName: "B", Status: model.StatusSeparated})
	c1, _ := s.AddComputer(newComputer("INV-1", "SN-1", 16))
	broken := newComputer("INV-2", "SN-2", 8)
	broken.Condition = model.ConditionBroken
	_, _ = s.AddComputer(broken)
	require.True(t, s.AssignComputer(a, c1))

	st := s.Stats()
	assert.Equal(t, 2, st.Employees)
	assert.Equal(t, 1, st.ActiveEmployees)
	assert.Equal(t, 1, st.SeparatedEmployees)
	assert.Equal(t, 2, st.Computers)
	assert.Equal(t, 1, st.AssignedComputers)
	assert.Equal(t, 1, st.FreeComputers)
	assert.Equal(t, 24, st.TotalRAM)
	assert.Equal(t, 1, st.ByCondition[model.ConditionWorking])
	assert.Equal(t, 1, st.ByCondition[model.ConditionBroken])
}

func TestEmployeeRecordKeepsComputerIDPointerPrivate(t *testing.T) {
	s := New()
	ref := intPtr(3)
	require.NoError(t, s.AddEmployeeWithID(model.Employee{ID: 1, ComputerID: ref}))
	*ref = 4

	e, _ := s.Employee(1)
	assert.Equal(t, 3, *e.ComputerID)
}
