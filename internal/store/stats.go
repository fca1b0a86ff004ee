package store

import "computer-inventory/internal/model"

// Stats summarizes the store contents.
type Stats struct {
	Employees          int                     `json:"employees"`
	ActiveEmployees    int                     `json:"active_employees"`
	SeparatedEmployees int                     `json:"separated_employees"`
	Computers          int                     `json:"computers"`
	AssignedComputers  int                     `json:"assigned_computers"`
	FreeComputers      int                     `json:"free_computers"`
	ByCondition        map[model.Condition]int `json:"by_condition"`
	TotalRAM           int                     `json:"total_ram"`
}

// Stats computes summary counts over the current contents.
func (s *Store) Stats() Stats {
	st := Stats{
		Employees:   len(s.employees),
		Computers:   len(s.computers),
		ByCondition: make(map[model.Condition]int),
	}

	for _, e := range s.employees {
		switch e.Status {
		case model.StatusActive:
			st.ActiveEmployees++
		case model.StatusSeparated:
			st.SeparatedEmployees++
		}
	}

	for _, c := range s.computers {
		st.ByCondition[c.Condition]++
		st.TotalRAM += c.RAMSize
		if _, held := s.holders[c.ID]; held {
			st.AssignedComputers++
		}
	}
	st.FreeComputers = st.Computers - st.AssignedComputers

	return st
}
