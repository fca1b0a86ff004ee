package handler

import (
	"net/http"

	"computer-inventory/internal/model"

	"github.com/gorilla/mux"
)

// ListEmployeesHandler returns one page of employees in insertion order.
func (h *InventoryHandler) ListEmployeesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	employees, err := h.Inventory.ListEmployees(ctx)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "list employees")
		return
	}

	h.sendEmployeePage(w, r, employees, nil)
}

// CreateEmployeeHandler handles the creation of a new employee.
func (h *InventoryHandler) CreateEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	var employee model.Employee
	if !h.decodeBody(w, r, &employee) {
		return
	}

	created, err := h.Inventory.CreateEmployee(ctx, employee)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "create employee")
		return
	}

	h.ErrorHandler.SendSuccessResponse(w, http.StatusCreated, "Employee created successfully", created)
}

// SearchEmployeesHandler matches last_name as a case-sensitive substring.
func (h *InventoryHandler) SearchEmployeesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	lastName := r.URL.Query().Get("last_name")
	employees, err := h.Inventory.SearchEmployees(ctx, lastName)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "search employees")
		return
	}

	h.sendEmployeePage(w, r, employees, map[string]interface{}{"last_name": lastName})
}

// GetEmployeeHandler handles the retrieval of a single employee by ID.
func (h *InventoryHandler) GetEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	id, valid := h.ErrorHandler.ParseAndValidateID(w, mux.Vars(r)["id"], "employee")
	if !valid {
		return
	}

	employee, err := h.Inventory.GetEmployee(ctx, id)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "retrieve employee")
		return
	}

	h.ErrorHandler.SendJSONResponse(w, http.StatusOK, employee)
}

// UpdateEmployeeHandler replaces the employee's fields. The assignment is
// not changed here.
func (h *InventoryHandler) UpdateEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	id, valid := h.ErrorHandler.ParseAndValidateID(w, mux.Vars(r)["id"], "employee")
	if !valid {
		return
	}

	var employee model.Employee
	if !h.decodeBody(w, r, &employee) {
		return
	}

	updated, err := h.Inventory.UpdateEmployee(ctx, id, employee)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "update employee")
		return
	}

	h.ErrorHandler.SendSuccessResponse(w, http.StatusOK, "Employee updated successfully", updated)
}

// DeleteEmployeeHandler handles the deletion of an employee.
func (h *InventoryHandler) DeleteEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	id, valid := h.ErrorHandler.ParseAndValidateID(w, mux.Vars(r)["id"], "employee")
	if !valid {
		return
	}

	if err := h.Inventory.DeleteEmployee(ctx, id); err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "delete employee")
		return
	}

	h.ErrorHandler.SendSuccessResponse(w, http.StatusOK, "Employee deleted successfully", map[string]interface{}{"id": id})
}

// AssignComputerHandler gives a computer to an employee.
func (h *InventoryHandler) AssignComputerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	vars := mux.Vars(r)
	employeeID, valid := h.ErrorHandler.ParseAndValidateID(w, vars["id"], "employee")
	if !valid {
		return
	}
	computerID, valid := h.ErrorHandler.ParseAndValidateID(w, vars["computer_id"], "computer")
	if !valid {
		return
	}

	employee, err := h.Inventory.AssignComputer(ctx, employeeID, computerID)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "assign computer")
		return
	}

	h.ErrorHandler.SendSuccessResponse(w, http.StatusOK, "Computer successfully assigned to employee", employee)
}

// UnassignEmployeeHandler takes the computer away from an employee.
func (h *InventoryHandler) UnassignEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	id, valid := h.ErrorHandler.ParseAndValidateID(w, mux.Vars(r)["id"], "employee")
	if !valid {
		return
	}

	changed, err := h.Inventory.UnassignEmployee(ctx, id)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "unassign computer")
		return
	}

	message := "Computer successfully removed from employee"
	if !changed {
		message = "Employee has no computer assigned"
	}
	h.ErrorHandler.SendSuccessResponse(w, http.StatusOK, message, map[string]interface{}{
		"employee_id": id,
		"unassigned":  changed,
	})
}

func (h *InventoryHandler) sendEmployeePage(w http.ResponseWriter, r *http.Request, employees []model.Employee, extra map[string]interface{}) {
	params := h.ResponseHelper.ParsePaginationParams(r)
	meta := h.ResponseHelper.CalculatePaginationMeta(params, len(employees))
	data := h.ResponseHelper.CreatePaginatedListResponseData("employees", Page(employees, params), meta, extra)
	h.ErrorHandler.SendJSONResponse(w, http.StatusOK, data)
}
