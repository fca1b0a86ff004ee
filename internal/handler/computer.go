package handler

import (
	"net/http"

	"computer-inventory/internal/model"
	"computer-inventory/pkg/errors"

	"github.com/gorilla/mux"
)

// ListComputersHandler returns one page of computers in insertion order.
func (h *InventoryHandler) ListComputersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	computers, err := h.Inventory.ListComputers(ctx)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "list computers")
		return
	}

	h.sendComputerPage(w, r, computers, nil)
}

// CreateComputerHandler handles the creation of a new computer.
func (h *InventoryHandler) CreateComputerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	var computer model.Computer
	if !h.decodeBody(w, r, &computer) {
		return
	}

	created, err := h.Inventory.CreateComputer(ctx, computer)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "create computer")
		return
	}

	h.ErrorHandler.SendSuccessResponse(w, http.StatusCreated, "Computer created successfully", created)
}

// FreeComputersHandler lists computers nobody holds.
func (h *InventoryHandler) FreeComputersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	computers, err := h.Inventory.FreeComputers(ctx)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "list free computers")
		return
	}

	h.sendComputerPage(w, r, computers, nil)
}

// SearchComputersHandler matches inventory as a case-sensitive substring of
// the inventory number.
func (h *InventoryHandler) SearchComputersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	inventory := r.URL.Query().Get("inventory")
	computers, err := h.Inventory.SearchComputers(ctx, inventory)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "search computers")
		return
	}

	h.sendComputerPage(w, r, computers, map[string]interface{}{"inventory": inventory})
}

// CheckUniqueHandler reports whether an inventory number and a serial number
// are still free to use.
func (h *InventoryHandler) CheckUniqueHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	query := r.URL.Query()
	inventoryNumber := query.Get("inventory_number")
	serialNumber := query.Get("serial_number")
	if inventoryNumber == "" && serialNumber == "" {
		h.ErrorHandler.HandleServiceError(w, r, errors.BadRequestError("inventory_number or serial_number is required"), "check uniqueness")
		return
	}

	inventoryFree, serialFree, err := h.Inventory.CheckUnique(ctx, inventoryNumber, serialNumber)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "check uniqueness")
		return
	}

	data := map[string]interface{}{}
	if inventoryNumber != "" {
		data["inventory_number"] = inventoryNumber
		data["inventory_number_unique"] = inventoryFree
	}
	if serialNumber != "" {
		data["serial_number"] = serialNumber
		data["serial_number_unique"] = serialFree
	}
	h.ErrorHandler.SendJSONResponse(w, http.StatusOK, data)
}

// GetComputerHandler handles the retrieval of a single computer by ID.
func (h *InventoryHandler) GetComputerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	id, valid := h.ErrorHandler.ParseAndValidateID(w, mux.Vars(r)["id"], "computer")
	if !valid {
		return
	}

	computer, err := h.Inventory.GetComputer(ctx, id)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "retrieve computer")
		return
	}

	h.ErrorHandler.SendJSONResponse(w, http.StatusOK, computer)
}

// UpdateComputerHandler handles the update of a computer.
func (h *InventoryHandler) UpdateComputerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	id, valid := h.ErrorHandler.ParseAndValidateID(w, mux.Vars(r)["id"], "computer")
	if !valid {
		return
	}

	var computer model.Computer
	if !h.decodeBody(w, r, &computer) {
		return
	}

	updated, err := h.Inventory.UpdateComputer(ctx, id, computer)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "update computer")
		return
	}

	h.ErrorHandler.SendSuccessResponse(w, http.StatusOK, "Computer updated successfully", updated)
}

// DeleteComputerHandler handles the deletion of a computer. Whoever held it
// loses the assignment.
func (h *InventoryHandler) DeleteComputerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	id, valid := h.ErrorHandler.ParseAndValidateID(w, mux.Vars(r)["id"], "computer")
	if !valid {
		return
	}

	if err := h.Inventory.DeleteComputer(ctx, id); err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "delete computer")
		return
	}

	h.ErrorHandler.SendSuccessResponse(w, http.StatusOK, "Computer deleted successfully", map[string]interface{}{"id": id})
}

// UnassignComputerHandler frees a computer from whoever holds it.
func (h *InventoryHandler) UnassignComputerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	id, valid := h.ErrorHandler.ParseAndValidateID(w, mux.Vars(r)["id"], "computer")
	if !valid {
		return
	}

	changed, err := h.Inventory.UnassignComputer(ctx, id)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "unassign computer")
		return
	}

	message := "Computer successfully unassigned"
	if !changed {
		message = "Computer is not assigned"
	}
	h.ErrorHandler.SendSuccessResponse(w, http.StatusOK, message, map[string]interface{}{
		"computer_id": id,
		"unassigned":  changed,
	})
}

func (h *InventoryHandler) sendComputerPage(w http.ResponseWriter, r *http.Request, computers []model.Computer, extra map[string]interface{}) {
	params := h.ResponseHelper.ParsePaginationParams(r)
	meta := h.ResponseHelper.CalculatePaginationMeta(params, len(computers))
	data := h.ResponseHelper.CreatePaginatedListResponseData("computers", Page(computers, params), meta, extra)
	h.ErrorHandler.SendJSONResponse(w, http.StatusOK, data)
}
