package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Constants for timeouts and request limits
const (
	DefaultTimeout = 10 * time.Second
	SaveTimeout    = 30 * time.Second
	MaxBodyBytes   = 1 << 20
)

// InventoryHandler handles the HTTP requests for employees, computers and
// the inventory file.
type InventoryHandler struct {
	Inventory Inventory
	Logger    *zap.Logger

	ErrorHandler   *ErrorHandler
	ResponseHelper *ResponseHelper
}

// NewInventoryHandler creates a new InventoryHandler with dependencies and helpers
func NewInventoryHandler(inventory Inventory, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &InventoryHandler{
		Inventory:      inventory,
		Logger:         logger,
		ErrorHandler:   NewErrorHandler(logger),
		ResponseHelper: NewResponseHelper(),
	}
}

// HealthHandler provides a health check endpoint
func (h *InventoryHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	healthData := h.ResponseHelper.CreateHealthCheckData(h.Inventory.IsLoaded(), h.Inventory.IsDirty())
	h.ErrorHandler.SendSuccessResponse(w, http.StatusOK, "Service is healthy", healthData)
}

// decodeBody reads a JSON body into dst and answers 400 on failure.
func (h *InventoryHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.ErrorHandler.HandleJSONDecodeError(w, err)
		return false
	}
	return true
}
