package handler

import (
	"net/http"

	"go.uber.org/zap"
)

// RAMReportHandler lists computers with strictly less RAM than ?below=.
func (h *InventoryHandler) RAMReportHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	below, ok := h.ErrorHandler.ParseIntQuery(w, r, "below")
	if !ok {
		return
	}

	computers, err := h.Inventory.RAMReport(ctx, below)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "build RAM report")
		return
	}

	h.sendComputerPage(w, r, computers, map[string]interface{}{"below": below})
}

func (h *InventoryHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	stats, err := h.Inventory.Stats(ctx)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "compute statistics")
		return
	}

	h.ErrorHandler.SendJSONResponse(w, http.StatusOK, stats)
}

// ValidateHandler runs the full validation sweep without saving.
func (h *InventoryHandler) ValidateHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	violations, err := h.Inventory.Violations(ctx)
	if err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "validate inventory")
		return
	}
	if violations == nil {
		violations = []string{}
	}

	h.ErrorHandler.SendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"valid":      len(violations) == 0,
		"violations": violations,
	})
}

// SaveHandler writes the inventory to its file.
func (h *InventoryHandler) SaveHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, SaveTimeout)
	defer cancel()

	if err := h.Inventory.Save(ctx); err != nil {
		h.ErrorHandler.HandleServiceError(w, r, err, "save inventory")
		return
	}

	h.Logger.Info("Inventory saved over HTTP", zap.String("path", h.Inventory.Path()))
	h.ErrorHandler.SendSuccessResponse(w, http.StatusOK, "Inventory saved successfully", map[string]interface{}{
		"path": h.Inventory.Path(),
	})
}
