package router

import (
	"net/http"

	"computer-inventory/internal/config"
	"computer-inventory/internal/handler"
	"computer-inventory/internal/middleware"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter creates a new router and sets up the routes with security middleware.
func NewRouter(h handler.InventoryHandlerInterface, cfg *config.Config, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()

	securityMW := middleware.NewSecurityMiddleware(&cfg.Security)
	loggingMW := middleware.NewLoggingMiddleware(logger)
	authMW := middleware.NewAuthMiddleware(cfg.Security.JWTSecret, logger)

	// Outermost first: the request id and client IP must exist before
	// anything logs or rate limits.
	r.Use(middleware.RequestID)
	r.Use(securityMW.TrustedProxy)
	r.Use(loggingMW.LogRequests)
	r.Use(securityMW.SecurityHeaders)
	r.Use(securityMW.CORS)
	r.Use(securityMW.RateLimit)
	r.Use(securityMW.RequestTimeout)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW.RequireToken)

	api.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	// Employees. Static paths are registered before {id}.
	api.HandleFunc("/employees", h.ListEmployeesHandler).Methods(http.MethodGet)
	api.HandleFunc("/employees", h.CreateEmployeeHandler).Methods(http.MethodPost)
	api.HandleFunc("/employees/search", h.SearchEmployeesHandler).Methods(http.MethodGet)
	api.HandleFunc("/employees/{id:[0-9]+}", h.GetEmployeeHandler).Methods(http.MethodGet)
	api.HandleFunc("/employees/{id:[0-9]+}", h.UpdateEmployeeHandler).Methods(http.MethodPut)
	api.HandleFunc("/employees/{id:[0-9]+}", h.DeleteEmployeeHandler).Methods(http.MethodDelete)

	// Assignments
	api.HandleFunc("/employees/{id:[0-9]+}/computer/{computer_id:[0-9]+}", h.AssignComputerHandler).Methods(http.MethodPut)
	api.HandleFunc("/employees/{id:[0-9]+}/computer", h.UnassignEmployeeHandler).Methods(http.MethodDelete)
	api.HandleFunc("/computers/{id:[0-9]+}/assignee", h.UnassignComputerHandler).Methods(http.MethodDelete)

	// Computers
	api.HandleFunc("/computers", h.ListComputersHandler).Methods(http.MethodGet)
	api.HandleFunc("/computers", h.CreateComputerHandler).Methods(http.MethodPost)
	api.HandleFunc("/computers/free", h.FreeComputersHandler).Methods(http.MethodGet)
	api.HandleFunc("/computers/search", h.SearchComputersHandler).Methods(http.MethodGet)
	api.HandleFunc("/computers/unique", h.CheckUniqueHandler).Methods(http.MethodGet)
	api.HandleFunc("/computers/{id:[0-9]+}", h.GetComputerHandler).Methods(http.MethodGet)
	api.HandleFunc("/computers/{id:[0-9]+}", h.UpdateComputerHandler).Methods(http.MethodPut)
	api.HandleFunc("/computers/{id:[0-9]+}", h.DeleteComputerHandler).Methods(http.MethodDelete)

	// Reports and persistence
	api.HandleFunc("/reports/ram", h.RAMReportHandler).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.StatsHandler).Methods(http.MethodGet)
	api.HandleFunc("/database/validate", h.ValidateHandler).Methods(http.MethodGet)
	api.HandleFunc("/database/save", h.SaveHandler).Methods(http.MethodPost)

	// Preflight requests are answered by the CORS middleware.
	api.PathPrefix("/").MatcherFunc(isPreflight).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

// isPreflight matches OPTIONS requests without turning other unknown paths
// into 405 responses.
func isPreflight(r *http.Request, _ *mux.RouteMatch) bool {
	return r.Method == http.MethodOptions
}
