package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pressroom-labs/catalog-allocation-go/internal/application"
	"github.com/pressroom-labs/catalog-allocation-go/internal/config"
	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

// Server groups the services behind the JSON API.
type Server struct {
	cfg         config.Config
	atp         *application.AtpService
	reservation *application.ReservationService
	allocation  *application.AllocationService
	sweeper     *application.SweeperService
	statistics  *application.StatisticsService
	valuation   *application.ValuationService
	log         *zap.Logger
}

func NewServer(
	cfg config.Config,
	atp *application.AtpService,
	reservation *application.ReservationService,
	allocation *application.AllocationService,
	sweeper *application.SweeperService,
	statistics *application.StatisticsService,
	valuation *application.ValuationService,
	log *zap.Logger,
) *Server {
	return &Server{
		cfg:         cfg,
		atp:         atp,
		reservation: reservation,
		allocation:  allocation,
		sweeper:     sweeper,
		statistics:  statistics,
		valuation:   valuation,
		log:         log,
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/atp/", s.handleAtp)
	mux.HandleFunc("/api/allocations", s.handleAllocate)
	mux.HandleFunc("/api/reservations", s.handleReserve)
	mux.HandleFunc("/api/reservations/", s.handleReservationSubroutes)
	mux.HandleFunc("/api/statistics/", s.handleStatistics)
	mux.HandleFunc("/api/valuation/", s.handleValuation)
	mux.HandleFunc("/api/maintenance/cleanup", s.handleCleanup)
	mux.HandleFunc("/api/maintenance/purge", s.handlePurge)
	mux.HandleFunc("/swagger.json", s.handleSwaggerJson)
}

// ===== request/response shapes =====

type healthResponse struct {
	Status string `json:"status"`
}

type warehouseAtpResponse struct {
	WarehouseID   uuid.UUID `json:"warehouseId"`
	WarehouseName string    `json:"warehouseName"`
	AtpQuantity   int       `json:"atpQuantity"`
	CurrentStock  int       `json:"currentStock"`
	ReservedStock int       `json:"reservedStock"`
	MinStockLevel int       `json:"minStockLevel"`
}

type multiAtpResponse struct {
	TitleID         uuid.UUID              `json:"titleId"`
	WarehouseAtps   []warehouseAtpResponse `json:"warehouseAtps"`
	TotalAtp        int                    `json:"totalAtp"`
	AggregatedAtUtc time.Time              `json:"aggregatedAtUtc"`
}

type reserveRequest struct {
	TitleID     uuid.UUID  `json:"titleId"`
	WarehouseID uuid.UUID  `json:"warehouseId"`
	Quantity    int        `json:"quantity"`
	OrderID     uuid.UUID  `json:"orderId"`
	CustomerID  uuid.UUID  `json:"customerId"`
	Priority    string     `json:"priority,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAtUtc,omitempty"`
}

type reservationResponse struct {
	ReservationID uuid.UUID `json:"reservationId"`
	TitleID       uuid.UUID `json:"titleId"`
	WarehouseID   uuid.UUID `json:"warehouseId"`
	Quantity      int       `json:"quantity"`
	OrderID       uuid.UUID `json:"orderId"`
	CustomerID    uuid.UUID `json:"customerId"`
	Priority      string    `json:"priority"`
	Status        string    `json:"status"`
	ExpiresAtUtc  time.Time `json:"expiresAtUtc"`
	CreatedAtUtc  time.Time `json:"createdAtUtc"`
}

type reserveResponse struct {
	Success      bool                 `json:"success"`
	Message      string               `json:"message"`
	Reservation  *reservationResponse `json:"reservation,omitempty"`
	RemainingAtp int                  `json:"remainingAtp"`
}

type allocateRequest struct {
	TitleID               uuid.UUID   `json:"titleId"`
	Quantity              int         `json:"quantity"`
	OrderID               uuid.UUID   `json:"orderId"`
	CustomerID            uuid.UUID   `json:"customerId"`
	CustomerTier          string      `json:"customerTier,omitempty"`
	PreferredWarehouseIDs []uuid.UUID `json:"preferredWarehouseIds,omitempty"`
	MaxWarehouses         int         `json:"maxWarehouses,omitempty"`
	ExpiresAt             *time.Time  `json:"expiresAtUtc,omitempty"`
}

type allocationResponse struct {
	Success             bool                          `json:"success"`
	TotalAllocated      int                           `json:"totalAllocated"`
	UnallocatedQuantity int                           `json:"unallocatedQuantity"`
	Allocations         []warehouseAllocationResponse `json:"allocations"`
	Recommendations     []string                      `json:"recommendations,omitempty"`
}

type warehouseAllocationResponse struct {
	WarehouseID   uuid.UUID       `json:"warehouseId"`
	WarehouseName string          `json:"warehouseName"`
	Quantity      int             `json:"quantity"`
	ReservationID uuid.UUID       `json:"reservationId"`
	UnitCost      decimal.Decimal `json:"unitCost"`
}

type releaseRequest struct {
	Reason string `json:"reason"`
}

type extendRequest struct {
	NewExpiresAtUtc time.Time `json:"newExpiresAtUtc"`
}

type purgeRequest struct {
	MaxAgeDays int `json:"maxAgeDays"`
}

// ===== handlers =====

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// GET /api/atp/{titleId} or /api/atp/{titleId}/{warehouseId}
func (s *Server) handleAtp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/atp/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "titleId is required", http.StatusBadRequest)
		return
	}
	titleID, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, "titleId is invalid", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if len(parts) == 1 {
		multi, err := s.atp.CalculateMultiWarehouseAtp(ctx, titleID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp := multiAtpResponse{
			TitleID:         multi.TitleID,
			WarehouseAtps:   make([]warehouseAtpResponse, 0, len(multi.WarehouseAtps)),
			TotalAtp:        multi.TotalAtp,
			AggregatedAtUtc: multi.AggregatedAtUtc,
		}
		for _, wa := range multi.WarehouseAtps {
			resp.WarehouseAtps = append(resp.WarehouseAtps, toWarehouseAtpResponse(wa))
		}
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	warehouseID, err := uuid.Parse(parts[1])
	if err != nil {
		http.Error(w, "warehouseId is invalid", http.StatusBadRequest)
		return
	}
	atp, err := s.atp.CalculateAtp(ctx, titleID, warehouseID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toWarehouseAtpResponse(*atp))
}

func toWarehouseAtpResponse(wa domain.WarehouseAtp) warehouseAtpResponse {
	return warehouseAtpResponse{
		WarehouseID:   wa.WarehouseID,
		WarehouseName: wa.WarehouseName,
		AtpQuantity:   wa.AtpQuantity,
		CurrentStock:  wa.CurrentStock,
		ReservedStock: wa.ReservedStock,
		MinStockLevel: wa.MinStockLevel,
	}
}

// POST /api/allocations
func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req allocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.TitleID == uuid.Nil {
		http.Error(w, "titleId is required", http.StatusBadRequest)
		return
	}

	result, err := s.allocation.AllocateInventory(r.Context(), domain.AllocationRequest{
		TitleID:               req.TitleID,
		Quantity:              req.Quantity,
		OrderID:               req.OrderID,
		CustomerID:            req.CustomerID,
		CustomerTier:          domain.CustomerTier(req.CustomerTier),
		PreferredWarehouseIDs: req.PreferredWarehouseIDs,
		MaxWarehouses:         req.MaxWarehouses,
		ExpiresAtUtc:          req.ExpiresAt,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := allocationResponse{
		Success:             result.Success,
		TotalAllocated:      result.TotalAllocated,
		UnallocatedQuantity: result.UnallocatedQuantity,
		Allocations:         make([]warehouseAllocationResponse, 0, len(result.Allocations)),
		Recommendations:     result.Recommendations,
	}
	for _, a := range result.Allocations {
		resp.Allocations = append(resp.Allocations, warehouseAllocationResponse{
			WarehouseID:   a.WarehouseID,
			WarehouseName: a.WarehouseName,
			Quantity:      a.Quantity,
			ReservationID: a.ReservationID,
			UnitCost:      a.UnitCost,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// POST /api/reservations
func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	result, err := s.reservation.Reserve(r.Context(), application.ReserveCommand{
		TitleID:     req.TitleID,
		WarehouseID: req.WarehouseID,
		Quantity:    req.Quantity,
		OrderID:     req.OrderID,
		CustomerID:  req.CustomerID,
		Priority:    domain.ReservationPriority(req.Priority),
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := reserveResponse{
		Success:      result.Success,
		Message:      result.Message,
		RemainingAtp: result.RemainingAtp,
	}
	if result.Reservation != nil {
		rr := toReservationResponse(result.Reservation)
		resp.Reservation = &rr
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func toReservationResponse(res *domain.Reservation) reservationResponse {
	return reservationResponse{
		ReservationID: res.ID,
		TitleID:       res.TitleID,
		WarehouseID:   res.WarehouseID,
		Quantity:      res.Quantity,
		OrderID:       res.OrderID,
		CustomerID:    res.CustomerID,
		Priority:      string(res.Priority),
		Status:        string(res.Status),
		ExpiresAtUtc:  res.ExpiresAtUtc,
		CreatedAtUtc:  res.CreatedAtUtc,
	}
}

// /api/reservations/active/{titleId}
// /api/reservations/{id}/release | extend | fulfill
func (s *Server) handleReservationSubroutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/reservations/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if parts[0] == "active" {
		s.handleActiveReservations(w, r, parts)
		return
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, "reservationId is invalid", http.StatusBadRequest)
		return
	}
	if len(parts) != 2 || r.Method != http.MethodPost {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	ctx := r.Context()
	switch parts[1] {
	case "release":
		var req releaseRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Reason == "" {
			req.Reason = "released by caller"
		}
		result, err := s.reservation.Release(ctx, id, req.Reason)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	case "extend":
		var req extendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewExpiresAtUtc.IsZero() {
			http.Error(w, "newExpiresAtUtc is required", http.StatusBadRequest)
			return
		}
		result, err := s.reservation.Extend(ctx, id, req.NewExpiresAtUtc)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	case "fulfill":
		result, err := s.reservation.Fulfill(ctx, id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) handleActiveReservations(w http.ResponseWriter, r *http.Request, parts []string) {
	if r.Method != http.MethodGet || len(parts) != 2 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	titleID, err := uuid.Parse(parts[1])
	if err != nil {
		http.Error(w, "titleId is invalid", http.StatusBadRequest)
		return
	}
	active, err := s.reservation.GetActiveReservations(r.Context(), titleID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := make([]reservationResponse, 0, len(active))
	for _, res := range active {
		resp = append(resp, toReservationResponse(res))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GET /api/statistics/{titleId}
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/statistics/")
	titleID, err := uuid.Parse(strings.Trim(path, "/"))
	if err != nil {
		http.Error(w, "titleId is invalid", http.StatusBadRequest)
		return
	}
	stats, err := s.statistics.GetAllocationStatistics(r.Context(), titleID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// GET /api/valuation/{titleId}/{warehouseId}?method=FIFO
func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/valuation/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 {
		http.Error(w, "titleId and warehouseId are required", http.StatusBadRequest)
		return
	}
	titleID, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, "titleId is invalid", http.StatusBadRequest)
		return
	}
	warehouseID, err := uuid.Parse(parts[1])
	if err != nil {
		http.Error(w, "warehouseId is invalid", http.StatusBadRequest)
		return
	}

	method := domain.ValuationMethod(r.URL.Query().Get("method"))
	if method == "" {
		method = domain.ValuationWeightedAverage
	}

	val, err := s.valuation.ValueInventory(r.Context(), titleID, warehouseID, method)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, val)
}

// POST /api/maintenance/cleanup
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	result, err := s.sweeper.CleanupExpiredReservations(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// POST /api/maintenance/purge
func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req purgeRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.MaxAgeDays <= 0 {
		req.MaxAgeDays = s.cfg.MaintenanceMaxAgeDays
	}
	purged, err := s.sweeper.PerformMaintenanceCleanup(r.Context(), req.MaxAgeDays)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"purged": purged})
}

func (s *Server) handleSwaggerJson(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(openAPISpec))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if domain.IsNotFound(err) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.log.Error("request failed", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("writeJSON failed", zap.Error(err))
	}
}

// Minimal OpenAPI document served at /swagger.json.
const openAPISpec = `{
  "openapi": "3.0.0",
  "info": {
    "title": "Catalog Allocation Service API",
    "version": "1.0.0"
  },
  "paths": {
    "/health": {
      "get": {"summary": "Health check", "responses": {"200": {"description": "Service is healthy"}}}
    },
    "/api/atp/{titleId}": {
      "get": {
        "summary": "Multi-warehouse available-to-promise for a title",
        "parameters": [{"name": "titleId", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
        "responses": {"200": {"description": "ATP snapshot per warehouse plus total"}}
      }
    },
    "/api/atp/{titleId}/{warehouseId}": {
      "get": {
        "summary": "Available-to-promise at one warehouse",
        "parameters": [
          {"name": "titleId", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}},
          {"name": "warehouseId", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}
        ],
        "responses": {
          "200": {"description": "ATP snapshot"},
          "404": {"description": "No inventory record for the pair"}
        }
      }
    },
    "/api/allocations": {
      "post": {
        "summary": "Allocate a quantity across warehouses",
        "responses": {"200": {"description": "Allocation result, possibly partial with recommendations"}}
      }
    },
    "/api/reservations": {
      "post": {
        "summary": "Reserve stock at one warehouse",
        "responses": {"200": {"description": "Reservation result; success false on ATP shortfall"}}
      }
    },
    "/api/reservations/{id}/release": {
      "post": {"summary": "Release an active reservation", "responses": {"200": {"description": "Release result"}}}
    },
    "/api/reservations/{id}/extend": {
      "post": {"summary": "Extend a reservation's expiration", "responses": {"200": {"description": "Extend result"}}}
    },
    "/api/reservations/{id}/fulfill": {
      "post": {"summary": "Fulfill an active reservation", "responses": {"200": {"description": "Fulfill result"}}}
    },
    "/api/reservations/active/{titleId}": {
      "get": {"summary": "List active reservations for a title", "responses": {"200": {"description": "Active reservations"}}}
    },
    "/api/statistics/{titleId}": {
      "get": {"summary": "Allocation statistics for a title", "responses": {"200": {"description": "Counts, reserved totals, top customers"}}}
    },
    "/api/valuation/{titleId}/{warehouseId}": {
      "get": {
        "summary": "Cost-layer valuation of on-hand stock",
        "parameters": [{"name": "method", "in": "query", "schema": {"type": "string", "enum": ["FIFO", "LIFO", "WEIGHTED_AVERAGE"]}}],
        "responses": {"200": {"description": "Valuation with surviving cost layers"}}
      }
    },
    "/api/maintenance/cleanup": {
      "post": {"summary": "Release expired reservations now", "responses": {"200": {"description": "Cleanup result"}}}
    },
    "/api/maintenance/purge": {
      "post": {"summary": "Purge old terminal reservations", "responses": {"200": {"description": "Purged count"}}}
    }
  }
}`
