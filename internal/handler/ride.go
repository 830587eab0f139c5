package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/middleware"
	"dispatch/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rides     *service.RideService
	lifecycle *service.LifecycleService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rides *service.RideService, lifecycle *service.LifecycleService) *RideHandler {
	return &RideHandler{rides: rides, lifecycle: lifecycle}
}

// EstimateRequest is the HTTP request body for a fare estimate.
type EstimateRequest struct {
	PickupLat      float64 `json:"pickup_lat"`
	PickupLng      float64 `json:"pickup_lng"`
	DestinationLat float64 `json:"destination_lat"`
	DestinationLng float64 `json:"destination_lng"`
}

// EstimateResponse is the HTTP response for a fare estimate.
type EstimateResponse struct {
	EstimatedFare   int64   `json:"estimated_fare"`
	Currency        string  `json:"currency"`
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes int     `json:"duration_minutes"`
	SurgeMultiplier float64 `json:"surge_multiplier"`
}

// CreateRideRequest is the HTTP request body for creating a ride.
type CreateRideRequest struct {
	PickupLat          float64 `json:"pickup_lat"`
	PickupLng          float64 `json:"pickup_lng"`
	PickupAddress      string  `json:"pickup_address,omitempty"`
	DestinationLat     float64 `json:"destination_lat"`
	DestinationLng     float64 `json:"destination_lng"`
	DestinationAddress string  `json:"destination_address,omitempty"`
}

// UpdateStatusRequest is the HTTP request body for a status update.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID                   string  `json:"id"`
	RiderID              string  `json:"rider_id"`
	DriverID             string  `json:"driver_id,omitempty"`
	PickupLat            float64 `json:"pickup_lat"`
	PickupLng            float64 `json:"pickup_lng"`
	PickupAddress        string  `json:"pickup_address,omitempty"`
	DestinationLat       float64 `json:"destination_lat"`
	DestinationLng       float64 `json:"destination_lng"`
	DestinationAddress   string  `json:"destination_address,omitempty"`
	Status               string  `json:"status"`
	Fare                 int64   `json:"fare,omitempty"`
	EstimatedFare        int64   `json:"estimated_fare"`
	EstimatedDurationMin int     `json:"estimated_duration_min"`
	EstimatedDistanceKm  float64 `json:"estimated_distance_km"`
	SurgeMultiplier      float64 `json:"surge_multiplier"`
	RouteDeviation       bool    `json:"route_deviation"`
	SOSTriggered         bool    `json:"sos_triggered"`
	CreatedAt            string  `json:"created_at"`
	StartedAt            string  `json:"started_at,omitempty"`
	CompletedAt          string  `json:"completed_at,omitempty"`
	CancelledAt          string  `json:"cancelled_at,omitempty"`
	CancelReason         string  `json:"cancel_reason,omitempty"`
}

func toRideResponse(r *domain.Ride) RideResponse {
	return RideResponse{
		ID:                   r.ID,
		RiderID:              r.RiderID,
		DriverID:             r.DriverID,
		PickupLat:            r.PickupLat,
		PickupLng:            r.PickupLng,
		PickupAddress:        r.PickupAddress,
		DestinationLat:       r.DestinationLat,
		DestinationLng:       r.DestinationLng,
		DestinationAddress:   r.DestinationAddress,
		Status:               string(r.Status),
		Fare:                 r.Fare,
		EstimatedFare:        r.EstimatedFare,
		EstimatedDurationMin: r.EstimatedDurationMin,
		EstimatedDistanceKm:  r.EstimatedDistanceKm,
		SurgeMultiplier:      r.SurgeMultiplier,
		RouteDeviation:       r.RouteDeviation,
		SOSTriggered:         r.SOSTriggered,
		CreatedAt:            formatTime(r.CreatedAt),
		StartedAt:            formatTime(r.StartedAt),
		CompletedAt:          formatTime(r.CompletedAt),
		CancelledAt:          formatTime(r.CancelledAt),
		CancelReason:         r.CancelReason,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Estimate handles POST /v1/rides/estimate
func (h *RideHandler) Estimate(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	est, err := h.rides.Estimate(c.Request.Context(), req.PickupLat, req.PickupLng, req.DestinationLat, req.DestinationLng)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, EstimateResponse{
		EstimatedFare:   est.Fare,
		Currency:        domain.DefaultCurrency,
		DistanceKm:      est.DistanceKm,
		DurationMinutes: est.DurationMinutes,
		SurgeMultiplier: est.SurgeMultiplier,
	})
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return
	}

	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rides.CreateRide(c.Request.Context(), caller, service.CreateRideInput{
		PickupLat:          req.PickupLat,
		PickupLng:          req.PickupLng,
		PickupAddress:      req.PickupAddress,
		DestinationLat:     req.DestinationLat,
		DestinationLng:     req.DestinationLng,
		DestinationAddress: req.DestinationAddress,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return
	}

	ride, err := h.rides.GetRide(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// UpdateStatus handles PATCH /v1/rides/:id/status
func (h *RideHandler) UpdateStatus(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if !domain.ValidRideStatus(req.Status) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown ride status"})
		return
	}

	ride, err := h.lifecycle.UpdateStatus(c.Request.Context(), caller, c.Param("id"), domain.RideStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return
	}

	var req CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.lifecycle.Cancel(c.Request.Context(), caller, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// TriggerSOS handles POST /v1/rides/:id/sos
func (h *RideHandler) TriggerSOS(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return
	}

	ride, err := h.lifecycle.TriggerSOS(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// FlagDeviation handles POST /v1/rides/:id/deviation
func (h *RideHandler) FlagDeviation(c *gin.Context) {
	ride, err := h.lifecycle.FlagRouteDeviation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}
