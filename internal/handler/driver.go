package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/middleware"
	"dispatch/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	drivers *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(drivers *service.DriverService) *DriverHandler {
	return &DriverHandler{drivers: drivers}
}

// RegisterDriverRequest is the HTTP request body for registering a driver.
type RegisterDriverRequest struct {
	Name   string  `json:"name"`
	Phone  string  `json:"phone,omitempty"`
	Rating float64 `json:"rating,omitempty"`
}

// UpdateLocationRequest is the HTTP request body for a location update.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// OfferResponseRequest is the HTTP request body for answering a ride offer.
type OfferResponseRequest struct {
	RideID   string `json:"ride_id"`
	Accepted bool   `json:"accepted"`
}

// DriverResponse is the HTTP representation of a driver.
type DriverResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone,omitempty"`
	Status         string  `json:"status"`
	Rating         float64 `json:"rating"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

func toDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:             d.ID,
		Name:           d.Name,
		Phone:          d.Phone,
		Status:         string(d.Status),
		Rating:         d.Rating,
		AcceptanceRate: d.AcceptanceRate(),
	}
}

// Register handles POST /v1/drivers
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.drivers.Register(c.Request.Context(), service.RegisterDriverInput{
		Name:   req.Name,
		Phone:  req.Phone,
		Rating: req.Rating,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toDriverResponse(driver))
}

// GetDriver handles GET /v1/drivers/:id
func (h *DriverHandler) GetDriver(c *gin.Context) {
	driver, err := h.drivers.GetDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// UpdateLocation handles PUT /v1/drivers/:id/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return
	}
	driverID := c.Param("id")
	if !caller.IsAdmin() && caller.ID != driverID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "cannot update another driver's location"})
		return
	}

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.drivers.UpdateLocation(c.Request.Context(), driverID, req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GoOffline handles POST /v1/drivers/:id/offline
func (h *DriverHandler) GoOffline(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return
	}
	driverID := c.Param("id")
	if !caller.IsAdmin() && caller.ID != driverID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "cannot change another driver's availability"})
		return
	}

	if err := h.drivers.GoOffline(c.Request.Context(), driverID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// PendingOffer handles GET /v1/drivers/:id/offer
func (h *DriverHandler) PendingOffer(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return
	}
	driverID := c.Param("id")
	if !caller.IsAdmin() && caller.ID != driverID {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "cannot view another driver's offers"})
		return
	}

	rideID, ok := h.drivers.PendingOffer(c.Request.Context(), driverID)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no outstanding offer"})
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"ride_id": rideID})
}

// RespondToOffer handles POST /v1/drivers/offers/respond
func (h *DriverHandler) RespondToOffer(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return
	}

	var req OfferResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.RideID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "ride_id is required"})
		return
	}

	if err := h.drivers.RespondToOffer(c.Request.Context(), caller, req.RideID, req.Accepted); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
