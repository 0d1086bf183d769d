package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dispatch/internal/service"
)

// DriverHandler handles driver availability endpoints.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// HeartbeatRequest is the HTTP request body for a location heartbeat.
type HeartbeatRequest struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Heading float64 `json:"heading"`
}

// OnlineRequest is the HTTP request body for the online toggle.
type OnlineRequest struct {
	Online bool `json:"online"`
}

// Heartbeat handles POST /v1/drivers/location
func (h *DriverHandler) Heartbeat(c *gin.Context) {
	userID, _ := caller(c)

	var req HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.driverService.Heartbeat(c.Request.Context(), userID, req.Lat, req.Lng, req.Heading); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NearbyDriverResponse is one driver in a nearby-drivers result.
type NearbyDriverResponse struct {
	DriverID string  `json:"driver_id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// Nearby handles GET /v1/drivers/nearby
func (h *DriverHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat and lng query parameters are required"})
		return
	}
	radiusKm, _ := strconv.ParseFloat(c.Query("radius_km"), 64)

	drivers, err := h.driverService.NearbyDrivers(c.Request.Context(), lat, lng, radiusKm)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]NearbyDriverResponse, 0, len(drivers))
	for _, d := range drivers {
		resp = append(resp, NearbyDriverResponse{DriverID: d.DriverID, Lat: d.Lat, Lng: d.Lng})
	}
	c.JSON(http.StatusOK, gin.H{"drivers": resp})
}

// SetOnline handles POST /v1/drivers/online
func (h *DriverHandler) SetOnline(c *gin.Context) {
	userID, _ := caller(c)

	var req OnlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.driverService.SetOnline(c.Request.Context(), userID, req.Online); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
