package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// RideHandler handles HTTP requests for the ride lifecycle and the
// polling read surface.
type RideHandler struct {
	rideService *service.RideService
	feedService *service.FeedService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService, feedService *service.FeedService) *RideHandler {
	return &RideHandler{
		rideService: rideService,
		feedService: feedService,
	}
}

// RequestRideRequest is the HTTP request body for requesting a ride.
type RequestRideRequest struct {
	PickupText      string  `json:"pickup_text"`
	PickupLat       float64 `json:"pickup_lat"`
	PickupLng       float64 `json:"pickup_lng"`
	DestinationText string  `json:"destination_text"`
	DestinationLat  float64 `json:"destination_lat"`
	DestinationLng  float64 `json:"destination_lng"`
	DistanceKm      float64 `json:"distance_km"`
	Fare            float64 `json:"fare"`
	PromotionID     string  `json:"promotion_id,omitempty"`
}

// AdvanceStatusRequest is the HTTP request body for advancing ride
// status.
type AdvanceStatusRequest struct {
	Status string `json:"status"`
}

// RideResponse is the HTTP representation of a ride snapshot.
type RideResponse struct {
	ID              string  `json:"id"`
	PassengerID     string  `json:"passenger_id"`
	DriverID        string  `json:"driver_id,omitempty"`
	PickupText      string  `json:"pickup_text"`
	PickupLat       float64 `json:"pickup_lat"`
	PickupLng       float64 `json:"pickup_lng"`
	DestinationText string  `json:"destination_text"`
	DestinationLat  float64 `json:"destination_lat"`
	DestinationLng  float64 `json:"destination_lng"`
	DistanceKm      float64 `json:"distance_km"`
	Fare            float64 `json:"fare"`
	PromotionID     string  `json:"promotion_id,omitempty"`
	Status          string  `json:"status"`
	DriverLat       float64 `json:"driver_lat,omitempty"`
	DriverLng       float64 `json:"driver_lng,omitempty"`
	DriverHeading   float64 `json:"driver_heading,omitempty"`
	CreatedAt       string  `json:"created_at"`
	CancelledAt     string  `json:"cancelled_at,omitempty"`
	CancelledBy     string  `json:"cancelled_by,omitempty"`
}

func toRideResponse(ride *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:              ride.ID,
		PassengerID:     ride.PassengerID,
		DriverID:        ride.DriverID,
		PickupText:      ride.PickupText,
		PickupLat:       ride.PickupLat,
		PickupLng:       ride.PickupLng,
		DestinationText: ride.DestinationText,
		DestinationLat:  ride.DestinationLat,
		DestinationLng:  ride.DestinationLng,
		DistanceKm:      ride.DistanceKm,
		Fare:            ride.Fare,
		PromotionID:     ride.PromotionID,
		Status:          string(ride.Status),
		DriverLat:       ride.DriverLat,
		DriverLng:       ride.DriverLng,
		DriverHeading:   ride.DriverHeading,
		CreatedAt:       ride.CreatedAt.Format(time.RFC3339),
	}
	if !ride.CancelledAt.IsZero() {
		resp.CancelledAt = ride.CancelledAt.Format(time.RFC3339)
		resp.CancelledBy = ride.CancelledBy
	}
	return resp
}

// RequestRide handles POST /v1/rides
func (h *RideHandler) RequestRide(c *gin.Context) {
	userID, _ := caller(c)

	var req RequestRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.RequestRide(c.Request.Context(), service.RequestRideInput{
		PassengerID:     userID,
		PickupText:      req.PickupText,
		PickupLat:       req.PickupLat,
		PickupLng:       req.PickupLng,
		DestinationText: req.DestinationText,
		DestinationLat:  req.DestinationLat,
		DestinationLng:  req.DestinationLng,
		DistanceKm:      req.DistanceKm,
		Fare:            req.Fare,
		PromotionID:     req.PromotionID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// AcceptRide handles POST /v1/rides/:id/accept
func (h *RideHandler) AcceptRide(c *gin.Context) {
	userID, _ := caller(c)

	ride, err := h.rideService.AcceptRide(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// AdvanceStatus handles POST /v1/rides/:id/status
func (h *RideHandler) AdvanceStatus(c *gin.Context) {
	userID, _ := caller(c)

	var req AdvanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.AdvanceStatus(c.Request.Context(), userID, c.Param("id"), domain.RideStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	userID, role := caller(c)

	ride, err := h.rideService.CancelRide(c.Request.Context(), userID, role, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// OpenRequests handles GET /v1/rides/open
func (h *RideHandler) OpenRequests(c *gin.Context) {
	userID, _ := caller(c)

	rides, err := h.feedService.OpenRequests(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		response = append(response, toRideResponse(r))
	}
	respondJSON(c, http.StatusOK, response)
}

// ActiveRide handles GET /v1/rides/active
func (h *RideHandler) ActiveRide(c *gin.Context) {
	userID, role := caller(c)

	ride, err := h.feedService.ActiveRideFor(c.Request.Context(), userID, role)
	if err != nil {
		respondError(c, err)
		return
	}
	if ride == nil {
		c.Status(http.StatusNoContent)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}
