package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidPassengerID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidPickup),
		errors.Is(err, service.ErrInvalidDestination),
		errors.Is(err, service.ErrInvalidFare),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidPromotionCode),
		errors.Is(err, service.ErrRouteUnavailable):
		return http.StatusBadRequest

	// Conflict errors - recoverable by re-polling current state
	case errors.Is(err, service.ErrPassengerHasActiveRide),
		errors.Is(err, service.ErrDriverHasActiveRide),
		errors.Is(err, service.ErrRideAlreadyAccepted),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrRideNotActive),
		errors.Is(err, service.ErrPromotionInactive),
		errors.Is(err, service.ErrPromotionExpired),
		errors.Is(err, service.ErrPromotionAlreadyUsed):
		return http.StatusConflict

	// Authorization errors
	case errors.Is(err, service.ErrNotRideParticipant),
		errors.Is(err, service.ErrDriverNotAssigned),
		errors.Is(err, service.ErrDriverNotEligible):
		return http.StatusForbidden

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
