package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// FareHandler handles advisory fare quotes and promotion validation.
type FareHandler struct {
	fareService  *service.FareService
	promoService *service.PromotionService
}

// NewFareHandler creates a new FareHandler.
func NewFareHandler(fareService *service.FareService, promoService *service.PromotionService) *FareHandler {
	return &FareHandler{
		fareService:  fareService,
		promoService: promoService,
	}
}

// QuoteRequest is the HTTP request body for a fare quote. Distance and
// duration are optional when a routing oracle is configured.
type QuoteRequest struct {
	PickupLat      float64 `json:"pickup_lat"`
	PickupLng      float64 `json:"pickup_lng"`
	DestinationLat float64 `json:"destination_lat"`
	DestinationLng float64 `json:"destination_lng"`
	DistanceKm     float64 `json:"distance_km,omitempty"`
	DurationMin    float64 `json:"duration_min,omitempty"`
	PromotionCode  string  `json:"promotion_code,omitempty"`
}

// QuoteResponse is the HTTP response for a fare quote.
type QuoteResponse struct {
	Fare              float64 `json:"fare"`
	Discount          float64 `json:"discount"`
	Charged           float64 `json:"charged"`
	FixedRoute        bool    `json:"fixed_route"`
	PickupZoneID      string  `json:"pickup_zone_id,omitempty"`
	DestinationZoneID string  `json:"destination_zone_id,omitempty"`
	PromotionID       string  `json:"promotion_id,omitempty"`
}

// ValidatePromotionRequest is the HTTP request body for promotion
// validation.
type ValidatePromotionRequest struct {
	Code string `json:"code"`
}

// PromotionResponse is the HTTP response for a validated promotion.
type PromotionResponse struct {
	ID        string  `json:"id"`
	Code      string  `json:"code"`
	Type      string  `json:"type"`
	Value     float64 `json:"value"`
	ExpiresAt string  `json:"expires_at"`
}

// Quote handles POST /v1/fares/quote. Quotes are advisory; the
// authoritative fare is the one persisted when the ride is created.
func (h *FareHandler) Quote(c *gin.Context) {
	userID, _ := caller(c)

	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var promo *domain.Promotion
	if req.PromotionCode != "" {
		validated, err := h.promoService.Validate(c.Request.Context(), req.PromotionCode, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		promo = validated
	}

	fare, err := h.fareService.Quote(c.Request.Context(), service.QuoteInput{
		PickupLat:      req.PickupLat,
		PickupLng:      req.PickupLng,
		DestinationLat: req.DestinationLat,
		DestinationLng: req.DestinationLng,
		DistanceKm:     req.DistanceKm,
		DurationMin:    req.DurationMin,
	}, promo)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := QuoteResponse{
		Fare:              fare.Amount,
		Discount:          fare.Discount,
		Charged:           fare.Charged,
		FixedRoute:        fare.FixedRoute,
		PickupZoneID:      fare.PickupZoneID,
		DestinationZoneID: fare.DestinationZoneID,
	}
	if promo != nil {
		resp.PromotionID = promo.ID
	}
	respondJSON(c, http.StatusOK, resp)
}

// ValidatePromotion handles POST /v1/promotions/validate
func (h *FareHandler) ValidatePromotion(c *gin.Context) {
	userID, _ := caller(c)

	var req ValidatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	promo, err := h.promoService.Validate(c.Request.Context(), req.Code, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, PromotionResponse{
		ID:        promo.ID,
		Code:      promo.Code,
		Type:      string(promo.Type),
		Value:     promo.Value,
		ExpiresAt: promo.ExpiresAt.Format(time.RFC3339),
	})
}
