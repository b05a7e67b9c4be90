package screen

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/screening"
	"github.com/Ramsey-B/thistle/pkg/utils"
)

// Screener screens a single customer against the loaded watchlists
type Screener interface {
	Screen(ctx context.Context, customer models.Record) (*screening.ScreenResult, error)
}

// Handler serves ad-hoc screening requests
type Handler struct {
	screener Screener
	metrics  *metrics.Metrics
}

// NewHandler creates a screening handler. m may be nil.
func NewHandler(screener Screener, m *metrics.Metrics) *Handler {
	return &Handler{screener: screener, metrics: m}
}

// Register registers screening routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("/screen", h.Screen)
}

// ScreenRequest is the request body for screening one customer
type ScreenRequest struct {
	ID                  int64   `json:"id"`
	FirstName           *string `json:"first_name" validate:"required_without=LastName"`
	LastName            *string `json:"last_name" validate:"required_without=FirstName"`
	DateOfBirth         *string `json:"date_of_birth"`
	Street              *string `json:"street"`
	HouseNumber         *string `json:"house_number"`
	HouseNumberAddendum *string `json:"house_number_addendum"`
	Zip                 *string `json:"zip" validate:"omitempty,max=10"`
	City                *string `json:"city"`
}

// Record converts the request into a raw customer record
func (r ScreenRequest) Record() models.Record {
	return models.Record{
		ID:                  r.ID,
		FirstName:           r.FirstName,
		LastName:            r.LastName,
		DateOfBirth:         r.DateOfBirth,
		Street:              r.Street,
		HouseNumber:         r.HouseNumber,
		HouseNumberAddendum: r.HouseNumberAddendum,
		Zip:                 r.Zip,
		City:                r.City,
	}
}

// ScreenResponse is the screening outcome
type ScreenResponse struct {
	Customer models.Record        `json:"customer"`
	Matched  bool                 `json:"matched"`
	Matches  []models.ScoredMatch `json:"matches"`
}

// Screen normalizes the posted customer and runs both cascades
func (h *Handler) Screen(c echo.Context) error {
	req, err := utils.BindRequest[ScreenRequest](c)
	if err != nil {
		h.count("invalid")
		return err
	}

	res, err := h.screener.Screen(c.Request().Context(), req.Record())
	if err != nil {
		h.count("error")
		return err
	}

	outcome := "clear"
	if len(res.Matches) > 0 {
		outcome = "matched"
	}
	h.count(outcome)

	matches := res.Matches
	if matches == nil {
		matches = []models.ScoredMatch{}
	}
	return c.JSON(http.StatusOK, ScreenResponse{
		Customer: res.Customer,
		Matched:  len(matches) > 0,
		Matches:  matches,
	})
}

func (h *Handler) count(outcome string) {
	if h.metrics != nil {
		h.metrics.ScreenRequestsTotal.WithLabelValues(outcome).Inc()
	}
}
