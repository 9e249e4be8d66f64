package auditlog

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/farmasalud/fiscal/internal/platform/auth"
	"github.com/farmasalud/fiscal/pkg/pagination"
)

type Handler struct {
	ledger *Ledger
}

func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("/audit-log", auth.Require("audit:read"))
	read.GET("", h.ListEntries)
	read.GET("/verify", h.VerifyChain)
	read.GET("/statistics", h.Statistics)
	read.GET("/report", h.ComplianceReport)
}

func (h *Handler) ListEntries(c echo.Context) error {
	pg := pagination.FromContext(c)

	var entries []*Entry
	switch {
	case c.QueryParam("user") != "":
		entries = h.ledger.ByUser(c.QueryParam("user"), pg.Limit)
	case c.QueryParam("action") != "":
		entries = h.ledger.ByAction(c.QueryParam("action"), pg.Limit)
	case c.QueryParam("entity_type") != "" && c.QueryParam("entity_id") != "":
		entries = h.ledger.ByEntity(c.QueryParam("entity_type"), c.QueryParam("entity_id"), pg.Limit)
	default:
		entries = h.ledger.Recent(pg.Limit)
	}

	return c.JSON(http.StatusOK, pagination.NewResponse(entries, len(entries), pg.Limit, 0))
}

func (h *Handler) VerifyChain(c echo.Context) error {
	return c.JSON(http.StatusOK, h.ledger.VerifyChainIntegrity())
}

func (h *Handler) Statistics(c echo.Context) error {
	return c.JSON(http.StatusOK, h.ledger.Statistics())
}

func (h *Handler) ComplianceReport(c echo.Context) error {
	start, end, err := parsePeriod(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.ledger.GenerateComplianceReport(start, end))
}

// parsePeriod reads start/end query params as RFC3339 or YYYY-MM-DD dates.
func parsePeriod(c echo.Context) (time.Time, time.Time, error) {
	start, err := parseDate(c.QueryParam("start"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid start date")
	}
	end, err := parseDate(c.QueryParam("end"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid end date")
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	return start, end, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
