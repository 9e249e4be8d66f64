package contingency

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/farmasalud/fiscal/internal/platform/auth"
)

// Handler exposes the contingency manager over HTTP.
type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/contingency")

	g.POST("/start", h.Start, auth.Require("pos:process"))
	g.POST("/:id/end", h.End, auth.Require("pos:process"))
	g.POST("/:id/sync", h.MarkSynced, auth.Require("reports:create"))
	g.POST("/invoices", h.AddInvoice, auth.Require("pos:create"))

	g.GET("/gate", h.EmissionGate, auth.Require("pos:read"))
	g.GET("/active", h.Active, auth.Require("pos:read"))
	g.GET("/sessions", h.ListSessions, auth.Require("pos:read"))
	g.GET("/statistics", h.Statistics, auth.Require("reports:read"))
	g.GET("/report", h.Report, auth.Require("reports:read"))
}

func (h *Handler) Start(c echo.Context) error {
	var in StartInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if in.ReportedBy == "" {
		in.ReportedBy = auth.UserFromContext(c.Request().Context()).ID
	}

	session, err := h.mgr.Start(c.Request().Context(), in)
	switch {
	case errors.Is(err, ErrInvalidScenario):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrSessionActive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return err
	}
	return c.JSON(http.StatusCreated, session)
}

func (h *Handler) End(c echo.Context) error {
	resolvedBy := auth.UserFromContext(c.Request().Context()).ID

	session, err := h.mgr.End(c.Request().Context(), c.Param("id"), resolvedBy)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSessionNotActive):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) MarkSynced(c echo.Context) error {
	syncedBy := auth.UserFromContext(c.Request().Context()).ID

	session, err := h.mgr.MarkSynced(c.Request().Context(), c.Param("id"), syncedBy)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSessionNotPending):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) AddInvoice(c echo.Context) error {
	var inv InvoiceRef
	if err := c.Bind(&inv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if inv.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id is required")
	}
	if inv.CashierID == "" {
		inv.CashierID = auth.UserFromContext(c.Request().Context()).ID
	}

	if err := h.mgr.AddInvoice(c.Request().Context(), inv); err != nil {
		if errors.Is(err, ErrNoActiveSession) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) EmissionGate(c echo.Context) error {
	return c.JSON(http.StatusOK, h.mgr.CanEmitDigitalInvoice())
}

func (h *Handler) Active(c echo.Context) error {
	session := h.mgr.ActiveSession()
	if session == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no active contingency session")
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) ListSessions(c echo.Context) error {
	if c.QueryParam("status") == string(StatusSyncPending) {
		return c.JSON(http.StatusOK, h.mgr.PendingSync())
	}
	return c.JSON(http.StatusOK, h.mgr.Sessions())
}

func (h *Handler) Statistics(c echo.Context) error {
	return c.JSON(http.StatusOK, h.mgr.Statistics())
}

func (h *Handler) Report(c echo.Context) error {
	start, end, err := parsePeriod(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.mgr.Report(start, end))
}

func parsePeriod(c echo.Context) (time.Time, time.Time, error) {
	start, err := parseDate(c.QueryParam("start"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid start date")
	}
	var end time.Time
	if c.QueryParam("end") == "" {
		end = time.Now()
	} else {
		end, err = parseDate(c.QueryParam("end"))
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid end date")
		}
	}
	return start, end, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
