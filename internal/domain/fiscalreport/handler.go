package fiscalreport

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/farmasalud/fiscal/internal/platform/auth"
)

// Handler exposes fiscal reporting over HTTP. Report endpoints take the
// invoices to aggregate in the request body; the POS front end owns the
// sales data.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/fiscal")

	g.POST("/invoices/validate", h.ValidateInvoice, auth.Require("pos:create"))
	g.GET("/invoices/number", h.InvoiceNumber, auth.Require("pos:create"))
	g.POST("/invoices/print", h.PrintInvoice, auth.Require("pos:read"))

	g.POST("/reports/z", h.ZReport, auth.Require("reports:create"))
	g.POST("/reports/x", h.XReport, auth.Require("reports:read"))
	g.POST("/reports/psychotropic", h.PsychotropicReport, auth.Require("reports:read"))
}

func (h *Handler) ValidateInvoice(c echo.Context) error {
	var inv Invoice
	if err := c.Bind(&inv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.JSON(http.StatusOK, h.svc.ValidateInvoice(&inv))
}

func (h *Handler) InvoiceNumber(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"invoice_number":        h.svc.GenerateInvoiceNumber(),
		"fiscal_control_number": h.svc.GenerateFiscalControlNumber(),
	})
}

func (h *Handler) PrintInvoice(c echo.Context) error {
	var inv Invoice
	if err := c.Bind(&inv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.String(http.StatusOK, h.svc.FormatForPrinter(&inv))
}

type zRequest struct {
	Invoices []*Invoice `json:"invoices"`
	Date     string     `json:"date"`
}

func (h *Handler) ZReport(c echo.Context) error {
	var req zRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date")
	}
	return c.JSON(http.StatusOK, h.svc.GenerateZReport(req.Invoices, date))
}

type xRequest struct {
	Invoices []*Invoice `json:"invoices"`
	Start    string     `json:"start"`
	End      string     `json:"end"`
}

func (h *Handler) XReport(c echo.Context) error {
	var req xRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	start, err := parseDate(req.Start)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid start date")
	}
	var end time.Time
	if req.End == "" {
		end = time.Now()
	} else if end, err = parseDate(req.End); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid end date")
	}
	return c.JSON(http.StatusOK, h.svc.GenerateXReport(req.Invoices, start, end))
}

func (h *Handler) PsychotropicReport(c echo.Context) error {
	var req zRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date")
	}
	return c.JSON(http.StatusOK, h.svc.GeneratePsychotropicReport(req.Invoices, date))
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
