package tax

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/farmasalud/fiscal/internal/platform/auth"
)

// Handler exposes the tax engine over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/tax")

	g.POST("/transactions", h.CreateTransaction, auth.Require("pos:process"))
	g.GET("/transactions", h.ListTransactions, auth.Require("pos:read"))
	g.POST("/calculate/igtf", h.CalculateIGTF, auth.Require("pos:read"))

	g.POST("/vouchers", h.GenerateVoucher, auth.Require("pos:process"))
	g.GET("/vouchers", h.ListVouchers, auth.Require("pos:read"))
	g.POST("/vouchers/:id/submit", h.SubmitVoucher, auth.Require("reports:create"))

	g.GET("/accumulation/igtf", h.IGTFAccumulation, auth.Require("reports:read"))
	g.GET("/accumulation/retention", h.RetentionAccumulation, auth.Require("reports:read"))

	g.GET("/configuration", h.GetConfiguration, auth.Require("settings:read"))
	g.PUT("/configuration", h.UpdateConfiguration, auth.Require("settings:update"))
}

func (h *Handler) CreateTransaction(c echo.Context) error {
	var in CreateTransactionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if in.InvoiceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invoice_id is required")
	}
	if in.UserID == "" {
		in.UserID = auth.UserFromContext(c.Request().Context()).ID
	}

	tx, err := h.svc.CreateTransaction(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tx)
}

func (h *Handler) ListTransactions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Transactions())
}

type igtfRequest struct {
	BaseAmountUSD   float64       `json:"base_amount_usd"`
	ExchangeRate    float64       `json:"exchange_rate"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	PaymentCurrency Currency      `json:"payment_currency"`
}

func (h *Handler) CalculateIGTF(c echo.Context) error {
	var req igtfRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	result := h.svc.CalculateIGTF(req.BaseAmountUSD, req.ExchangeRate, req.PaymentMethod, req.PaymentCurrency)
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) GenerateVoucher(c echo.Context) error {
	var in VoucherInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if in.CustomerRIF == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "customer_rif is required")
	}
	if in.UserID == "" {
		in.UserID = auth.UserFromContext(c.Request().Context()).ID
	}

	voucher, err := h.svc.GenerateRetentionVoucher(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, voucher)
}

func (h *Handler) ListVouchers(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Vouchers())
}

type submitRequest struct {
	SENIATReference string `json:"seniat_reference"`
}

func (h *Handler) SubmitVoucher(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SENIATReference == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "seniat_reference is required")
	}

	voucher, err := h.svc.MarkVoucherSubmitted(c.Request().Context(), c.Param("id"), req.SENIATReference)
	if errors.Is(err, ErrVoucherNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "voucher not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, voucher)
}

func (h *Handler) IGTFAccumulation(c echo.Context) error {
	start, end, err := parsePeriod(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.svc.IGTFAccumulation(start, end))
}

func (h *Handler) RetentionAccumulation(c echo.Context) error {
	start, end, err := parsePeriod(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.svc.RetentionAccumulation(start, end))
}

func (h *Handler) GetConfiguration(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Configuration())
}

func (h *Handler) UpdateConfiguration(c echo.Context) error {
	cfg := h.svc.Configuration()
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.UpdateConfiguration(c.Request().Context(), cfg); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.svc.Configuration())
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
