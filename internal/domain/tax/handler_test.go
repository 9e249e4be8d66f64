package tax

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/farmasalud/fiscal/internal/platform/storage"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo) {
	t.Helper()
	svc := NewService(NewKVRepository(storage.NewMemory()), nil)
	return NewHandler(svc), echo.New()
}

func TestHandler_CalculateIGTF(t *testing.T) {
	h, e := newTestHandler(t)

	body := `{"base_amount_usd":100,"exchange_rate":36.5,"payment_method":"cash","payment_currency":"USD"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tax/calculate/igtf", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CalculateIGTF(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var res IGTFResult
	json.Unmarshal(rec.Body.Bytes(), &res)
	if !res.Applicable || !almostEqual(res.AmountUSD, 3.00) {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestHandler_CreateTransaction_MissingInvoice(t *testing.T) {
	h, e := newTestHandler(t)

	body := `{"base_amount_usd":100}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tax/transactions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.CreateTransaction(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_SubmitVoucher_NotFound(t *testing.T) {
	h, e := newTestHandler(t)

	body := `{"seniat_reference":"SENIAT-2026-00042"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("no-such-voucher")

	err := h.SubmitVoucher(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_GetConfiguration(t *testing.T) {
	h, e := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetConfiguration(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var cfg Configuration
	json.Unmarshal(rec.Body.Bytes(), &cfg)
	if cfg.IGTFRate != 0.03 || cfg.IVAGeneralRate != 0.16 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
