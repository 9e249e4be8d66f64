package versionaudit

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/farmasalud/fiscal/internal/platform/auth"
)

// Handler exposes the version auditor over HTTP.
type Handler struct {
	auditor *Auditor
}

func NewHandler(auditor *Auditor) *Handler {
	return &Handler{auditor: auditor}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/version")

	g.POST("", h.Register, auth.Require("settings:update"))
	g.GET("", h.Current, auth.Require("settings:read"))
	g.GET("/authorization", h.Authorization, auth.Require("settings:read"))
	g.POST("/verify", h.VerifyIntegrity, auth.Require("settings:read"))
	g.GET("/report", h.Report, auth.Require("reports:read"))
	g.PUT("/:id/homologation", h.UpdateHomologation, auth.Require("settings:update"))
	g.PUT("/:id/expiration", h.SetExpiration, auth.Require("settings:update"))
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if in.Version == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "version is required")
	}
	if in.InstalledBy == "" {
		in.InstalledBy = auth.UserFromContext(c.Request().Context()).ID
	}

	rec, err := h.auditor.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) Current(c echo.Context) error {
	rec := h.auditor.Current()
	if rec == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no version registered")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) Authorization(c echo.Context) error {
	return c.JSON(http.StatusOK, h.auditor.IsAuthorized())
}

func (h *Handler) VerifyIntegrity(c echo.Context) error {
	var files map[string]string
	if err := c.Bind(&files); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.JSON(http.StatusOK, h.auditor.VerifyIntegrity(files))
}

func (h *Handler) Report(c echo.Context) error {
	report := h.auditor.Report()
	if report == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no version registered")
	}
	return c.JSON(http.StatusOK, report)
}

type homologationRequest struct {
	Status HomologationStatus `json:"status"`
}

func (h *Handler) UpdateHomologation(c echo.Context) error {
	var req homologationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	switch req.Status {
	case HomologationApproved, HomologationRejected, HomologationExpired:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "status must be approved, rejected or expired")
	}

	updatedBy := auth.UserFromContext(c.Request().Context()).ID
	rec, err := h.auditor.UpdateHomologationStatus(c.Request().Context(), c.Param("id"), req.Status, updatedBy)
	if errors.Is(err, ErrVersionNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "version not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

type expirationRequest struct {
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) SetExpiration(c echo.Context) error {
	var req expirationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ExpiresAt.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "expires_at is required")
	}

	setBy := auth.UserFromContext(c.Request().Context()).ID
	rec, err := h.auditor.SetAuthorizationExpiration(c.Request().Context(), c.Param("id"), req.ExpiresAt, setBy)
	if errors.Is(err, ErrVersionNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "version not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}
