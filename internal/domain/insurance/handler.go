package insurance

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/providers", h.ListProviders)
	g.POST("/providers", h.CreateProvider)
	g.GET("/plans", h.ListPlans)
	g.POST("/plans", h.CreatePlan)
	g.GET("/plans/:id", h.GetPlan)
	g.GET("/plans/:id/rules", h.ListRules)
	g.PUT("/plans/:id/rules", h.UpsertRule)
	g.DELETE("/rules/:id", h.DeactivateRule)
}

type createProviderRequest struct {
	Name   string `json:"name"`
	IsNHIS bool   `json:"is_nhis"`
}

func (h *Handler) CreateProvider(c echo.Context) error {
	var req createProviderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p := &Provider{Name: req.Name, IsNHIS: req.IsNHIS, IsActive: true}
	if err := h.service.CreateProvider(c.Request().Context(), p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListProviders(c echo.Context) error {
	providers, err := h.service.ListProviders(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list providers")
	}
	return c.JSON(http.StatusOK, providers)
}

type createPlanRequest struct {
	ProviderID string `json:"provider_id"`
	Name       string `json:"name"`
}

func (h *Handler) CreatePlan(c echo.Context) error {
	var req createPlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid provider id")
	}
	p := &Plan{ProviderID: providerID, Name: req.Name, IsActive: true}
	if err := h.service.CreatePlan(c.Request().Context(), p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "provider not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
	}
	plan, err := h.service.GetPlan(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "plan not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get plan")
	}
	return c.JSON(http.StatusOK, plan)
}

func (h *Handler) ListPlans(c echo.Context) error {
	plans, err := h.service.ListPlans(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list plans")
	}
	return c.JSON(http.StatusOK, plans)
}

func (h *Handler) ListRules(c echo.Context) error {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
	}
	p := pagination.FromContext(c)
	rules, total, err := h.service.ListRules(c.Request().Context(), planID, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list rules")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(rules, total, p.Limit, p.Offset))
}

type upsertRuleRequest struct {
	CoverageCategory   string   `json:"coverage_category"`
	ItemCode           *string  `json:"item_code"`
	ItemDescription    *string  `json:"item_description"`
	IsCovered          bool     `json:"is_covered"`
	CoverageType       string   `json:"coverage_type"`
	CoverageValue      *float64 `json:"coverage_value"`
	TariffAmount       *float64 `json:"tariff_amount"`
	PatientCopayAmount *float64 `json:"patient_copay_amount"`
	IsUnmapped         bool     `json:"is_unmapped"`
}

func (h *Handler) UpsertRule(c echo.Context) error {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
	}
	var req upsertRuleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rule := &CoverageRule{
		InsurancePlanID:    planID,
		CoverageCategory:   req.CoverageCategory,
		ItemCode:           req.ItemCode,
		ItemDescription:    req.ItemDescription,
		IsCovered:          req.IsCovered,
		CoverageType:       req.CoverageType,
		CoverageValue:      req.CoverageValue,
		TariffAmount:       req.TariffAmount,
		PatientCopayAmount: req.PatientCopayAmount,
		IsUnmapped:         req.IsUnmapped,
		IsActive:           true,
	}
	if err := h.service.UpsertRule(c.Request().Context(), rule); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, rule)
}

func (h *Handler) DeactivateRule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid rule id")
	}
	if err := h.service.DeactivateRule(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "rule not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to deactivate rule")
	}
	return c.NoContent(http.StatusNoContent)
}
