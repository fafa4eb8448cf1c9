package pricing

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/domain/catalog"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the dashboard. Mutations require the pricing
// roles; reads are open to any authenticated user.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetPricingData)
	g.GET("/summary", h.StatusSummary)
	g.GET("/items/:type/:id", h.ItemStatus)
	g.GET("/export", h.Export)
	g.GET("/import/template", h.ImportTemplate)

	admin := g.Group("", auth.RequireRole("admin", "billing"))
	admin.PATCH("/items/:type/:id/price", h.UpdateCashPrice)
	admin.PUT("/plans/:planId/copay", h.UpdateCopay)
	admin.PUT("/plans/:planId/coverage", h.UpdateCoverage)
	admin.PUT("/plans/:planId/flexible-copay", h.UpdateFlexibleCopay)
	admin.POST("/plans/:planId/copay/bulk", h.BulkUpdateCopay)
	admin.POST("/import", h.Import)
}

func actorFrom(c echo.Context) string {
	if id := auth.UserIDFromContext(c.Request().Context()); id != "" {
		return id
	}
	return "system"
}

func parseQuery(c echo.Context) (Query, error) {
	q := Query{
		Category:     c.QueryParam("category"),
		Search:       c.QueryParam("search"),
		UnmappedOnly: c.QueryParam("unmapped_only") == "true",
		Status:       c.QueryParam("status"),
	}
	if raw := c.QueryParam("plan_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return q, echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
		}
		q.PlanID = &id
	}
	p := pagination.FromContext(c)
	q.Limit = p.Limit
	q.Offset = p.Offset
	return q, nil
}

func (h *Handler) GetPricingData(c echo.Context) error {
	q, err := parseQuery(c)
	if err != nil {
		return err
	}
	rows, total, err := h.service.GetPricingData(c.Request().Context(), q)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load pricing data")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(rows, total, q.Limit, q.Offset))
}

func (h *Handler) StatusSummary(c echo.Context) error {
	var planID *uuid.UUID
	if raw := c.QueryParam("plan_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
		}
		planID = &id
	}
	summary, err := h.service.StatusSummary(c.Request().Context(), planID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load summary")
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) ItemStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	var planID *uuid.UUID
	if raw := c.QueryParam("plan_id"); raw != "" {
		pid, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
		}
		planID = &pid
	}
	row, err := h.service.PricingStatusForItem(c.Request().Context(), c.Param("type"), id, planID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, row)
}

type updatePriceRequest struct {
	Price float64 `json:"price"`
}

func (h *Handler) UpdateCashPrice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	var req updatePriceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.service.UpdateCashPrice(c.Request().Context(), actorFrom(c), c.Param("type"), id, req.Price); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type updateCopayRequest struct {
	ItemType string  `json:"item_type"`
	ItemID   string  `json:"item_id"`
	ItemCode string  `json:"item_code"`
	Copay    float64 `json:"copay"`
}

func (h *Handler) UpdateCopay(c echo.Context) error {
	planID, err := uuid.Parse(c.Param("planId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
	}
	var req updateCopayRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	rule, err := h.service.UpdateInsuranceCopay(c.Request().Context(), actorFrom(c), planID, req.ItemType, itemID, req.ItemCode, req.Copay)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, rule)
}

type updateCoverageRequest struct {
	ItemType string        `json:"item_type"`
	ItemID   string        `json:"item_id"`
	ItemCode string        `json:"item_code"`
	Attrs    CoverageAttrs `json:"attrs"`
}

func (h *Handler) UpdateCoverage(c echo.Context) error {
	planID, err := uuid.Parse(c.Param("planId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
	}
	var req updateCoverageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	rule, err := h.service.UpdateInsuranceCoverage(c.Request().Context(), actorFrom(c), planID, req.ItemType, itemID, req.ItemCode, req.Attrs)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, rule)
}

type flexibleCopayRequest struct {
	ItemType string   `json:"item_type"`
	ItemID   string   `json:"item_id"`
	ItemCode string   `json:"item_code"`
	Copay    *float64 `json:"copay"`
}

func (h *Handler) UpdateFlexibleCopay(c echo.Context) error {
	planID, err := uuid.Parse(c.Param("planId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
	}
	var req flexibleCopayRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	rule, err := h.service.UpdateFlexibleCopay(c.Request().Context(), actorFrom(c), planID, req.ItemType, itemID, req.ItemCode, req.Copay)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, rule)
}

type bulkCopayRequest struct {
	Items []BulkItem `json:"items"`
	Copay float64    `json:"copay"`
}

func (h *Handler) BulkUpdateCopay(c echo.Context) error {
	planID, err := uuid.Parse(c.Param("planId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
	}
	var req bulkCopayRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	result, err := h.service.BulkUpdateCopay(c.Request().Context(), actorFrom(c), planID, req.Items, req.Copay)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Export(c echo.Context) error {
	category := c.QueryParam("category")
	search := c.QueryParam("search")
	var planID *uuid.UUID
	if raw := c.QueryParam("plan_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
		}
		planID = &id
	}
	var buf bytes.Buffer
	if err := h.service.ExportCSV(c.Request().Context(), &buf, planID, category, search); err != nil {
		return mapServiceError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="pricing_export.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *Handler) Import(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	var planID *uuid.UUID
	if raw := c.FormValue("plan_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
		}
		planID = &id
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot open uploaded file")
	}
	defer src.Close()

	result, err := h.service.ImportCSV(c.Request().Context(), actorFrom(c), src, planID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) ImportTemplate(c echo.Context) error {
	withCopay := c.QueryParam("plan_id") != ""
	var buf bytes.Buffer
	if err := h.service.ImportTemplate(&buf, withCopay); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build template")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="pricing_import_template.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrInvalidItemType), errors.Is(err, ErrInvalidPrice), errors.Is(err, ErrEmptyBatch):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, ErrPlanNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "pricing operation failed")
	}
}
