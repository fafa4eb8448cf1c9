package catalog

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/items", h.ListItems)
	g.GET("/items/code/:code", h.GetByCode)
	g.GET("/items/:type/:id", h.GetItem)
	g.POST("/items/:type", h.CreateItem)
}

// ListItems returns active items, optionally restricted to one variant.
func (h *Handler) ListItems(c echo.Context) error {
	ctx := c.Request().Context()

	if raw := c.QueryParam("type"); raw != "" {
		t, err := ParseItemType(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		store, err := h.registry.Resolve(t)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		items, err := store.ListActive(ctx)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to list items")
		}
		return c.JSON(http.StatusOK, items)
	}

	items, err := h.registry.ListActiveAll(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list items")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetItem(c echo.Context) error {
	t, err := ParseItemType(c.Param("type"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	item, err := h.registry.GetByID(c.Request().Context(), t, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch item")
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) GetByCode(c echo.Context) error {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	item, err := h.registry.FindByCodeAny(c.Request().Context(), code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch item")
	}
	return c.JSON(http.StatusOK, item)
}

type createItemRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	GenericName *string `json:"generic_name"`
	Category    string  `json:"category"`
	CashPrice   float64 `json:"cash_price"`
}

func (h *Handler) CreateItem(c echo.Context) error {
	t, err := ParseItemType(c.Param("type"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req createItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Code) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if req.CashPrice < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "cash_price must not be negative")
	}

	store, err := h.registry.Resolve(t)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	item := &Item{
		Code:        strings.TrimSpace(req.Code),
		Name:        req.Name,
		GenericName: req.GenericName,
		Category:    req.Category,
		CashPrice:   req.CashPrice,
		IsActive:    true,
	}
	if err := store.Create(c.Request().Context(), item); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create item")
	}
	return c.JSON(http.StatusCreated, item)
}
