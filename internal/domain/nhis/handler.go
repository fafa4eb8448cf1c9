package nhis

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
	g.GET("/tariffs", h.ListTariffs)
	g.POST("/tariffs", h.CreateTariff)
	g.GET("/tariffs/:id", h.GetTariff)
	g.PATCH("/tariffs/:id/price", h.UpdateTariffPrice)
	g.POST("/mappings", h.MapItem)
	g.DELETE("/mappings/:type/:id", h.UnmapItem)
}

type createTariffRequest struct {
	NhisCode string  `json:"nhis_code"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
}

func (h *Handler) CreateTariff(c echo.Context) error {
	var req createTariffRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t := &Tariff{NhisCode: req.NhisCode, Name: req.Name, Price: req.Price, IsActive: true}
	if err := h.service.CreateTariff(c.Request().Context(), t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTariff(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid tariff id")
	}
	t, err := h.service.GetTariff(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "tariff not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get tariff")
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTariffs(c echo.Context) error {
	p := pagination.FromContext(c)
	tariffs, total, err := h.service.ListTariffs(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list tariffs")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(tariffs, total, p.Limit, p.Offset))
}

type updateTariffPriceRequest struct {
	Price float64 `json:"price"`
}

func (h *Handler) UpdateTariffPrice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid tariff id")
	}
	var req updateTariffPriceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.service.UpdateTariffPrice(c.Request().Context(), id, req.Price); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "tariff not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type mapItemRequest struct {
	ItemType     string `json:"item_type"`
	ItemID       string `json:"item_id"`
	ItemCode     string `json:"item_code"`
	NhisTariffID string `json:"nhis_tariff_id"`
}

func (h *Handler) MapItem(c echo.Context) error {
	var req mapItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	tariffID, err := uuid.Parse(req.NhisTariffID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid tariff id")
	}
	m, err := h.service.MapItem(c.Request().Context(), req.ItemType, itemID, req.ItemCode, tariffID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) UnmapItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	if err := h.service.UnmapItem(c.Request().Context(), c.Param("type"), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "mapping not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to remove mapping")
	}
	return c.NoContent(http.StatusNoContent)
}
