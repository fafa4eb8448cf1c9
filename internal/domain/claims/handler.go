package claims

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.ListClaims)
	g.POST("", h.CreateClaim)
	g.GET("/:id", h.GetClaim)
	g.GET("/:id/items", h.ListClaimItems)
	g.POST("/:id/charges", h.AddCharges)
	g.POST("/:id/vet", h.Vet)
	g.POST("/:id/submit", h.Submit)
	g.POST("/:id/reject", h.Reject)
	g.PATCH("/:id/status", h.UpdateStatus)

	g.POST("/charges", h.CreateCharge)
	g.GET("/charges/pending/:patientId", h.ListPendingCharges)
}

type createClaimRequest struct {
	InsurancePlanID string `json:"insurance_plan_id"`
	PatientID       string `json:"patient_id"`
}

func (h *Handler) CreateClaim(c echo.Context) error {
	var req createClaimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	planID, err := uuid.Parse(req.InsurancePlanID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	claim, err := h.service.CreateClaim(c.Request().Context(), planID, patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create claim")
	}
	return c.JSON(http.StatusCreated, claim)
}

func (h *Handler) GetClaim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid claim id")
	}
	claim, err := h.service.GetClaim(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "claim not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get claim")
	}
	return c.JSON(http.StatusOK, claim)
}

func (h *Handler) ListClaims(c echo.Context) error {
	p := pagination.FromContext(c)
	claims, total, err := h.service.ListClaims(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list claims")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(claims, total, p.Limit, p.Offset))
}

func (h *Handler) ListClaimItems(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid claim id")
	}
	items, err := h.service.ListClaimItems(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list claim items")
	}
	return c.JSON(http.StatusOK, items)
}

type addChargesRequest struct {
	ChargeIDs []string `json:"charge_ids"`
}

func (h *Handler) AddCharges(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid claim id")
	}
	var req addChargesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	chargeIDs := make([]uuid.UUID, 0, len(req.ChargeIDs))
	for _, raw := range req.ChargeIDs {
		cid, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid charge id "+raw)
		}
		chargeIDs = append(chargeIDs, cid)
	}
	claim, err := h.service.AddCharges(c.Request().Context(), id, chargeIDs)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, claim)
}

func (h *Handler) Vet(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid claim id")
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	claim, err := h.service.Vet(c.Request().Context(), id, actor)
	if err != nil {
		return mapClaimError(err)
	}
	return c.JSON(http.StatusOK, claim)
}

func (h *Handler) Submit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid claim id")
	}
	claim, err := h.service.Submit(c.Request().Context(), id)
	if err != nil {
		return mapClaimError(err)
	}
	return c.JSON(http.StatusOK, claim)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Reject(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid claim id")
	}
	var req rejectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	claim, err := h.service.Reject(c.Request().Context(), id, req.Reason)
	if err != nil {
		return mapClaimError(err)
	}
	return c.JSON(http.StatusOK, claim)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid claim id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	claim, err := h.service.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return mapClaimError(err)
	}
	return c.JSON(http.StatusOK, claim)
}

type createChargeRequest struct {
	PatientID   string  `json:"patient_id"`
	ServiceType string  `json:"service_type"`
	ServiceCode string  `json:"service_code"`
	Description *string `json:"description"`
	Amount      float64 `json:"amount"`
	Quantity    int     `json:"quantity"`
	ItemID      string  `json:"item_id"`
}

func (h *Handler) CreateCharge(c echo.Context) error {
	var req createChargeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	charge := &Charge{
		PatientID:   patientID,
		ServiceType: req.ServiceType,
		ServiceCode: req.ServiceCode,
		Description: req.Description,
		Amount:      req.Amount,
		Quantity:    req.Quantity,
		ItemID:      itemID,
	}
	if err := h.service.CreateCharge(c.Request().Context(), charge); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, charge)
}

func (h *Handler) ListPendingCharges(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	charges, err := h.service.ListPendingCharges(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list charges")
	}
	return c.JSON(http.StatusOK, charges)
}

func mapClaimError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "claim not found")
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
