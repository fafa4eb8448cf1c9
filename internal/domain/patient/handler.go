package patient

import (
	"errors"
	"net/http"
	"time"

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
	g.GET("", h.Search)
	g.POST("", h.Register)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.GET("/mrn/:mrn", h.GetByMRN)
}

type patientRequest struct {
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	DateOfBirth     *string `json:"date_of_birth"`
	Gender          string  `json:"gender"`
	Phone           *string `json:"phone"`
	InsurancePlanID *string `json:"insurance_plan_id"`
}

func (r *patientRequest) apply(p *Patient) error {
	p.FirstName = r.FirstName
	p.LastName = r.LastName
	p.Gender = r.Gender
	p.Phone = r.Phone
	if r.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *r.DateOfBirth)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date_of_birth, expected YYYY-MM-DD")
		}
		p.DateOfBirth = &dob
	}
	if r.InsurancePlanID != nil {
		planID, err := uuid.Parse(*r.InsurancePlanID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid insurance plan id")
		}
		p.InsurancePlanID = &planID
	}
	return nil
}

func (h *Handler) Register(c echo.Context) error {
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	var p Patient
	if err := req.apply(&p); err != nil {
		return err
	}
	if err := h.service.Register(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	p, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get patient")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetByMRN(c echo.Context) error {
	p, err := h.service.GetByMRN(c.Request().Context(), c.Param("mrn"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get patient")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	existing, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get patient")
	}
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.apply(existing); err != nil {
		return err
	}
	if err := h.service.Update(c.Request().Context(), existing); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, existing)
}

func (h *Handler) Search(c echo.Context) error {
	p := pagination.FromContext(c)
	patients, total, err := h.service.Search(c.Request().Context(), c.QueryParam("search"), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to search patients")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, p.Limit, p.Offset))
}
