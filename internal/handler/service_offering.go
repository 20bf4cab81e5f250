package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/pagination"
	"github.com/iliyamo/service-booking/internal/service"
)

// ServiceOfferingService is the part of service.ServiceOfferingService
// the HTTP layer uses.
type ServiceOfferingService interface {
	Create(ctx context.Context, in service.ServiceOfferingCreate) (*model.ServiceOffering, error)
	Get(ctx context.Context, id uint64) (*model.ServiceOffering, error)
	List(ctx context.Context, params pagination.Params) (pagination.Page[model.ServiceOffering], error)
	Update(ctx context.Context, id uint64, in service.ServiceOfferingUpdate) (*model.ServiceOffering, error)
	Delete(ctx context.Context, id uint64) (bool, error)
	ReplaceProviders(ctx context.Context, id uint64, providerIDs []uint64) (*model.ServiceOffering, error)
}

// ServiceOfferingHandler serves the service catalog.
type ServiceOfferingHandler struct {
	Services ServiceOfferingService
	Log      *zap.Logger
}

// NewServiceOfferingHandler panics if the service is nil.
func NewServiceOfferingHandler(services ServiceOfferingService, log *zap.Logger) *ServiceOfferingHandler {
	if services == nil {
		panic("nil service offering service passed to NewServiceOfferingHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ServiceOfferingHandler{Services: services, Log: log}
}

type replaceProvidersReq struct {
	ProviderIDs []uint64 `json:"provider_ids"`
}

func (h *ServiceOfferingHandler) Create(c echo.Context) error {
	var req service.ServiceOfferingCreate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	so, err := h.Services.Create(ctx, req)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, "/v1/services/"+strconv.FormatUint(so.ID, 10))
	return c.JSON(http.StatusCreated, so)
}

func (h *ServiceOfferingHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid service offering id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	so, err := h.Services.Get(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, so)
}

func (h *ServiceOfferingHandler) List(c echo.Context) error {
	params, err := bindParams(c)
	if err != nil {
		return badRequest(c, "invalid pagination parameters")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.Services.List(ctx, params)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return writePage(c, page)
}

func (h *ServiceOfferingHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid service offering id")
	}
	var req service.ServiceOfferingUpdate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	so, err := h.Services.Update(ctx, id, req)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, so)
}

// ReplaceProviders sets the providers that offer the service.
func (h *ServiceOfferingHandler) ReplaceProviders(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid service offering id")
	}
	var req replaceProvidersReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	so, err := h.Services.ReplaceProviders(ctx, id, req.ProviderIDs)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, so)
}

func (h *ServiceOfferingHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid service offering id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	deleted, err := h.Services.Delete(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if !deleted {
		return notFound(c, "service offering not found")
	}
	return c.NoContent(http.StatusNoContent)
}
