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

// ProviderService is the part of service.ProviderService the HTTP layer uses.
type ProviderService interface {
	Create(ctx context.Context, in service.ProviderCreate) (*model.Provider, error)
	Get(ctx context.Context, id uint64) (*model.Provider, error)
	List(ctx context.Context, params pagination.Params) (pagination.Page[model.Provider], error)
	Update(ctx context.Context, id uint64, in service.ProviderUpdate) (*model.Provider, error)
	Delete(ctx context.Context, id uint64) (bool, error)
	ReplaceServices(ctx context.Context, id uint64, serviceIDs []uint64) (*model.Provider, error)
}

// ProviderHandler serves the provider catalog.
type ProviderHandler struct {
	Providers ProviderService
	Log       *zap.Logger
}

// NewProviderHandler panics if the service is nil.
func NewProviderHandler(providers ProviderService, log *zap.Logger) *ProviderHandler {
	if providers == nil {
		panic("nil provider service passed to NewProviderHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProviderHandler{Providers: providers, Log: log}
}

type replaceServicesReq struct {
	ServiceIDs []uint64 `json:"service_ids"`
}

func (h *ProviderHandler) Create(c echo.Context) error {
	var req service.ProviderCreate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Providers.Create(ctx, req)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, "/v1/providers/"+strconv.FormatUint(p.ID, 10))
	return c.JSON(http.StatusCreated, p)
}

func (h *ProviderHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid provider id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Providers.Get(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProviderHandler) List(c echo.Context) error {
	params, err := bindParams(c)
	if err != nil {
		return badRequest(c, "invalid pagination parameters")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.Providers.List(ctx, params)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return writePage(c, page)
}

func (h *ProviderHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid provider id")
	}
	var req service.ProviderUpdate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Providers.Update(ctx, id, req)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// ReplaceServices sets the services the provider offers.
func (h *ProviderHandler) ReplaceServices(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid provider id")
	}
	var req replaceServicesReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Providers.ReplaceServices(ctx, id, req.ServiceIDs)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProviderHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid provider id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	deleted, err := h.Providers.Delete(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if !deleted {
		return notFound(c, "provider not found")
	}
	return c.NoContent(http.StatusNoContent)
}
