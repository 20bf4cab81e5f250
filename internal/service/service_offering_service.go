package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/pagination"
	"github.com/iliyamo/service-booking/internal/ports"
)

// ServiceOfferingCreate is the input of ServiceOfferingService.Create.
type ServiceOfferingCreate struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	TotalHours  int     `json:"total_hours"`
}

// ServiceOfferingUpdate is a partial update.  Changing TotalHours only
// affects bookings made or rescheduled afterwards.
type ServiceOfferingUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	TotalHours  *int    `json:"total_hours,omitempty"`
}

// ServiceOfferingService manages the service catalog.
type ServiceOfferingService struct {
	uow ports.UnitOfWork
	log *zap.Logger
}

func NewServiceOfferingService(uow ports.UnitOfWork, log *zap.Logger) (*ServiceOfferingService, error) {
	if uow == nil {
		return nil, errors.New("service offering service: unit of work is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ServiceOfferingService{uow: uow, log: log}, nil
}

// Create registers a service offering.  The name must be unique.
func (s *ServiceOfferingService) Create(ctx context.Context, in ServiceOfferingCreate) (*model.ServiceOffering, error) {
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	desc, err := cleanOptional("description", in.Description, maxDescriptionLen)
	if err != nil {
		return nil, err
	}
	if in.TotalHours < 1 {
		return nil, validationError("total_hours must be at least 1")
	}

	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	if _, err := sess.ServiceOfferings().GetByName(ctx, name); err == nil {
		return nil, ErrServiceNameTaken
	} else if !errors.Is(err, ports.ErrNotFound) {
		return nil, storeError("load service offering", err, nil)
	}
	so := &model.ServiceOffering{Name: name, Description: desc, TotalHours: in.TotalHours}
	if err := sess.ServiceOfferings().Create(ctx, so); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return nil, ErrServiceNameTaken
		}
		return nil, storeError("create service offering", err, nil)
	}
	if _, err := sess.Commit(); err != nil {
		return nil, storeError("commit service offering", err, nil)
	}
	s.log.Info("service offering created", zap.Uint64("service_offering_id", so.ID), zap.String("name", so.Name))
	return so, nil
}

// Get returns an offering with the providers that offer it.
func (s *ServiceOfferingService) Get(ctx context.Context, id uint64) (*model.ServiceOffering, error) {
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()
	return loadServiceDetails(ctx, sess, id)
}

func loadServiceDetails(ctx context.Context, sess ports.Session, id uint64) (*model.ServiceOffering, error) {
	so, err := sess.ServiceOfferings().GetByID(ctx, id)
	if err != nil {
		return nil, storeError("load service offering", err, ErrServiceOfferingNotFound)
	}
	ids, err := sess.Links().ProviderIDs(ctx, id)
	if err != nil {
		return nil, storeError("load service providers", err, nil)
	}
	so.Providers, err = sess.Providers().GetByIDs(ctx, ids)
	if err != nil {
		return nil, storeError("load service providers", err, nil)
	}
	return so, nil
}

// List pages all offerings ordered by id.
func (s *ServiceOfferingService) List(ctx context.Context, params pagination.Params) (pagination.Page[model.ServiceOffering], error) {
	params = params.Normalize()
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return pagination.Page[model.ServiceOffering]{}, err
	}
	defer sess.Rollback()

	items, total, err := sess.ServiceOfferings().List(ctx, params)
	if err != nil {
		return pagination.Page[model.ServiceOffering]{}, storeError("list service offerings", err, nil)
	}
	return pagination.New(items, total, params), nil
}

// Update applies a partial update.
func (s *ServiceOfferingService) Update(ctx context.Context, id uint64, in ServiceOfferingUpdate) (*model.ServiceOffering, error) {
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	so, err := sess.ServiceOfferings().GetByID(ctx, id)
	if err != nil {
		return nil, storeError("load service offering", err, ErrServiceOfferingNotFound)
	}
	if in.Name != nil {
		name, err := cleanName(*in.Name)
		if err != nil {
			return nil, err
		}
		if name != so.Name {
			if _, err := sess.ServiceOfferings().GetByName(ctx, name); err == nil {
				return nil, ErrServiceNameTaken
			} else if !errors.Is(err, ports.ErrNotFound) {
				return nil, storeError("load service offering", err, nil)
			}
		}
		so.Name = name
	}
	if in.Description != nil {
		if so.Description, err = cleanOptional("description", in.Description, maxDescriptionLen); err != nil {
			return nil, err
		}
	}
	if in.TotalHours != nil {
		if *in.TotalHours < 1 {
			return nil, validationError("total_hours must be at least 1")
		}
		so.TotalHours = *in.TotalHours
	}

	if err := sess.ServiceOfferings().Update(ctx, so); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return nil, ErrServiceNameTaken
		}
		return nil, storeError("update service offering", err, ErrServiceOfferingNotFound)
	}
	if _, err := sess.Commit(); err != nil {
		return nil, storeError("commit service offering", err, nil)
	}
	return so, nil
}

// Delete removes an offering.  It reports false when the offering does
// not exist and ErrServiceHasBookings when bookings still reference it.
func (s *ServiceOfferingService) Delete(ctx context.Context, id uint64) (bool, error) {
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer sess.Rollback()

	err = sess.ServiceOfferings().Delete(ctx, id)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return false, nil
	case errors.Is(err, ports.ErrReferenced):
		return false, ErrServiceHasBookings
	case err != nil:
		return false, storeError("delete service offering", err, nil)
	}
	if _, err := sess.Commit(); err != nil {
		return false, storeError("commit service offering", err, nil)
	}
	s.log.Info("service offering deleted", zap.Uint64("service_offering_id", id))
	return true, nil
}

// ReplaceProviders makes the set of providers offering the service
// exactly providerIDs.
func (s *ServiceOfferingService) ReplaceProviders(ctx context.Context, id uint64, providerIDs []uint64) (*model.ServiceOffering, error) {
	if providerIDs == nil {
		return nil, validationError("provider ids must not be null")
	}
	want := uniqueIDs(providerIDs)

	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	if _, err := sess.ServiceOfferings().GetByID(ctx, id); err != nil {
		return nil, storeError("load service offering", err, ErrServiceOfferingNotFound)
	}
	found, err := sess.Providers().GetByIDs(ctx, want)
	if err != nil {
		return nil, storeError("load providers", err, nil)
	}
	if len(found) != len(want) {
		return nil, validationError("one or more provider ids are invalid")
	}
	current, err := sess.Links().ProviderIDs(ctx, id)
	if err != nil {
		return nil, storeError("load service providers", err, nil)
	}

	add, remove := diffIDs(current, want)
	if err := sess.Links().Remove(ctx, linksForService(id, remove)...); err != nil {
		return nil, storeError("unlink providers", err, nil)
	}
	if err := sess.Links().Add(ctx, linksForService(id, add)...); err != nil {
		return nil, storeError("link providers", err, nil)
	}

	so, err := loadServiceDetails(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Commit(); err != nil {
		return nil, storeError("commit service providers", err, nil)
	}
	return so, nil
}

func linksForService(serviceID uint64, providerIDs []uint64) []ports.Link {
	out := make([]ports.Link, len(providerIDs))
	for i, pid := range providerIDs {
		out[i] = ports.Link{ProviderID: pid, ServiceOfferingID: serviceID}
	}
	return out
}
