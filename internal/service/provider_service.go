package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/pagination"
	"github.com/iliyamo/service-booking/internal/ports"
)

// ProviderCreate is the input of ProviderService.Create.  When Account is
// set a PROVIDER user is created and linked in the same transaction;
// otherwise UserID may link an existing account.
type ProviderCreate struct {
	Name               string         `json:"name"`
	Description        *string        `json:"description,omitempty"`
	LogoURL            *string        `json:"logo_url,omitempty"`
	ConcurrentCapacity *int           `json:"concurrent_capacity,omitempty"`
	UserID             *uint64        `json:"user_id,omitempty"`
	Account            *RegisterInput `json:"account,omitempty"`
}

// ProviderUpdate is a partial update.  Nil fields are left untouched; an
// empty description or logo clears it.
type ProviderUpdate struct {
	Name               *string `json:"name,omitempty"`
	Description        *string `json:"description,omitempty"`
	LogoURL            *string `json:"logo_url,omitempty"`
	ConcurrentCapacity *int    `json:"concurrent_capacity,omitempty"`
}

// ProviderService manages the provider catalog.
type ProviderService struct {
	uow   ports.UnitOfWork
	users *UserService
	log   *zap.Logger
}

// NewProviderService wires a ProviderService.  users is used to create
// the login account of a provider.
func NewProviderService(uow ports.UnitOfWork, users *UserService, log *zap.Logger) (*ProviderService, error) {
	if uow == nil {
		return nil, errors.New("provider service: unit of work is required")
	}
	if users == nil {
		return nil, errors.New("provider service: user service is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProviderService{uow: uow, users: users, log: log}, nil
}

// Create registers a provider.  The name must be unique.
func (s *ProviderService) Create(ctx context.Context, in ProviderCreate) (*model.Provider, error) {
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	desc, err := cleanOptional("description", in.Description, maxDescriptionLen)
	if err != nil {
		return nil, err
	}
	logo, err := cleanOptional("logo_url", in.LogoURL, 500)
	if err != nil {
		return nil, err
	}
	capacity := model.MinCapacity
	if in.ConcurrentCapacity != nil {
		capacity = *in.ConcurrentCapacity
	}
	if capacity < model.MinCapacity {
		return nil, validationError("concurrent_capacity must be at least %d", model.MinCapacity)
	}
	if in.Account != nil && in.UserID != nil {
		return nil, validationError("account and user_id are mutually exclusive")
	}

	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	if _, err := sess.Providers().GetByName(ctx, name); err == nil {
		return nil, ErrProviderNameTaken
	} else if !errors.Is(err, ports.ErrNotFound) {
		return nil, storeError("load provider", err, nil)
	}

	p := &model.Provider{Name: name, Description: desc, LogoURL: logo, ConcurrentCapacity: capacity}
	switch {
	case in.Account != nil:
		u, err := s.users.createUser(ctx, sess, *in.Account, model.RoleProvider)
		if err != nil {
			return nil, err
		}
		p.UserID = &u.ID
	case in.UserID != nil:
		if _, err := sess.Users().GetByID(ctx, *in.UserID); err != nil {
			return nil, storeError("load user", err, ErrUserNotFound)
		}
		p.UserID = in.UserID
	}

	if err := sess.Providers().Create(ctx, p); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return nil, ErrProviderNameTaken
		}
		return nil, storeError("create provider", err, nil)
	}
	if _, err := sess.Commit(); err != nil {
		return nil, storeError("commit provider", err, nil)
	}
	s.log.Info("provider created", zap.Uint64("provider_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// Get returns a provider with the services it offers.
func (s *ProviderService) Get(ctx context.Context, id uint64) (*model.Provider, error) {
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()
	return loadProviderDetails(ctx, sess, id)
}

func loadProviderDetails(ctx context.Context, sess ports.Session, id uint64) (*model.Provider, error) {
	p, err := sess.Providers().GetByID(ctx, id)
	if err != nil {
		return nil, storeError("load provider", err, ErrProviderNotFound)
	}
	ids, err := sess.Links().ServiceIDs(ctx, id)
	if err != nil {
		return nil, storeError("load provider services", err, nil)
	}
	p.Services, err = sess.ServiceOfferings().GetByIDs(ctx, ids)
	if err != nil {
		return nil, storeError("load provider services", err, nil)
	}
	return p, nil
}

// List pages all providers ordered by id.
func (s *ProviderService) List(ctx context.Context, params pagination.Params) (pagination.Page[model.Provider], error) {
	params = params.Normalize()
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return pagination.Page[model.Provider]{}, err
	}
	defer sess.Rollback()

	items, total, err := sess.Providers().List(ctx, params)
	if err != nil {
		return pagination.Page[model.Provider]{}, storeError("list providers", err, nil)
	}
	return pagination.New(items, total, params), nil
}

// Update applies a partial update.
func (s *ProviderService) Update(ctx context.Context, id uint64, in ProviderUpdate) (*model.Provider, error) {
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	p, err := sess.Providers().GetByID(ctx, id)
	if err != nil {
		return nil, storeError("load provider", err, ErrProviderNotFound)
	}
	if in.Name != nil {
		name, err := cleanName(*in.Name)
		if err != nil {
			return nil, err
		}
		if name != p.Name {
			if _, err := sess.Providers().GetByName(ctx, name); err == nil {
				return nil, ErrProviderNameTaken
			} else if !errors.Is(err, ports.ErrNotFound) {
				return nil, storeError("load provider", err, nil)
			}
		}
		p.Name = name
	}
	if in.Description != nil {
		if p.Description, err = cleanOptional("description", in.Description, maxDescriptionLen); err != nil {
			return nil, err
		}
	}
	if in.LogoURL != nil {
		if p.LogoURL, err = cleanOptional("logo_url", in.LogoURL, 500); err != nil {
			return nil, err
		}
	}
	if in.ConcurrentCapacity != nil {
		if *in.ConcurrentCapacity < model.MinCapacity {
			return nil, validationError("concurrent_capacity must be at least %d", model.MinCapacity)
		}
		p.ConcurrentCapacity = *in.ConcurrentCapacity
	}

	if err := sess.Providers().Update(ctx, p); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return nil, ErrProviderNameTaken
		}
		return nil, storeError("update provider", err, ErrProviderNotFound)
	}
	if _, err := sess.Commit(); err != nil {
		return nil, storeError("commit provider", err, nil)
	}
	return p, nil
}

// Delete removes a provider.  It reports false when the provider does
// not exist and ErrProviderHasBookings when bookings still reference it.
func (s *ProviderService) Delete(ctx context.Context, id uint64) (bool, error) {
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer sess.Rollback()

	err = sess.Providers().Delete(ctx, id)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return false, nil
	case errors.Is(err, ports.ErrReferenced):
		return false, ErrProviderHasBookings
	case err != nil:
		return false, storeError("delete provider", err, nil)
	}
	if _, err := sess.Commit(); err != nil {
		return false, storeError("commit provider", err, nil)
	}
	s.log.Info("provider deleted", zap.Uint64("provider_id", id))
	return true, nil
}

// ReplaceServices makes the provider's offered services exactly
// serviceIDs.  Only the difference against the current set is written.
// A nil list or an unknown id is rejected.
func (s *ProviderService) ReplaceServices(ctx context.Context, id uint64, serviceIDs []uint64) (*model.Provider, error) {
	if serviceIDs == nil {
		return nil, validationError("service ids must not be null")
	}
	want := uniqueIDs(serviceIDs)

	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	if _, err := sess.Providers().GetByID(ctx, id); err != nil {
		return nil, storeError("load provider", err, ErrProviderNotFound)
	}
	found, err := sess.ServiceOfferings().GetByIDs(ctx, want)
	if err != nil {
		return nil, storeError("load service offerings", err, nil)
	}
	if len(found) != len(want) {
		return nil, validationError("one or more service ids are invalid")
	}
	current, err := sess.Links().ServiceIDs(ctx, id)
	if err != nil {
		return nil, storeError("load provider services", err, nil)
	}

	add, remove := diffIDs(current, want)
	if err := sess.Links().Remove(ctx, linksForProvider(id, remove)...); err != nil {
		return nil, storeError("unlink services", err, nil)
	}
	if err := sess.Links().Add(ctx, linksForProvider(id, add)...); err != nil {
		return nil, storeError("link services", err, nil)
	}

	p, err := loadProviderDetails(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Commit(); err != nil {
		return nil, storeError("commit provider services", err, nil)
	}
	return p, nil
}

func linksForProvider(providerID uint64, serviceIDs []uint64) []ports.Link {
	out := make([]ports.Link, len(serviceIDs))
	for i, sid := range serviceIDs {
		out[i] = ports.Link{ProviderID: providerID, ServiceOfferingID: sid}
	}
	return out
}
