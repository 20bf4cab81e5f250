package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/ports"
	"github.com/iliyamo/service-booking/internal/utils"
)

// TokenSettings controls token issuance and password hashing.
type TokenSettings struct {
	Secret         string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// RegisterInput is the input of Register.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthSession is the result of a successful login or refresh.
type AuthSession struct {
	User    model.User
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// UserService registers accounts and manages their token sessions.
type UserService struct {
	uow    ports.UnitOfWork
	tokens TokenSettings
	log    *zap.Logger
}

func NewUserService(uow ports.UnitOfWork, tokens TokenSettings, log *zap.Logger) (*UserService, error) {
	if uow == nil {
		return nil, errors.New("user service: unit of work is required")
	}
	if tokens.Secret == "" {
		return nil, errors.New("user service: token secret is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{uow: uow, tokens: tokens, log: log}, nil
}

// Register creates a CLIENT account.  Provider accounts are created by
// administrators through ProviderService.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	u, err := s.createUser(ctx, sess, in, model.RoleClient)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Commit(); err != nil {
		return nil, storeError("commit user", err, nil)
	}
	s.log.Info("user registered", zap.Uint64("user_id", u.ID))
	return u, nil
}

// createUser validates in and inserts the account inside sess.
func (s *UserService) createUser(ctx context.Context, sess ports.Session, in RegisterInput, role model.Role) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || len(name) > 100 {
		return nil, validationError("name must be 1 to 100 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, validationError("email is invalid")
	}
	if err := utils.CheckPassword(in.Password); err != nil {
		return nil, validationError("%v", err)
	}

	if _, err := sess.Users().GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ports.ErrNotFound) {
		return nil, storeError("load user", err, nil)
	}

	hash, err := utils.HashPassword(in.Password, s.tokens.BcryptCost)
	if err != nil {
		return nil, err
	}
	u := &model.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := sess.Users().Create(ctx, u); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, storeError("create user", err, nil)
	}
	return u, nil
}

// Login verifies credentials and opens a new token session.  Unknown
// emails and wrong passwords are indistinguishable.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthSession, error) {
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	u, err := sess.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			utils.VerifyPassword("", password)
		}
		return nil, storeError("load user", err, ErrInvalidCredentials)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	out, err := s.issue(ctx, sess, u)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Commit(); err != nil {
		return nil, storeError("commit session", err, nil)
	}
	return out, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new pair is issued.
func (s *UserService) Refresh(ctx context.Context, raw string) (*AuthSession, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, validationError("refresh_token is required")
	}
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	hash := utils.HashRefreshRaw(raw)
	userID, err := sess.Tokens().Validate(ctx, hash)
	if err != nil {
		return nil, storeError("validate refresh token", err, ErrInvalidCredentials)
	}
	if err := sess.Tokens().RevokeByHash(ctx, hash); err != nil {
		return nil, storeError("revoke refresh token", err, nil)
	}
	u, err := sess.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, storeError("load user", err, ErrInvalidCredentials)
	}
	out, err := s.issue(ctx, sess, u)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Commit(); err != nil {
		return nil, storeError("commit session", err, nil)
	}
	return out, nil
}

// Logout revokes one refresh token.
func (s *UserService) Logout(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return validationError("refresh_token is required")
	}
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer sess.Rollback()

	hash := utils.HashRefreshRaw(raw)
	if _, err := sess.Tokens().Validate(ctx, hash); err != nil {
		return storeError("validate refresh token", err, ErrInvalidCredentials)
	}
	if err := sess.Tokens().RevokeByHash(ctx, hash); err != nil {
		return storeError("revoke refresh token", err, nil)
	}
	_, err = sess.Commit()
	return err
}

// LogoutAll revokes every refresh token of a user.
func (s *UserService) LogoutAll(ctx context.Context, userID uint64) error {
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer sess.Rollback()

	if err := sess.Tokens().RevokeAllForUser(ctx, userID); err != nil {
		return storeError("revoke refresh tokens", err, nil)
	}
	n, err := sess.Commit()
	if err != nil {
		return err
	}
	s.log.Info("sessions revoked", zap.Uint64("user_id", userID), zap.Int64("tokens", n))
	return nil
}

// Get returns a user account.
func (s *UserService) Get(ctx context.Context, id uint64) (*model.User, error) {
	sess, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Rollback()

	u, err := sess.Users().GetByID(ctx, id)
	if err != nil {
		return nil, storeError("load user", err, ErrUserNotFound)
	}
	return u, nil
}

func (s *UserService) issue(ctx context.Context, sess ports.Session, u *model.User) (*AuthSession, error) {
	access, err := utils.NewAccessToken(s.tokens.Secret, u.ID, u.Role, s.tokens.AccessTTLMin)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.NewRefreshToken(s.tokens.RefreshTTLDays)
	if err != nil {
		return nil, err
	}
	if err := sess.Tokens().Store(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, storeError("store refresh token", err, nil)
	}
	return &AuthSession{User: *u, Access: access, Refresh: refresh}, nil
}
