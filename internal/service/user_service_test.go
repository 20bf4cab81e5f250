package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/utils"
)

const testSecret = "test-secret"

func newUsers(t *testing.T) (*UserService, *memDB) {
	t.Helper()
	db := newMemDB()
	svc, err := NewUserService(db, TokenSettings{Secret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return svc, db
}

func TestRegister(t *testing.T) {
	svc, _ := newUsers(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: " Alice@Example.com ", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != model.RoleClient || u.Email != "alice@example.com" || u.PasswordHash == "secret1" {
		t.Fatalf("user = %+v", u)
	}
	if _, err := svc.Register(ctx, RegisterInput{Name: "Other", Email: "alice@example.com", Password: "secret1"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate err = %v", err)
	}

	bad := []RegisterInput{
		{Name: "", Email: "a@b.com", Password: "secret1"},
		{Name: "A", Email: "not-an-email", Password: "secret1"},
		{Name: "A", Email: "a@b.com", Password: "short"},
		{Name: "A", Email: "a@b.com", Password: strings.Repeat("x", 73)},
	}
	for _, in := range bad {
		if _, err := svc.Register(ctx, in); !errors.Is(err, ErrValidation) {
			t.Errorf("Register(%+v) err = %v", in, err)
		}
	}
}

func TestLoginAndRefreshRotation(t *testing.T) {
	svc, _ := newUsers(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v", err)
	}
	if _, err := svc.Login(ctx, " Alice@Example.com", "secret1"); err != nil {
		t.Fatalf("login with unnormalized email: %v", err)
	}

	s1, err := svc.Login(ctx, "alice@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	uid, role, err := utils.ParseAccessToken(testSecret, s1.Access.Token)
	if err != nil || uid != u.ID || role != model.RoleClient {
		t.Fatalf("access token = %d %s %v", uid, role, err)
	}

	s2, err := svc.Refresh(ctx, s1.Refresh.Raw)
	if err != nil {
		t.Fatal(err)
	}
	if s2.Refresh.Raw == s1.Refresh.Raw {
		t.Fatal("refresh token not rotated")
	}
	if _, err := svc.Refresh(ctx, s1.Refresh.Raw); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("reused refresh token err = %v", err)
	}

	if err := svc.Logout(ctx, s2.Refresh.Raw); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Refresh(ctx, s2.Refresh.Raw); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("refresh after logout err = %v", err)
	}
	if err := svc.Logout(ctx, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty logout err = %v", err)
	}
}

func TestLogoutAll(t *testing.T) {
	svc, _ := newUsers(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := svc.Login(ctx, "alice@example.com", "secret1")
	b, _ := svc.Login(ctx, "alice@example.com", "secret1")

	if err := svc.LogoutAll(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	for _, s := range []*AuthSession{a, b} {
		if _, err := svc.Refresh(ctx, s.Refresh.Raw); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("refresh after logout-all err = %v", err)
		}
	}
}

func TestGetUser(t *testing.T) {
	svc, db := newUsers(t)
	u := db.addUser("Alice", model.RoleAdmin)
	got, err := svc.Get(context.Background(), u.ID)
	if err != nil || got.Role != model.RoleAdmin {
		t.Fatalf("get = %+v, %v", got, err)
	}
	if _, err := svc.Get(context.Background(), 404); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}
