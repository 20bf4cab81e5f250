package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/pagination"
	"github.com/iliyamo/service-booking/internal/ports"
)

func newCatalog(t *testing.T) (*ProviderService, *ServiceOfferingService, *memDB) {
	t.Helper()
	db := newMemDB()
	users, err := NewUserService(db, TokenSettings{Secret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	providers, err := NewProviderService(db, users, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	services, err := NewServiceOfferingService(db, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return providers, services, db
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestDiffIDs(t *testing.T) {
	cases := []struct {
		current, want, add, remove []uint64
	}{
		{nil, []uint64{1, 2}, []uint64{1, 2}, nil},
		{[]uint64{1, 2}, []uint64{}, nil, []uint64{1, 2}},
		{[]uint64{1, 2, 3}, []uint64{3, 4, 4, 1}, []uint64{4}, []uint64{2}},
		{[]uint64{5}, []uint64{5}, nil, nil},
	}
	for _, tc := range cases {
		add, remove := diffIDs(tc.current, tc.want)
		if !reflect.DeepEqual(add, tc.add) || !reflect.DeepEqual(remove, tc.remove) {
			t.Errorf("diffIDs(%v, %v) = %v, %v; want %v, %v", tc.current, tc.want, add, remove, tc.add, tc.remove)
		}
	}
}

func TestCleanOptional(t *testing.T) {
	if v, err := cleanOptional("description", strPtr("  "), 10); v != nil || err != nil {
		t.Fatalf("blank = %v, %v", v, err)
	}
	if v, err := cleanOptional("description", strPtr(" hi "), 10); err != nil || *v != "hi" {
		t.Fatalf("trimmed = %v, %v", v, err)
	}
	if _, err := cleanOptional("description", strPtr("much too long"), 5); !errors.Is(err, ErrValidation) {
		t.Fatalf("long err = %v", err)
	}
}

func TestProviderCreate(t *testing.T) {
	providers, _, db := newCatalog(t)
	ctx := context.Background()

	p, err := providers.Create(ctx, ProviderCreate{Name: "  Barber ", Description: strPtr("Cuts")})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Barber" || p.ConcurrentCapacity != model.MinCapacity || p.ID == 0 {
		t.Fatalf("provider = %+v", p)
	}

	if _, err := providers.Create(ctx, ProviderCreate{Name: "Barber"}); !errors.Is(err, ErrProviderNameTaken) {
		t.Fatalf("duplicate err = %v", err)
	}
	if _, err := providers.Create(ctx, ProviderCreate{Name: "Zero", ConcurrentCapacity: intPtr(0)}); !errors.Is(err, ErrValidation) {
		t.Fatalf("capacity 0 err = %v", err)
	}
	if _, err := providers.Create(ctx, ProviderCreate{Name: ""}); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty name err = %v", err)
	}

	withAccount, err := providers.Create(ctx, ProviderCreate{
		Name:               "Clinic",
		ConcurrentCapacity: intPtr(3),
		Account:            &RegisterInput{Name: "Dr Who", Email: "Doctor@Example.com", Password: "tardis42"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if withAccount.UserID == nil {
		t.Fatal("account not linked")
	}
	u := db.users[*withAccount.UserID]
	if u.Role != model.RoleProvider || u.Email != "doctor@example.com" {
		t.Fatalf("linked user = %+v", u)
	}

	if _, err := providers.Create(ctx, ProviderCreate{Name: "Ghost", UserID: func() *uint64 { v := uint64(999); return &v }()}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user err = %v", err)
	}
}

func TestProviderUpdate(t *testing.T) {
	providers, _, db := newCatalog(t)
	ctx := context.Background()
	p, err := providers.Create(ctx, ProviderCreate{Name: "Barber", Description: strPtr("Cuts"), LogoURL: strPtr("http://logo")})
	if err != nil {
		t.Fatal(err)
	}
	db.addProvider("Salon", 1, nil)

	got, err := providers.Update(ctx, p.ID, ProviderUpdate{Description: strPtr(""), ConcurrentCapacity: intPtr(4)})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Barber" || got.Description != nil || got.LogoURL == nil || got.ConcurrentCapacity != 4 {
		t.Fatalf("partial update = %+v", got)
	}
	if _, err := providers.Update(ctx, p.ID, ProviderUpdate{Name: strPtr("Salon")}); !errors.Is(err, ErrProviderNameTaken) {
		t.Fatalf("rename onto taken name err = %v", err)
	}
	if _, err := providers.Update(ctx, p.ID, ProviderUpdate{Name: strPtr("Barber")}); err != nil {
		t.Fatalf("rename to own name: %v", err)
	}
	if _, err := providers.Update(ctx, 999, ProviderUpdate{}); !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestProviderDelete(t *testing.T) {
	providers, _, db := newCatalog(t)
	ctx := context.Background()
	free := db.addProvider("Free", 1, nil)
	busy := db.addProvider("Busy", 1, nil)
	so := db.addService("Cut", 1)
	db.bookings[100] = model.Booking{ID: 100, ProviderID: busy.ID, ServiceOfferingID: so.ID, Status: model.BookingPending, InitialDate: at(9), FinalDate: at(10)}

	if ok, err := providers.Delete(ctx, free.ID); !ok || err != nil {
		t.Fatalf("delete = %v, %v", ok, err)
	}
	if ok, err := providers.Delete(ctx, free.ID); ok || err != nil {
		t.Fatalf("second delete = %v, %v", ok, err)
	}
	if _, err := providers.Delete(ctx, busy.ID); !errors.Is(err, ErrProviderHasBookings) {
		t.Fatalf("delete with bookings err = %v", err)
	}
}

func TestReplaceServices(t *testing.T) {
	providers, services, db := newCatalog(t)
	ctx := context.Background()
	p := db.addProvider("Barber", 1, nil)
	a := db.addService("A", 1)
	b := db.addService("B", 1)
	c := db.addService("C", 1)

	got, err := providers.ReplaceServices(ctx, p.ID, []uint64{a.ID, b.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Services) != 2 {
		t.Fatalf("services = %+v", got.Services)
	}

	got, err = providers.ReplaceServices(ctx, p.ID, []uint64{c.ID, b.ID, c.ID})
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]uint64, len(got.Services))
	for i, so := range got.Services {
		ids[i] = so.ID
	}
	if !reflect.DeepEqual(ids, []uint64{b.ID, c.ID}) {
		t.Fatalf("service ids = %v", ids)
	}
	if db.links[ports.Link{ProviderID: p.ID, ServiceOfferingID: a.ID}] {
		t.Fatal("stale link kept")
	}

	so, err := services.Get(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(so.Providers) != 1 || so.Providers[0].ID != p.ID {
		t.Fatalf("reverse side = %+v", so.Providers)
	}

	if _, err := providers.ReplaceServices(ctx, p.ID, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("nil list err = %v", err)
	}
	if _, err := providers.ReplaceServices(ctx, p.ID, []uint64{a.ID, 999}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown id err = %v", err)
	}
	if _, err := providers.ReplaceServices(ctx, 999, []uint64{}); !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("missing provider err = %v", err)
	}

	got, err = providers.ReplaceServices(ctx, p.ID, []uint64{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Services) != 0 {
		t.Fatalf("cleared services = %+v", got.Services)
	}
}

func TestReplaceProviders(t *testing.T) {
	_, services, db := newCatalog(t)
	ctx := context.Background()
	so := db.addService("Cut", 1)
	p := db.addProvider("Barber", 1, nil)
	q := db.addProvider("Salon", 1, nil)

	got, err := services.ReplaceProviders(ctx, so.ID, []uint64{q.ID, p.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Providers) != 2 || got.Providers[0].ID != p.ID {
		t.Fatalf("providers = %+v", got.Providers)
	}
	if _, err := services.ReplaceProviders(ctx, so.ID, []uint64{404}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown provider err = %v", err)
	}
}

func TestServiceOfferingLifecycle(t *testing.T) {
	_, services, db := newCatalog(t)
	ctx := context.Background()

	so, err := services.Create(ctx, ServiceOfferingCreate{Name: "Massage", TotalHours: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := services.Create(ctx, ServiceOfferingCreate{Name: "Massage", TotalHours: 1}); !errors.Is(err, ErrServiceNameTaken) {
		t.Fatalf("duplicate err = %v", err)
	}
	if _, err := services.Create(ctx, ServiceOfferingCreate{Name: "Nothing", TotalHours: 0}); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero hours err = %v", err)
	}

	got, err := services.Update(ctx, so.ID, ServiceOfferingUpdate{TotalHours: intPtr(3), Description: strPtr("Deep tissue")})
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalHours != 3 || got.Description == nil || got.Name != "Massage" {
		t.Fatalf("updated = %+v", got)
	}
	if _, err := services.Update(ctx, so.ID, ServiceOfferingUpdate{TotalHours: intPtr(0)}); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero hours update err = %v", err)
	}

	for i := 0; i < 11; i++ {
		db.addService("extra", 1)
	}
	page, err := services.List(ctx, pagination.Params{PageNumber: 2, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalCount != 12 || len(page.Items) != 2 || page.HasNextPage {
		t.Fatalf("page = %+v", page)
	}

	if ok, err := services.Delete(ctx, so.ID); !ok || err != nil {
		t.Fatalf("delete = %v, %v", ok, err)
	}
	if _, err := services.Get(ctx, so.ID); !errors.Is(err, ErrServiceOfferingNotFound) {
		t.Fatalf("get deleted err = %v", err)
	}
}
