package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/service-booking/internal/model"
	"github.com/iliyamo/service-booking/internal/pagination"
	"github.com/iliyamo/service-booking/internal/ports"
	"github.com/iliyamo/service-booking/internal/queue"
)

// memDB is an in-memory ports.UnitOfWork.  Booking writes are staged in
// the session and become visible to other sessions only on Commit, and
// every read sees the latest committed rows, as under READ COMMITTED.
// The provider lock taken by GetByIDForUpdate is held until the session
// ends.  Other entities are written through immediately.
type memDB struct {
	mu        sync.Mutex
	nextID    uint64
	providers map[uint64]model.Provider
	services  map[uint64]model.ServiceOffering
	users     map[uint64]model.User
	bookings  map[uint64]model.Booking
	links     map[ports.Link]bool
	tokens    map[string]model.RefreshToken
	locks     map[uint64]*sync.Mutex

	commits    int
	commitErr  error
	beginCount int
}

func newMemDB() *memDB {
	return &memDB{
		providers: map[uint64]model.Provider{},
		services:  map[uint64]model.ServiceOffering{},
		users:     map[uint64]model.User{},
		bookings:  map[uint64]model.Booking{},
		links:     map[ports.Link]bool{},
		tokens:    map[string]model.RefreshToken{},
		locks:     map[uint64]*sync.Mutex{},
	}
}

func (db *memDB) id() uint64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) Begin(ctx context.Context) (ports.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mu.Lock()
	db.beginCount++
	db.mu.Unlock()
	return &memSession{db: db}, nil
}

func (db *memDB) addUser(name string, role model.Role) model.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	u := model.User{ID: db.id(), Name: name, Email: strings.ToLower(name) + "@example.com", Role: role}
	db.users[u.ID] = u
	return u
}

func (db *memDB) addProvider(name string, capacity int, userID *uint64) model.Provider {
	db.mu.Lock()
	defer db.mu.Unlock()
	p := model.Provider{ID: db.id(), Name: name, ConcurrentCapacity: capacity, UserID: userID}
	db.providers[p.ID] = p
	return p
}

func (db *memDB) addService(name string, hours int) model.ServiceOffering {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := model.ServiceOffering{ID: db.id(), Name: name, TotalHours: hours}
	db.services[s.ID] = s
	return s
}

func (db *memDB) booking(id uint64) model.Booking {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.bookings[id]
}

func (db *memDB) commitCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.commits
}

type memSession struct {
	db      *memDB
	held    []*sync.Mutex
	done    bool
	changes int64
	staged  map[uint64]model.Booking
}

// bookings returns the committed bookings overlaid with the session's
// own staged writes.  The caller holds db.mu.
func (s *memSession) bookings() map[uint64]model.Booking {
	out := make(map[uint64]model.Booking, len(s.db.bookings)+len(s.staged))
	for id, b := range s.db.bookings {
		out[id] = b
	}
	for id, b := range s.staged {
		out[id] = b
	}
	return out
}

func (s *memSession) Providers() ports.ProviderStore               { return memProviders{s} }
func (s *memSession) ServiceOfferings() ports.ServiceOfferingStore { return memServices{s} }
func (s *memSession) Links() ports.LinkStore                       { return memLinks{s} }
func (s *memSession) Users() ports.UserStore                       { return memUsers{s} }
func (s *memSession) Bookings() ports.BookingStore                 { return memBookings{s} }
func (s *memSession) Tokens() ports.TokenStore                     { return memTokens{s} }

func (s *memSession) Commit() (int64, error) {
	if s.done {
		return 0, errors.New("session already finished")
	}
	// Staged rows are published before the provider locks are released.
	defer s.release()
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.commitErr != nil {
		return 0, s.db.commitErr
	}
	for id, b := range s.staged {
		s.db.bookings[id] = b
	}
	s.staged = nil
	s.db.commits++
	return s.changes, nil
}

func (s *memSession) Rollback() error {
	if s.done {
		return nil
	}
	s.staged = nil
	s.release()
	return nil
}

func (s *memSession) release() {
	s.done = true
	for _, m := range s.held {
		m.Unlock()
	}
	s.held = nil
}

func (s *memSession) lock(providerID uint64) {
	s.db.mu.Lock()
	m, ok := s.db.locks[providerID]
	if !ok {
		m = &sync.Mutex{}
		s.db.locks[providerID] = m
	}
	s.db.mu.Unlock()
	m.Lock()
	s.held = append(s.held, m)
}

type memProviders struct{ s *memSession }

func (r memProviders) GetByID(_ context.Context, id uint64) (*model.Provider, error) {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	p, ok := r.s.db.providers[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &p, nil
}

func (r memProviders) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Provider, error) {
	r.s.lock(id)
	return r.GetByID(ctx, id)
}

func (r memProviders) GetByUserID(_ context.Context, userID uint64) (*model.Provider, error) {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	for _, p := range r.s.db.providers {
		if p.UserID != nil && *p.UserID == userID {
			return &p, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r memProviders) GetByName(_ context.Context, name string) (*model.Provider, error) {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	for _, p := range r.s.db.providers {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r memProviders) GetByIDs(_ context.Context, ids []uint64) ([]model.Provider, error) {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	out := []model.Provider{}
	for _, id := range ids {
		if p, ok := r.s.db.providers[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memProviders) List(_ context.Context, params pagination.Params) ([]model.Provider, int, error) {
	r.s.db.mu.Lock()
	all := make([]model.Provider, 0, len(r.s.db.providers))
	for _, p := range r.s.db.providers {
		all = append(all, p)
	}
	r.s.db.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	page := pagination.Slice(all, params)
	return page.Items, page.TotalCount, nil
}

func (r memProviders) Create(_ context.Context, p *model.Provider) error {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	for _, other := range r.s.db.providers {
		if other.Name == p.Name {
			return ports.ErrDuplicate
		}
	}
	p.ID = r.s.db.id()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	r.s.db.providers[p.ID] = *p
	r.s.changes++
	return nil
}

func (r memProviders) Update(_ context.Context, p *model.Provider) error {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	if _, ok := r.s.db.providers[p.ID]; !ok {
		return ports.ErrNotFound
	}
	cp := *p
	cp.Services = nil
	r.s.db.providers[p.ID] = cp
	r.s.changes++
	return nil
}

func (r memProviders) Delete(_ context.Context, id uint64) error {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	if _, ok := r.s.db.providers[id]; !ok {
		return ports.ErrNotFound
	}
	for _, b := range r.s.db.bookings {
		if b.ProviderID == id {
			return ports.ErrReferenced
		}
	}
	delete(r.s.db.providers, id)
	for l := range r.s.db.links {
		if l.ProviderID == id {
			delete(r.s.db.links, l)
		}
	}
	r.s.changes++
	return nil
}

type memServices struct{ s *memSession }

func (r memServices) GetByID(_ context.Context, id uint64) (*model.ServiceOffering, error) {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	so, ok := r.s.db.services[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &so, nil
}

func (r memServices) GetByName(_ context.Context, name string) (*model.ServiceOffering, error) {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	for _, so := range r.s.db.services {
		if so.Name == name {
			return &so, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r memServices) GetByIDs(_ context.Context, ids []uint64) ([]model.ServiceOffering, error) {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	out := []model.ServiceOffering{}
	for _, id := range ids {
		if so, ok := r.s.db.services[id]; ok {
			out = append(out, so)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memServices) List(_ context.Context, params pagination.Params) ([]model.ServiceOffering, int, error) {
	r.s.db.mu.Lock()
	all := make([]model.ServiceOffering, 0, len(r.s.db.services))
	for _, so := range r.s.db.services {
		all = append(all, so)
	}
	r.s.db.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	page := pagination.Slice(all, params)
	return page.Items, page.TotalCount, nil
}

func (r memServices) Create(_ context.Context, so *model.ServiceOffering) error {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	for _, other := range r.s.db.services {
		if other.Name == so.Name {
			return ports.ErrDuplicate
		}
	}
	so.ID = r.s.db.id()
	r.s.db.services[so.ID] = *so
	r.s.changes++
	return nil
}

func (r memServices) Update(_ context.Context, so *model.ServiceOffering) error {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	if _, ok := r.s.db.services[so.ID]; !ok {
		return ports.ErrNotFound
	}
	cp := *so
	cp.Providers = nil
	r.s.db.services[so.ID] = cp
	r.s.changes++
	return nil
}

func (r memServices) Delete(_ context.Context, id uint64) error {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	if _, ok := r.s.db.services[id]; !ok {
		return ports.ErrNotFound
	}
	for _, b := range r.s.db.bookings {
		if b.ServiceOfferingID == id {
			return ports.ErrReferenced
		}
	}
	delete(r.s.db.services, id)
	for l := range r.s.db.links {
		if l.ServiceOfferingID == id {
			delete(r.s.db.links, l)
		}
	}
	r.s.changes++
	return nil
}

type memLinks struct{ s *memSession }

func (r memLinks) ServiceIDs(_ context.Context, providerID uint64) ([]uint64, error) {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	out := []uint64{}
	for l := range r.s.db.links {
		if l.ProviderID == providerID {
			out = append(out, l.ServiceOfferingID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r memLinks) ProviderIDs(_ context.Context, serviceOfferingID uint64) ([]uint64, error) {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	out := []uint64{}
	for l := range r.s.db.links {
		if l.ServiceOfferingID == serviceOfferingID {
			out = append(out, l.ProviderID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r memLinks) Add(_ context.Context, links ...ports.Link) error {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	for _, l := range links {
		if !r.s.db.links[l] {
			r.s.db.links[l] = true
			r.s.changes++
		}
	}
	return nil
}

func (r memLinks) Remove(_ context.Context, links ...ports.Link) error {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	for _, l := range links {
		if r.s.db.links[l] {
			delete(r.s.db.links, l)
			r.s.changes++
		}
	}
	return nil
}

type memUsers struct{ s *memSession }

func (r memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	u, ok := r.s.db.users[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r memUsers) Create(_ context.Context, u *model.User) error {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	for _, other := range r.s.db.users {
		if other.Email == u.Email {
			return ports.ErrDuplicate
		}
	}
	u.ID = r.s.db.id()
	r.s.db.users[u.ID] = *u
	r.s.changes++
	return nil
}

type memBookings struct{ s *memSession }

func (r memBookings) find(match func(model.Booking) bool) (*model.Booking, error) {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	for _, b := range r.s.bookings() {
		if match(b) {
			return &b, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r memBookings) GetByIDAndUser(_ context.Context, id, userID uint64) (*model.Booking, error) {
	return r.find(func(b model.Booking) bool { return b.ID == id && b.UserID == userID })
}

func (r memBookings) GetByIDAndProvider(_ context.Context, id, providerID uint64) (*model.Booking, error) {
	return r.find(func(b model.Booking) bool { return b.ID == id && b.ProviderID == providerID })
}

func (r memBookings) detail(b model.Booking) model.BookingDetail {
	return model.BookingDetail{
		Booking:             b,
		ProviderName:        r.s.db.providers[b.ProviderID].Name,
		ServiceOfferingName: r.s.db.services[b.ServiceOfferingID].Name,
		UserName:            r.s.db.users[b.UserID].Name,
	}
}

func (r memBookings) GetWithDetails(_ context.Context, id uint64) (*model.BookingDetail, error) {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	b, ok := r.s.bookings()[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	d := r.detail(b)
	return &d, nil
}

func (r memBookings) CountConflicting(_ context.Context, providerID uint64, w model.Window, excludeID *uint64) (int, error) {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	n := 0
	for _, b := range r.s.bookings() {
		if b.ProviderID != providerID || b.Status == model.BookingCancelled {
			continue
		}
		if excludeID != nil && b.ID == *excludeID {
			continue
		}
		if (model.Window{Start: b.InitialDate, End: b.FinalDate}).Overlaps(w) {
			n++
		}
	}
	return n, nil
}

func (r memBookings) list(match func(model.Booking) bool, params pagination.Params) ([]model.BookingDetail, int, error) {
	r.s.db.mu.Lock()
	var all []model.BookingDetail
	for _, b := range r.s.bookings() {
		if match(b) {
			all = append(all, r.detail(b))
		}
	}
	r.s.db.mu.Unlock()
	sort.Slice(all, func(i, j int) bool {
		if !all[i].InitialDate.Equal(all[j].InitialDate) {
			return all[i].InitialDate.After(all[j].InitialDate)
		}
		return all[i].ID > all[j].ID
	})
	page := pagination.Slice(all, params)
	return page.Items, page.TotalCount, nil
}

func (r memBookings) ListByUser(_ context.Context, userID uint64, params pagination.Params) ([]model.BookingDetail, int, error) {
	return r.list(func(b model.Booking) bool { return b.UserID == userID }, params)
}

func (r memBookings) ListByProvider(_ context.Context, providerID uint64, params pagination.Params) ([]model.BookingDetail, int, error) {
	return r.list(func(b model.Booking) bool { return b.ProviderID == providerID }, params)
}

func (r memBookings) Create(_ context.Context, b *model.Booking) error {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	b.ID = r.s.db.id()
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	r.s.stage(*b)
	return nil
}

func (r memBookings) Update(_ context.Context, b *model.Booking) error {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	if _, ok := r.s.bookings()[b.ID]; !ok {
		return ports.ErrNotFound
	}
	r.s.stage(*b)
	return nil
}

func (s *memSession) stage(b model.Booking) {
	if s.staged == nil {
		s.staged = map[uint64]model.Booking{}
	}
	s.staged[b.ID] = b
	s.changes++
}

type memTokens struct{ s *memSession }

func (r memTokens) Store(_ context.Context, userID uint64, hash string, exp time.Time) error {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	r.s.db.tokens[hash] = model.RefreshToken{ID: r.s.db.id(), UserID: userID, TokenHash: hash, ExpiresAt: exp}
	r.s.changes++
	return nil
}

func (r memTokens) Validate(_ context.Context, hash string) (uint64, error) {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	t, ok := r.s.db.tokens[hash]
	if !ok || t.RevokedAt != nil || time.Now().After(t.ExpiresAt) {
		return 0, ports.ErrNotFound
	}
	return t.UserID, nil
}

func (r memTokens) RevokeByHash(_ context.Context, hash string) error {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	if t, ok := r.s.db.tokens[hash]; ok && t.RevokedAt == nil {
		now := time.Now()
		t.RevokedAt = &now
		r.s.db.tokens[hash] = t
		r.s.changes++
	}
	return nil
}

func (r memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	r.s.db.mu.Lock()
	defer r.s.db.mu.Unlock()
	now := time.Now()
	for h, t := range r.s.db.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			r.s.db.tokens[h] = t
			r.s.changes++
		}
	}
	return nil
}

// recordingPublisher keeps published events; fail makes every publish
// return an error.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	fail   bool
}

func (p *recordingPublisher) PublishBookingEvent(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []queue.BookingEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.BookingEventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func newTestBookingService(t *testing.T) (*BookingService, *memDB, *recordingPublisher) {
	t.Helper()
	db := newMemDB()
	pub := &recordingPublisher{}
	svc, err := NewBookingService(db, pub, zap.NewNop())
	if err != nil {
		t.Fatalf("NewBookingService: %v", err)
	}
	return svc, db, pub
}

func at(hour int) time.Time {
	return time.Date(2026, 6, 1, hour, 0, 0, 0, time.UTC)
}
