package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"local-services/internal/data/entity"
	"local-services/internal/data/repository"
	"local-services/pkg/events"
	"local-services/pkg/geo"
	"local-services/pkg/storage"
	"local-services/pkg/token"
	"local-services/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// memStore backs every fake repository so joins see the same data.
type memStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*entity.User
	providers map[uuid.UUID]*entity.Provider
	services  map[uuid.UUID]*entity.Service
	bookings  map[uuid.UUID]*entity.Booking
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[uuid.UUID]*entity.User),
		providers: make(map[uuid.UUID]*entity.Provider),
		services:  make(map[uuid.UUID]*entity.Service),
		bookings:  make(map[uuid.UUID]*entity.Booking),
	}
}

func (m *memStore) repository() *repository.Repository {
	return &repository.Repository{
		User:     &fakeUserRepo{m},
		OTP:      &fakeOTPRepo{m},
		Provider: &fakeProviderRepo{m},
		Service:  &fakeServiceRepo{m},
		Booking:  &fakeBookingRepo{m},
	}
}

func copyUser(u *entity.User) *entity.User {
	c := *u
	if u.OTP != nil {
		otp := *u.OTP
		c.OTP = &otp
	}
	if u.ResetToken != nil {
		rt := *u.ResetToken
		c.ResetToken = &rt
	}
	if u.Location != nil {
		loc := *u.Location
		c.Location = &loc
	}
	return &c
}

// ---------- users ----------

type fakeUserRepo struct{ m *memStore }

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("create user: %w", repository.ErrDuplicate)
		}
	}
	r.m.users[user.ID] = copyUser(user)
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindAll(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*entity.User, 0, len(r.m.users))
	for _, u := range r.m.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, limit, offset), nil
}

func (r *fakeUserRepo) CountAll(ctx context.Context) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return int64(len(r.m.users)), nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, u := range r.m.users {
		if id != user.ID && strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	updated := copyUser(user)
	// codes are owned by the OTP repository
	updated.OTP, updated.ResetToken = stored.OTP, stored.ResetToken
	r.m.users[user.ID] = updated
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.m.users, id)
	for pid, p := range r.m.providers {
		if p.UserID == id {
			delete(r.m.providers, pid)
			for sid, s := range r.m.services {
				if s.ProviderID == pid {
					delete(r.m.services, sid)
				}
			}
		}
	}
	for bid, b := range r.m.bookings {
		_, serviceLeft := r.m.services[b.ServiceID]
		if b.UserID == id || !serviceLeft {
			delete(r.m.bookings, bid)
		}
	}
	return nil
}

// ---------- codes ----------

type fakeOTPRepo struct{ m *memStore }

func (r *fakeOTPRepo) SetCode(ctx context.Context, userID uuid.UUID, purpose entity.CodePurpose, code entity.OneTimeCode) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	switch purpose {
	case entity.PurposeEmailVerification:
		u.OTP = &code
	case entity.PurposePasswordReset:
		u.ResetToken = &code
	}
	return nil
}

func (r *fakeOTPRepo) ConsumeVerification(ctx context.Context, userID uuid.UUID, code string, now time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[userID]
	if !ok || !u.OTP.Matches(code, now) {
		return repository.ErrNotFound
	}
	u.Verified = true
	u.OTP = nil
	return nil
}

func (r *fakeOTPRepo) ConsumeReset(ctx context.Context, userID uuid.UUID, code string, now time.Time, passwordHash string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[userID]
	if !ok || !u.ResetToken.Matches(code, now) {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetToken = nil
	return nil
}

func (r *fakeOTPRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, u := range r.m.users {
		if u.OTP.Expired(now) || u.ResetToken.Expired(now) {
			n++
		}
		if u.OTP.Expired(now) {
			u.OTP = nil
		}
		if u.ResetToken.Expired(now) {
			u.ResetToken = nil
		}
	}
	return n, nil
}

// ---------- providers ----------

type fakeProviderRepo struct{ m *memStore }

func (r *fakeProviderRepo) Create(ctx context.Context, provider *entity.Provider) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.providers {
		if p.UserID == provider.UserID {
			return repository.ErrDuplicate
		}
	}
	c := *provider
	r.m.providers[provider.ID] = &c
	return nil
}

// joined builds the provider as the SQL join would; callers hold the lock
func (m *memStore) joinedProvider(p *entity.Provider) *entity.Provider {
	c := *p
	c.ServiceIDs = []uuid.UUID{}
	owned := make([]*entity.Service, 0)
	for _, s := range m.services {
		if s.ProviderID == p.ID {
			owned = append(owned, s)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.Before(owned[j].CreatedAt) })
	for _, s := range owned {
		c.ServiceIDs = append(c.ServiceIDs, s.ID)
	}
	if u, ok := m.users[p.UserID]; ok {
		c.User = copyUser(u)
	}
	return &c
}

func (r *fakeProviderRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Provider, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.providers[id]
	if !ok {
		return nil, nil
	}
	return r.m.joinedProvider(p), nil
}

func (r *fakeProviderRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Provider, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.providers {
		if p.UserID == userID {
			return r.m.joinedProvider(p), nil
		}
	}
	return nil, nil
}

func (r *fakeProviderRepo) UpdateBio(ctx context.Context, id uuid.UUID, bio string, updatedAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.providers[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Bio = bio
	p.UpdatedAt = updatedAt
	return nil
}

// ---------- services ----------

type fakeServiceRepo struct{ m *memStore }

func (m *memStore) joinedService(s *entity.Service) *entity.Service {
	c := *s
	if p, ok := m.providers[s.ProviderID]; ok {
		c.Provider = m.joinedProvider(p)
	}
	return &c
}

func (r *fakeServiceRepo) Create(ctx context.Context, service *entity.Service) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *service
	r.m.services[service.ID] = &c
	return nil
}

func (r *fakeServiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.services[id]
	if !ok {
		return nil, nil
	}
	return r.m.joinedService(s), nil
}

func (r *fakeServiceRepo) FindAll(ctx context.Context, filter entity.ServiceFilter) ([]*entity.Service, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*entity.Service, 0)
	for _, s := range r.m.services {
		if filter.Category != "" && s.Category != filter.Category {
			continue
		}
		c := r.m.joinedService(s)
		if filter.Near != nil {
			if s.Location == nil || !geo.Within(*filter.Near, *s.Location, filter.RadiusKm) {
				continue
			}
			d := geo.Distance(*filter.Near, *s.Location)
			c.DistanceKm = &d
		}
		out = append(out, c)
	}
	if filter.Near != nil {
		sort.Slice(out, func(i, j int) bool { return *out[i].DistanceKm < *out[j].DistanceKm })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return window(out, filter.Limit, filter.Offset), nil
}

func (r *fakeServiceRepo) CountAll(ctx context.Context) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return int64(len(r.m.services)), nil
}

func (r *fakeServiceRepo) Update(ctx context.Context, service *entity.Service) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.services[service.ID]; !ok {
		return repository.ErrNotFound
	}
	c := *service
	c.Provider, c.DistanceKm = nil, nil
	r.m.services[service.ID] = &c
	return nil
}

func (r *fakeServiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.services[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.m.services, id)
	return nil
}

// ---------- bookings ----------

type fakeBookingRepo struct{ m *memStore }

func (m *memStore) joinedBooking(b *entity.Booking) *entity.Booking {
	c := *b
	if u, ok := m.users[b.UserID]; ok {
		c.User = copyUser(u)
	}
	if s, ok := m.services[b.ServiceID]; ok {
		svc := *s
		c.Service = &svc
	}
	if p, ok := m.providers[b.ProviderID]; ok {
		c.Provider = m.joinedProvider(p)
	}
	return &c
}

func (r *fakeBookingRepo) Create(ctx context.Context, booking *entity.Booking) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *booking
	r.m.bookings[booking.ID] = &c
	return nil
}

func (r *fakeBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok {
		return nil, nil
	}
	return r.m.joinedBooking(b), nil
}

func (r *fakeBookingRepo) filter(keep func(*entity.Booking) bool) []*entity.Booking {
	out := make([]*entity.Booking, 0)
	for _, b := range r.m.bookings {
		if keep(b) {
			out = append(out, r.m.joinedBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakeBookingRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.filter(func(b *entity.Booking) bool { return b.UserID == userID }), nil
}

func (r *fakeBookingRepo) FindByProviderID(ctx context.Context, providerID uuid.UUID) ([]*entity.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.filter(func(b *entity.Booking) bool { return b.ProviderID == providerID }), nil
}

func (r *fakeBookingRepo) FindAll(ctx context.Context, limit, offset int) ([]*entity.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	all := r.filter(func(*entity.Booking) bool { return true })
	return window(all, limit, offset), nil
}

func (r *fakeBookingRepo) CountAll(ctx context.Context) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return int64(len(r.m.bookings)), nil
}

func (r *fakeBookingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, updatedAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok || b.Status != from {
		return repository.ErrNotFound
	}
	b.Status = to
	b.UpdatedAt = updatedAt
	return nil
}

func (r *fakeBookingRepo) Rate(ctx context.Context, id, providerID uuid.UUID, rating int, review string, ratedAt time.Time) (*repository.RatingAggregate, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p, ok := r.m.providers[providerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	b.Rating = &rating
	b.Review = &review
	b.UpdatedAt = ratedAt
	p.Rating = (p.Rating*float64(p.RatingsCount) + float64(rating)) / float64(p.RatingsCount+1)
	p.RatingsCount++
	return &repository.RatingAggregate{Rating: p.Rating, RatingsCount: p.RatingsCount}, nil
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ---------- outbound collaborators ----------

type sentMail struct {
	To, Subject, HTML string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: html})
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type publishedEvent struct {
	Subject string
	Data    any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Subject: subject, Data: data})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Subject)
	}
	return out
}

type recordingStore struct {
	mu        sync.Mutex
	uploads   int
	deleted   []string
	deleteErr error
}

func (s *recordingStore) Upload(ctx context.Context, file io.Reader, filename string) (*storage.Image, error) {
	if _, err := io.ReadAll(file); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads++
	id := fmt.Sprintf("services/img-%d", s.uploads)
	return &storage.Image{URL: "https://img.example/" + id + ".jpg", PublicID: id}, nil
}

func (s *recordingStore) Delete(ctx context.Context, publicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, publicID)
	return s.deleteErr
}

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, key string) (bool, error) { return false, nil }

type brokenLimiter struct{}

func (brokenLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

// ---------- harness ----------

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store     *memStore
	repo      *repository.Repository
	clock     *clock
	mailer    *recordingMailer
	publisher *recordingPublisher
	images    *recordingStore
	tokens    *token.Manager
	logs      *observer.ObservedLogs
	svc       *Service
}

func testConfig() *utils.Config {
	return &utils.Config{
		JWT: utils.JWTConfig{Secret: "test-secret", ExpiryHours: 168},
		OTP: utils.OTPConfig{
			ExpiryMinutes:       15,
			ResetExpiryMinutes:  30,
			Length:              6,
			ResendLimit:         5,
			ResendWindowMinutes: 15,
		},
		Geo: utils.GeoConfig{DefaultRadiusKm: 10},
	}
}

func newHarness(opts ...func(*Deps)) *harness {
	h := &harness{
		store:     newMemStore(),
		clock:     &clock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		mailer:    &recordingMailer{},
		publisher: &recordingPublisher{},
		images:    &recordingStore{},
	}
	h.repo = h.store.repository()

	config := testConfig()
	h.tokens = token.NewManager(config.JWT.Secret, config.JWT.TTL())
	deps := Deps{
		Tokens: h.tokens,
		Mailer: h.mailer,
		Images: h.images,
		Events: h.publisher,
		Now:    h.clock.Now,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	core, logs := observer.New(zapcore.InfoLevel)
	h.logs = logs
	h.svc = NewService(h.repo, deps, config, zap.New(core))
	return h
}

func (h *harness) user(id uuid.UUID) *entity.User {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return copyUser(h.store.users[id])
}

func (h *harness) provider(userID uuid.UUID) *entity.Provider {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	for _, p := range h.store.providers {
		if p.UserID == userID {
			c := *p
			return &c
		}
	}
	return nil
}

func (h *harness) providerCount(userID uuid.UUID) int {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	n := 0
	for _, p := range h.store.providers {
		if p.UserID == userID {
			n++
		}
	}
	return n
}

// waitImages blocks until background image deletions finish
func (h *harness) waitImages() {
	if err := h.svc.Catalog.Drain(context.Background()); err != nil {
		panic(err)
	}
}

var _ events.Publisher = (*recordingPublisher)(nil)
