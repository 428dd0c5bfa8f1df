// Package memstore is a process-local store.Store. It applies the policy
// predicates and bookkeeping rules that the Postgres schema installs as RLS
// policies and triggers, under a single mutex.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/policy"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/store"
	"github.com/google/uuid"
)

type Option func(*Store)

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type Store struct {
	mu      sync.RWMutex
	now     func() time.Time
	seq     int64
	users   map[uuid.UUID]*models.User
	emails  map[string]uuid.UUID
	roles   map[uuid.UUID]map[models.AppRole]time.Time
	reports map[uuid.UUID]*entry
	tokens  map[string]*models.RefreshToken
}

type entry struct {
	report models.Report
	seq    int64
}

var _ store.Store = (*Store)(nil)

func New(opts ...Option) *Store {
	s := &Store{
		now:     time.Now,
		users:   make(map[uuid.UUID]*models.User),
		emails:  make(map[string]uuid.UUID),
		roles:   make(map[uuid.UUID]map[models.AppRole]time.Time),
		reports: make(map[uuid.UUID]*entry),
		tokens:  make(map[string]*models.RefreshToken),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) subject(callerID uuid.UUID) policy.Subject {
	_, mod := s.roles[callerID][models.RoleModerator]
	return policy.Subject{ID: callerID, Moderator: mod}
}

// ---- reports ----

func (s *Store) CreateReport(_ context.Context, callerID uuid.UUID, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !policy.CanCreate(s.subject(callerID), r.UserID) {
		return store.ErrDenied
	}
	if _, ok := s.users[r.UserID]; !ok {
		return fmt.Errorf("%w: owner does not exist", store.ErrConflict)
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if _, ok := s.reports[r.ID]; ok {
		return fmt.Errorf("%w: duplicate report id", store.ErrConflict)
	}

	now := s.now().UTC()
	r.Status = models.StatusPending
	r.ReviewedBy = nil
	r.ReviewedAt = nil
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Owner, r.Reviewer = nil, nil

	s.seq++
	s.reports[r.ID] = &entry{report: *r, seq: s.seq}
	return nil
}

func (s *Store) GetReport(_ context.Context, callerID, id uuid.UUID) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.reports[id]
	if !ok || !policy.CanRead(s.subject(callerID), &e.report) {
		return nil, store.ErrNotFound
	}
	out := e.report
	return &out, nil
}

func (s *Store) ListReports(_ context.Context, callerID uuid.UUID, f store.ReportFilter) ([]models.Report, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub := s.subject(callerID)
	matched := make([]*entry, 0, len(s.reports))
	for _, e := range s.reports {
		r := &e.report
		if !policy.CanRead(sub, r) {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Category != "" && r.Category != f.Category {
			continue
		}
		if f.Mine && r.UserID != callerID {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.report.CreatedAt.Equal(b.report.CreatedAt) {
			return a.report.CreatedAt.After(b.report.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := int64(len(matched))
	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[f.Offset:]
		}
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}

	out := make([]models.Report, len(matched))
	for i, e := range matched {
		out[i] = e.report
	}
	return out, total, nil
}

func (s *Store) UpdateReport(_ context.Context, callerID, id uuid.UUID, p store.ReportPatch) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.reports[id]
	if !ok || !policy.CanEditContent(s.subject(callerID), &e.report) {
		return nil, store.ErrDenied
	}

	next := e.report
	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.Category != nil {
		next.Category = *p.Category
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Location != nil {
		next.Location = nullable(*p.Location)
	}
	if p.ImageURL != nil {
		next.ImageURL = nullable(*p.ImageURL)
	}
	next.UpdatedAt = s.now().UTC()

	e.report = next
	return &next, nil
}

func (s *Store) TransitionReport(_ context.Context, callerID, id uuid.UUID, to models.ReportStatus) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.reports[id]
	if !ok {
		return nil, store.ErrDenied
	}
	if err := policy.CanReview(s.subject(callerID), &e.report, to); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrDenied, err)
	}

	now := s.now().UTC()
	reviewer := callerID
	next := e.report
	next.Status = to
	next.ReviewedBy = &reviewer
	next.ReviewedAt = &now
	next.UpdatedAt = now

	e.report = next
	return &next, nil
}

func (s *Store) CountByStatus(_ context.Context, callerID uuid.UUID) (store.StatusCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub := s.subject(callerID)
	counts := make(store.StatusCounts, len(models.ReportStatuses))
	for _, st := range models.ReportStatuses {
		counts[st] = 0
	}
	for _, e := range s.reports {
		if policy.CanRead(sub, &e.report) {
			counts[e.report.Status]++
		}
	}
	return counts, nil
}

// ---- roles ----

func (s *Store) HasRole(_ context.Context, userID uuid.UUID, role models.AppRole) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.roles[userID][role]
	return ok, nil
}

func (s *Store) ListRoles(_ context.Context, userID uuid.UUID) ([]models.AppRole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AppRole, 0, len(s.roles[userID]))
	for role := range s.roles[userID] {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) GrantRole(_ context.Context, userID uuid.UUID, role models.AppRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grantLocked(userID, role)
}

func (s *Store) grantLocked(userID uuid.UUID, role models.AppRole) error {
	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("%w: user does not exist", store.ErrConflict)
	}
	held, ok := s.roles[userID]
	if !ok {
		held = make(map[models.AppRole]time.Time)
		s.roles[userID] = held
	}
	if _, dup := held[role]; dup {
		return fmt.Errorf("%w: role %s already granted", store.ErrConflict, role)
	}
	held[role] = s.now().UTC()
	return nil
}

func (s *Store) RevokeRole(_ context.Context, userID uuid.UUID, role models.AppRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[userID][role]; !ok {
		return store.ErrNotFound
	}
	delete(s.roles[userID], role)
	return nil
}

// ---- users ----

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, ok := s.emails[key]; ok {
		return fmt.Errorf("%w: email already registered", store.ErrConflict)
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := s.now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	cp := *u
	s.users[u.ID] = &cp
	s.emails[key] = u.ID
	return s.grantLocked(u.ID, models.RoleUser)
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *Store) FindUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) DeleteUser(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	for rid, e := range s.reports {
		if e.report.UserID == id {
			delete(s.reports, rid)
			continue
		}
		if e.report.ReviewedBy != nil && *e.report.ReviewedBy == id {
			e.report.ReviewedBy = nil
		}
	}
	for hash, t := range s.tokens {
		if t.UserID == id {
			delete(s.tokens, hash)
		}
	}
	delete(s.roles, id)
	delete(s.emails, strings.ToLower(u.Email))
	delete(s.users, id)
	return nil
}

// ---- refresh tokens ----

func (s *Store) SaveRefreshToken(_ context.Context, t *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[t.UserID]; !ok {
		return fmt.Errorf("%w: user does not exist", store.ErrConflict)
	}
	if _, ok := s.tokens[t.TokenHash]; ok {
		return fmt.Errorf("%w: duplicate token", store.ErrConflict)
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = s.now().UTC()
	cp := *t
	s.tokens[t.TokenHash] = &cp
	return nil
}

func (s *Store) ConsumeRefreshToken(_ context.Context, hash string, now time.Time) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[hash]
	if !ok || t.Revoked {
		return nil, store.ErrNotFound
	}
	t.Revoked = true
	if now.After(t.ExpiresAt) {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) RevokeRefreshToken(_ context.Context, userID uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tokens[hash]; ok && t.UserID == userID {
		t.Revoked = true
	}
	return nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
