// Package memory is an in-process store with the same atomicity contracts
// as the postgres store. It backs tests and local development.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/reservo/internal/domain"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu sync.Mutex

	tenants      map[uuid.UUID]*domain.Tenant
	hours        map[hoursKey]*domain.WorkingHours
	blocked      map[uuid.UUID]*domain.BlockedSlot
	recurring    map[uuid.UUID]*domain.RecurringBlock
	reservations map[uuid.UUID]*domain.Reservation
	profiles     map[clientKey]*domain.LoyaltyProfile
	history      map[uuid.UUID]*domain.LoyaltyEntry // keyed by reservation id
	audit        []*domain.AuditEntry

	failures map[string]error // injected by FailNext
}

type hoursKey struct {
	tenant uuid.UUID
	day    time.Weekday
}

type clientKey struct {
	tenant uuid.UUID
	client uuid.UUID
}

func New() *Store {
	return &Store{
		tenants:      make(map[uuid.UUID]*domain.Tenant),
		hours:        make(map[hoursKey]*domain.WorkingHours),
		blocked:      make(map[uuid.UUID]*domain.BlockedSlot),
		recurring:    make(map[uuid.UUID]*domain.RecurringBlock),
		reservations: make(map[uuid.UUID]*domain.Reservation),
		profiles:     make(map[clientKey]*domain.LoyaltyProfile),
		history:      make(map[uuid.UUID]*domain.LoyaltyEntry),
		failures:     make(map[string]error),
	}
}

func (s *Store) Tenants() *TenantRepo           { return &TenantRepo{s} }
func (s *Store) Schedule() *ScheduleRepo        { return &ScheduleRepo{s} }
func (s *Store) Reservations() *ReservationRepo { return &ReservationRepo{s} }
func (s *Store) Loyalty() *LoyaltyRepo          { return &LoyaltyRepo{s} }
func (s *Store) Audit() *AuditRepo              { return &AuditRepo{s} }

var (
	_ domain.TenantRepository      = (*TenantRepo)(nil)
	_ domain.ScheduleRepository    = (*ScheduleRepo)(nil)
	_ domain.ReservationRepository = (*ReservationRepo)(nil)
	_ domain.LoyaltyRepository     = (*LoyaltyRepo)(nil)
	_ domain.AuditRepository       = (*AuditRepo)(nil)
)

// FailNext injects err into the next call of op ("DaySnapshot", "Book",
// "Transition", "Accrue", ...).
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) failLocked(op string) error {
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------
// Tenants
// -----------------------------------------------------------------------------

type TenantRepo struct{ s *Store }

func (r *TenantRepo) Create(_ context.Context, t *domain.Tenant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.tenants {
		if existing.Slug == t.Slug {
			return domain.ErrConflict
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	cp := *t
	r.s.tenants[t.ID] = &cp
	return nil
}

func (r *TenantRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *TenantRepo) GetBySlug(_ context.Context, slug string) (*domain.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tenants {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// -----------------------------------------------------------------------------
// Schedule
// -----------------------------------------------------------------------------

type ScheduleRepo struct{ s *Store }

func (r *ScheduleRepo) GetWorkingHours(_ context.Context, tenantID uuid.UUID, day time.Weekday) (*domain.WorkingHours, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wh, ok := r.s.hours[hoursKey{tenantID, day}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *wh
	return &cp, nil
}

func (r *ScheduleRepo) ListWorkingHours(_ context.Context, tenantID uuid.UUID) ([]*domain.WorkingHours, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.WorkingHours
	for k, wh := range r.s.hours {
		if k.tenant == tenantID {
			cp := *wh
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

func (r *ScheduleRepo) UpsertWorkingHours(_ context.Context, wh *domain.WorkingHours) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wh.UpdatedAt = time.Now()
	cp := *wh
	r.s.hours[hoursKey{wh.TenantID, wh.DayOfWeek}] = &cp
	return nil
}

func (r *ScheduleRepo) ListBlockedSlots(_ context.Context, tenantID uuid.UUID, from, to time.Time) ([]*domain.BlockedSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.blockedLocked(tenantID, from, to), nil
}

func (s *Store) blockedLocked(tenantID uuid.UUID, from, to time.Time) []*domain.BlockedSlot {
	var out []*domain.BlockedSlot
	for _, b := range s.blocked {
		if b.TenantID == tenantID && !b.Date.Before(from) && !b.Date.After(to) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return clockOrMinus(out[i].Time) < clockOrMinus(out[j].Time)
	})
	return out
}

func clockOrMinus(c *domain.Clock) domain.Clock {
	if c == nil {
		return -1
	}
	return *c
}

func (r *ScheduleRepo) CreateBlockedSlot(_ context.Context, b *domain.BlockedSlot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.blocked {
		if existing.TenantID != b.TenantID || !existing.Date.Equal(b.Date) || existing.AllDay != b.AllDay {
			continue
		}
		if b.AllDay || clockOrMinus(existing.Time) == clockOrMinus(b.Time) {
			return domain.ErrConflict
		}
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now()
	cp := *b
	r.s.blocked[b.ID] = &cp
	return nil
}

func (r *ScheduleRepo) DeleteBlockedSlot(_ context.Context, tenantID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.blocked[id]
	if !ok || b.TenantID != tenantID {
		return domain.ErrNotFound
	}
	delete(r.s.blocked, id)
	return nil
}

func (r *ScheduleRepo) ListRecurringBlocks(_ context.Context, tenantID uuid.UUID) ([]*domain.RecurringBlock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.recurringLocked(tenantID), nil
}

func (s *Store) recurringLocked(tenantID uuid.UUID) []*domain.RecurringBlock {
	var out []*domain.RecurringBlock
	for _, rb := range s.recurring {
		if rb.TenantID == tenantID {
			cp := *rb
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *ScheduleRepo) CreateRecurringBlock(_ context.Context, b *domain.RecurringBlock) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now()
	cp := *b
	r.s.recurring[b.ID] = &cp
	return nil
}

func (r *ScheduleRepo) DeleteRecurringBlock(_ context.Context, tenantID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rb, ok := r.s.recurring[id]
	if !ok || rb.TenantID != tenantID {
		return domain.ErrNotFound
	}
	delete(r.s.recurring, id)
	return nil
}

func (r *ScheduleRepo) DaySnapshot(_ context.Context, tenantID uuid.UUID, day time.Time) (*domain.DaySnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failLocked("DaySnapshot"); err != nil {
		return nil, err
	}
	return r.s.snapshotLocked(tenantID, day), nil
}

func (s *Store) snapshotLocked(tenantID uuid.UUID, day time.Time) *domain.DaySnapshot {
	snap := &domain.DaySnapshot{
		TenantID:        tenantID,
		Date:            day,
		BlockedSlots:    s.blockedLocked(tenantID, day, day),
		RecurringBlocks: s.recurringLocked(tenantID),
	}
	if wh, ok := s.hours[hoursKey{tenantID, day.Weekday()}]; ok {
		cp := *wh
		snap.WorkingHours = &cp
	}
	for _, res := range s.reservations {
		if res.TenantID == tenantID && res.Date.Equal(day) && res.Status.IsActive() {
			snap.Reservations = append(snap.Reservations, copyReservation(res))
		}
	}
	return snap
}

// -----------------------------------------------------------------------------
// Reservations
// -----------------------------------------------------------------------------

type ReservationRepo struct{ s *Store }

func copyReservation(r *domain.Reservation) *domain.Reservation {
	cp := *r
	cp.Services = slices.Clone(r.Services)
	cp.Packages = maps.Clone(r.Packages)
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}

func (r *ReservationRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*domain.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.reservations[id]
	if !ok || res.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return copyReservation(res), nil
}

func (r *ReservationRepo) ListByDate(_ context.Context, tenantID uuid.UUID, day time.Time) ([]*domain.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Reservation
	for _, res := range r.s.reservations {
		if res.TenantID == tenantID && res.Date.Equal(day) {
			out = append(out, copyReservation(res))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Book holds the store lock across check and insert, mirroring the advisory
// lock plus partial unique index of the postgres store.
func (r *ReservationRepo) Book(_ context.Context, res *domain.Reservation, check domain.SlotCheck) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failLocked("Book"); err != nil {
		return err
	}
	if check != nil {
		if err := check(r.s.snapshotLocked(res.TenantID, res.Date)); err != nil {
			return err
		}
	}
	for _, existing := range r.s.reservations {
		if existing.TenantID == res.TenantID && existing.Date.Equal(res.Date) &&
			existing.Time == res.Time && existing.Status.IsActive() {
			return &domain.SlotConflictError{TenantID: res.TenantID, Date: res.Date, Time: res.Time}
		}
	}
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	now := time.Now()
	res.CreatedAt, res.UpdatedAt = now, now
	r.s.reservations[res.ID] = copyReservation(res)
	return nil
}

func (r *ReservationRepo) Transition(_ context.Context, tenantID, id uuid.UUID, from []domain.ReservationStatus, to domain.ReservationStatus) (*domain.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failLocked("Transition"); err != nil {
		return nil, err
	}
	res, ok := r.s.reservations[id]
	if !ok || res.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	if !slices.Contains(from, res.Status) {
		return nil, domain.ErrInvalidTransition
	}
	now := time.Now()
	res.Status = to
	res.UpdatedAt = now
	if to == domain.ReservationCompleted {
		res.CompletedAt = &now
	}
	return copyReservation(res), nil
}

// -----------------------------------------------------------------------------
// Loyalty
// -----------------------------------------------------------------------------

type LoyaltyRepo struct{ s *Store }

func copyProfile(p *domain.LoyaltyProfile) *domain.LoyaltyProfile {
	cp := *p
	cp.AvailableDiscounts = slices.Clone(p.AvailableDiscounts)
	if p.LastVisit != nil {
		at := *p.LastVisit
		cp.LastVisit = &at
	}
	return &cp
}

func (r *LoyaltyRepo) Get(_ context.Context, tenantID, clientID uuid.UUID) (*domain.LoyaltyProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[clientKey{tenantID, clientID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyProfile(p), nil
}

// Accrue applies fn to a working copy and commits it only when fn succeeds.
func (r *LoyaltyRepo) Accrue(_ context.Context, entry *domain.LoyaltyEntry, fn domain.AccrueFunc) (*domain.LoyaltyProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failLocked("Accrue"); err != nil {
		return nil, err
	}
	if _, dup := r.s.history[entry.ReservationID]; dup {
		return nil, domain.ErrAlreadyAccrued
	}

	k := clientKey{entry.TenantID, entry.ClientID}
	now := time.Now()
	working, ok := r.s.profiles[k]
	if ok {
		working = copyProfile(working)
	} else {
		working = &domain.LoyaltyProfile{TenantID: entry.TenantID, ClientID: entry.ClientID, CreatedAt: now}
	}
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = now
	r.s.profiles[k] = working

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = now
	e := *entry
	r.s.history[entry.ReservationID] = &e
	return copyProfile(working), nil
}

func (r *LoyaltyRepo) ConsumeDiscount(_ context.Context, tenantID, clientID uuid.UUID, kind domain.ServiceKind) (*domain.Discount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[clientKey{tenantID, clientID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	idx := slices.IndexFunc(p.AvailableDiscounts, func(d domain.Discount) bool { return d.Kind == kind })
	if idx < 0 {
		return nil, domain.ErrNotFound
	}
	d := p.AvailableDiscounts[idx]
	p.AvailableDiscounts = slices.Delete(slices.Clone(p.AvailableDiscounts), idx, idx+1)
	if kind == domain.ServiceKindPackage {
		p.PackagesCount = 0
	} else {
		p.IndividualServicesCount = 0
	}
	p.UpdatedAt = time.Now()
	return &d, nil
}

func (r *LoyaltyRepo) ListHistory(_ context.Context, tenantID, clientID uuid.UUID) ([]*domain.LoyaltyEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.LoyaltyEntry
	for _, e := range r.s.history {
		if e.TenantID == tenantID && e.ClientID == clientID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// -----------------------------------------------------------------------------
// Audit
// -----------------------------------------------------------------------------

type AuditRepo struct{ s *Store }

func (r *AuditRepo) Record(_ context.Context, entry *domain.AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	cp := *entry
	r.s.audit = append(r.s.audit, &cp)
	return nil
}

func (r *AuditRepo) ListByResource(_ context.Context, tenantID uuid.UUID, resource string, resourceID uuid.UUID) ([]*domain.AuditEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.AuditEntry
	for _, e := range r.s.audit {
		if e.TenantID == tenantID && e.Resource == resource && e.ResourceID == resourceID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}
