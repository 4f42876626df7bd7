package v1_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/reservo/internal/auth"
	"github.com/gosuda/reservo/internal/booking"
	"github.com/gosuda/reservo/internal/domain"
	"github.com/gosuda/reservo/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers: inject tenant/user/role the way the auth middleware does
// ---------------------------------------------------------------------------

func tenantCtx(tenantID uuid.UUID) context.Context {
	return context.WithValue(context.Background(), middleware.ContextKeyTenantID, tenantID)
}

func userCtx(tenantID, userID uuid.UUID, role string) context.Context {
	ctx := tenantCtx(tenantID)
	ctx = context.WithValue(ctx, middleware.ContextKeyUserID, userID)
	ctx = context.WithValue(ctx, middleware.ContextKeyUserRole, role)
	return ctx
}

func staffCtx(tenantID uuid.UUID) context.Context {
	return userCtx(tenantID, uuid.New(), auth.RoleStaff)
}

// ---------------------------------------------------------------------------
// Mock AvailabilityService
// ---------------------------------------------------------------------------

type mockAvailability struct {
	computeSlotsFunc func(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]domain.Slot, error)
}

func (m *mockAvailability) ComputeSlots(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]domain.Slot, error) {
	return m.computeSlotsFunc(ctx, tenantID, date)
}

// ---------------------------------------------------------------------------
// Mock BookingService
// ---------------------------------------------------------------------------

type mockBooking struct {
	tryBookFunc func(ctx context.Context, req booking.Request) (*domain.Reservation, error)
}

func (m *mockBooking) TryBook(ctx context.Context, req booking.Request) (*domain.Reservation, error) {
	return m.tryBookFunc(ctx, req)
}

// ---------------------------------------------------------------------------
// Mock ReservationService / ReservationReader
// ---------------------------------------------------------------------------

type mockReservations struct {
	updateStatusFunc func(ctx context.Context, tenantID, id uuid.UUID, to domain.ReservationStatus, actor booking.Actor) (*booking.StatusResult, error)
	getFunc          func(ctx context.Context, tenantID, id uuid.UUID) (*domain.Reservation, error)
	listByDateFunc   func(ctx context.Context, tenantID uuid.UUID, day time.Time) ([]*domain.Reservation, error)
}

func (m *mockReservations) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, to domain.ReservationStatus, actor booking.Actor) (*booking.StatusResult, error) {
	return m.updateStatusFunc(ctx, tenantID, id, to, actor)
}

func (m *mockReservations) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Reservation, error) {
	return m.getFunc(ctx, tenantID, id)
}

func (m *mockReservations) ListByDate(ctx context.Context, tenantID uuid.UUID, day time.Time) ([]*domain.Reservation, error) {
	return m.listByDateFunc(ctx, tenantID, day)
}

// ---------------------------------------------------------------------------
// Mock ScheduleRepository
// ---------------------------------------------------------------------------

type mockSchedule struct {
	getWorkingHoursFunc      func(ctx context.Context, tenantID uuid.UUID, day time.Weekday) (*domain.WorkingHours, error)
	listWorkingHoursFunc     func(ctx context.Context, tenantID uuid.UUID) ([]*domain.WorkingHours, error)
	upsertWorkingHoursFunc   func(ctx context.Context, wh *domain.WorkingHours) error
	listBlockedSlotsFunc     func(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*domain.BlockedSlot, error)
	createBlockedSlotFunc    func(ctx context.Context, b *domain.BlockedSlot) error
	deleteBlockedSlotFunc    func(ctx context.Context, tenantID, id uuid.UUID) error
	listRecurringBlocksFunc  func(ctx context.Context, tenantID uuid.UUID) ([]*domain.RecurringBlock, error)
	createRecurringBlockFunc func(ctx context.Context, b *domain.RecurringBlock) error
	deleteRecurringBlockFunc func(ctx context.Context, tenantID, id uuid.UUID) error
	daySnapshotFunc          func(ctx context.Context, tenantID uuid.UUID, day time.Time) (*domain.DaySnapshot, error)
}

func (m *mockSchedule) GetWorkingHours(ctx context.Context, tenantID uuid.UUID, day time.Weekday) (*domain.WorkingHours, error) {
	return m.getWorkingHoursFunc(ctx, tenantID, day)
}

func (m *mockSchedule) ListWorkingHours(ctx context.Context, tenantID uuid.UUID) ([]*domain.WorkingHours, error) {
	return m.listWorkingHoursFunc(ctx, tenantID)
}

func (m *mockSchedule) UpsertWorkingHours(ctx context.Context, wh *domain.WorkingHours) error {
	return m.upsertWorkingHoursFunc(ctx, wh)
}

func (m *mockSchedule) ListBlockedSlots(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*domain.BlockedSlot, error) {
	return m.listBlockedSlotsFunc(ctx, tenantID, from, to)
}

func (m *mockSchedule) CreateBlockedSlot(ctx context.Context, b *domain.BlockedSlot) error {
	return m.createBlockedSlotFunc(ctx, b)
}

func (m *mockSchedule) DeleteBlockedSlot(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.deleteBlockedSlotFunc(ctx, tenantID, id)
}

func (m *mockSchedule) ListRecurringBlocks(ctx context.Context, tenantID uuid.UUID) ([]*domain.RecurringBlock, error) {
	return m.listRecurringBlocksFunc(ctx, tenantID)
}

func (m *mockSchedule) CreateRecurringBlock(ctx context.Context, b *domain.RecurringBlock) error {
	return m.createRecurringBlockFunc(ctx, b)
}

func (m *mockSchedule) DeleteRecurringBlock(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.deleteRecurringBlockFunc(ctx, tenantID, id)
}

func (m *mockSchedule) DaySnapshot(ctx context.Context, tenantID uuid.UUID, day time.Time) (*domain.DaySnapshot, error) {
	return m.daySnapshotFunc(ctx, tenantID, day)
}

// ---------------------------------------------------------------------------
// Mock LoyaltyRepository
// ---------------------------------------------------------------------------

type mockLoyalty struct {
	getFunc             func(ctx context.Context, tenantID, clientID uuid.UUID) (*domain.LoyaltyProfile, error)
	accrueFunc          func(ctx context.Context, entry *domain.LoyaltyEntry, fn domain.AccrueFunc) (*domain.LoyaltyProfile, error)
	consumeDiscountFunc func(ctx context.Context, tenantID, clientID uuid.UUID, kind domain.ServiceKind) (*domain.Discount, error)
	listHistoryFunc     func(ctx context.Context, tenantID, clientID uuid.UUID) ([]*domain.LoyaltyEntry, error)
}

func (m *mockLoyalty) Get(ctx context.Context, tenantID, clientID uuid.UUID) (*domain.LoyaltyProfile, error) {
	return m.getFunc(ctx, tenantID, clientID)
}

func (m *mockLoyalty) Accrue(ctx context.Context, entry *domain.LoyaltyEntry, fn domain.AccrueFunc) (*domain.LoyaltyProfile, error) {
	return m.accrueFunc(ctx, entry, fn)
}

func (m *mockLoyalty) ConsumeDiscount(ctx context.Context, tenantID, clientID uuid.UUID, kind domain.ServiceKind) (*domain.Discount, error) {
	return m.consumeDiscountFunc(ctx, tenantID, clientID, kind)
}

func (m *mockLoyalty) ListHistory(ctx context.Context, tenantID, clientID uuid.UUID) ([]*domain.LoyaltyEntry, error) {
	return m.listHistoryFunc(ctx, tenantID, clientID)
}

// ---------------------------------------------------------------------------
// Recording EventPublisher
// ---------------------------------------------------------------------------

type recordingPublisher struct {
	mu     sync.Mutex
	events []booking.SlotEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev booking.SlotEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Events() []booking.SlotEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]booking.SlotEvent(nil), p.events...)
}
