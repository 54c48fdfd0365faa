package service

import (
	"context"
	"sort"
	"sync"
	"time"

	bookingserrors "rentcar/internal/bookings/errors"
	"rentcar/internal/bookings/repository"
	"rentcar/internal/bookings/validator"
	carserrors "rentcar/internal/cars/errors"
	"rentcar/pkg/config"
	mongotx "rentcar/pkg/db/mongo"
	"rentcar/pkg/logger"
	"rentcar/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeBookingRepository keeps bookings in memory and enforces the
// (car, date) unique key like the real index does.
type fakeBookingRepository struct {
	mu        sync.Mutex
	bookings  map[string]*model.Booking
	createErr error
}

func newFakeBookingRepository() *fakeBookingRepository {
	return &fakeBookingRepository{bookings: map[string]*model.Booking{}}
}

func (f *fakeBookingRepository) slotTaken(id, carID string, apptDate time.Time) bool {
	for _, b := range f.bookings {
		if b.ID != id && b.CarID == carID && b.ApptDate.Equal(apptDate) {
			return true
		}
	}
	return false
}

func (f *fakeBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.slotTaken("", booking.CarID, booking.ApptDate) {
		return bookingserrors.ErrSlotTaken
	}
	booking.ID = primitive.NewObjectID().Hex()
	booking.CreatedAt = time.Now().UTC()
	stored := *booking
	stored.Car = nil
	f.bookings[booking.ID] = &stored
	return nil
}

func (f *fakeBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, bookingserrors.ErrInvalidID
	}
	b, ok := f.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	found := *b
	return &found, nil
}

func (f *fakeBookingRepository) FindByCarAndDate(ctx context.Context, carID string, apptDate time.Time) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.CarID == carID && b.ApptDate.Equal(apptDate) {
			found := *b
			return &found, nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (f *fakeBookingRepository) matching(filter repository.Filter) []*model.Booking {
	var out []*model.Booking
	for _, b := range f.bookings {
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if filter.CarID != "" && b.CarID != filter.CarID {
			continue
		}
		found := *b
		out = append(out, &found)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApptDate.Before(out[j].ApptDate) })
	return out
}

func (f *fakeBookingRepository) FindAll(ctx context.Context, filter repository.Filter, limit int, offset int64) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.matching(filter), nil
}

func (f *fakeBookingRepository) Count(ctx context.Context, filter repository.Filter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.matching(filter))), nil
}

func (f *fakeBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	return f.Count(ctx, repository.Filter{UserID: userID})
}

func (f *fakeBookingRepository) Update(ctx context.Context, id string, carID string, apptDate time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	if f.slotTaken(id, carID, apptDate) {
		return bookingserrors.ErrSlotTaken
	}
	b.CarID = carID
	b.ApptDate = apptDate
	return nil
}

func (f *fakeBookingRepository) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bookings[id]; !ok {
		return bookingserrors.ErrNotFound
	}
	delete(f.bookings, id)
	return nil
}

func (f *fakeBookingRepository) DeleteByCar(ctx context.Context, carID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, b := range f.bookings {
		if b.CarID == carID {
			delete(f.bookings, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

// put stores a booking directly, bypassing admission.
func (f *fakeBookingRepository) put(userID, carID string, apptDate time.Time) *model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := &model.Booking{
		ID:       primitive.NewObjectID().Hex(),
		UserID:   userID,
		CarID:    carID,
		ApptDate: apptDate,
	}
	stored := *b
	f.bookings[b.ID] = &stored
	return b
}

type fakeLockRepository struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired int
}

func newFakeLockRepository() *fakeLockRepository {
	return &fakeLockRepository{held: map[string]bool{}}
}

func (f *fakeLockRepository) Acquire(ctx context.Context, lock *model.BookingLock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[lock.ID] {
		return bookingserrors.ErrLockHeld
	}
	f.held[lock.ID] = true
	f.acquired++
	return nil
}

func (f *fakeLockRepository) Release(ctx context.Context, lockID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, lockID)
	return nil
}

type fakeCarLookup struct {
	cars map[string]*model.Car
}

func (f *fakeCarLookup) FindByID(ctx context.Context, id string) (*model.Car, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, carserrors.ErrInvalidID
	}
	c, ok := f.cars[id]
	if !ok {
		return nil, carserrors.ErrNotFound
	}
	found := *c
	return &found, nil
}

func (f *fakeCarLookup) FindByIDs(ctx context.Context, ids []string) ([]*model.Car, error) {
	var out []*model.Car
	for _, id := range ids {
		if c, ok := f.cars[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeUserLookup struct{}

func (fakeUserLookup) FindByID(ctx context.Context, id string) (*model.User, error) {
	return &model.User{ID: id, Name: "Somchai", Email: "somchai@example.com"}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*model.Notification
}

func (f *fakeNotifier) Notify(ctx context.Context, n *model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
}

func (f *fakeNotifier) Deliver(ctx context.Context, n *model.Notification) error {
	f.Notify(ctx, n)
	return nil
}

func (f *fakeNotifier) kinds() []model.NotificationKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.NotificationKind
	for _, n := range f.sent {
		out = append(out, n.Kind)
	}
	return out
}

var (
	userU  = model.Principal{UserID: primitive.NewObjectID().Hex(), Role: model.RoleUser}
	userV  = model.Principal{UserID: primitive.NewObjectID().Hex(), Role: model.RoleUser}
	admin  = model.Principal{UserID: primitive.NewObjectID().Hex(), Role: model.RoleAdmin}
	carC1  = primitive.NewObjectID().Hex()
	carC2  = primitive.NewObjectID().Hex()
	noCar  = primitive.NewObjectID().Hex()
	bkk, _ = time.LoadLocation("Asia/Bangkok")
)

type fixture struct {
	bookings  *fakeBookingRepository
	locks     *fakeLockRepository
	notifier  *fakeNotifier
	admission *AdmissionController
	service   BookingService
}

// newFixture builds the booking service with the clock frozen at 2030-01-05
// 10:00 in Bangkok and a quota of three bookings.
func newFixture() *fixture {
	cfg := &config.Config{
		Log:               logger.Discard(),
		MaxActiveBookings: 3,
		BookingLockTTL:    10 * time.Second,
		Location:          bkk,
	}

	cars := &fakeCarLookup{cars: map[string]*model.Car{
		carC1: {ID: carC1, Name: "Toyota Yaris", Address: "99 Sukhumvit Rd", Tel: "+6621234567"},
		carC2: {ID: carC2, Name: "Honda City", Address: "1 Silom Rd", Tel: "+6627654321"},
	}}

	f := &fixture{
		bookings: newFakeBookingRepository(),
		locks:    newFakeLockRepository(),
		notifier: &fakeNotifier{},
	}
	f.admission = NewAdmissionController(cars, f.bookings, cfg)
	f.admission.now = func() time.Time { return time.Date(2030, 1, 5, 10, 0, 0, 0, bkk) }
	f.service = NewBookingService(
		f.bookings,
		f.locks,
		f.admission,
		cars,
		fakeUserLookup{},
		f.notifier,
		validator.NewBookingValidator(cfg.Log),
		cfg,
	)
	return f
}

func day(d int) time.Time {
	return time.Date(2030, 1, d, 0, 0, 0, 0, time.UTC)
}
