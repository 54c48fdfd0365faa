package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	bookingserrors "rentcar/internal/bookings/errors"
	"rentcar/internal/bookings/repository"
	"rentcar/internal/bookings/validator"
	"rentcar/pkg/config"
	apperrors "rentcar/pkg/errors"
	"rentcar/pkg/model"
	"rentcar/pkg/notify"
)

// UserLookup resolves the owner of a booking for notifications.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type BookingService interface {
	Create(ctx context.Context, principal model.Principal, carID string, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, principal model.Principal, id string) (*model.Booking, error)
	GetAll(ctx context.Context, principal model.Principal, limit int, offset int64) ([]*model.Booking, int64, error)
	GetByCar(ctx context.Context, principal model.Principal, carID string, limit int, offset int64) ([]*model.Booking, int64, error)
	Update(ctx context.Context, principal model.Principal, id string, req *model.BookingRequest) (*model.Booking, error)
	Delete(ctx context.Context, principal model.Principal, id string) error
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.BookingLockRepository
	admission *AdmissionController
	cars      CarLookup
	users     UserLookup
	notifier  notify.Notifier
	validator *validator.BookingValidator
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	admission *AdmissionController,
	cars CarLookup,
	users UserLookup,
	notifier notify.Notifier,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		admission: admission,
		cars:      cars,
		users:     users,
		notifier:  notifier,
		validator: validator,
		cfg:       cfg,
	}
}

// Create books a car for the caller. The car in the body wins over the one in
// the path. Regular users are serialized by a per-user lock so concurrent
// requests cannot slip past the quota together.
func (s *bookingService) Create(ctx context.Context, principal model.Principal, carID string, req *model.BookingRequest) (*model.Booking, error) {
	if err := s.validator.ValidateRequest(req, true); err != nil {
		s.cfg.Log.Warn("Booking request validation failed", "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	if req.Car != "" {
		carID = req.Car
	}

	apptDate, err := model.ParseDate(req.ApptDate, s.cfg.Location)
	if err != nil {
		return nil, apperrors.InvalidDate("Invalid appointment date")
	}

	if !principal.IsAdmin() {
		lockID, err := s.acquireQuotaLock(ctx, principal.UserID)
		if err != nil {
			return nil, err
		}
		defer s.releaseQuotaLock(ctx, lockID)
	}

	car, err := s.admission.Propose(ctx, Proposal{
		Principal: principal,
		CarID:     carID,
		ApptDate:  apptDate,
	})
	if err != nil {
		s.cfg.Log.Info("Booking rejected", "user_id", principal.UserID, "car_id", carID, "appt_date", apptDate, "error", err)
		return nil, err
	}

	booking := &model.Booking{
		UserID:   principal.UserID,
		CarID:    car.ID,
		ApptDate: apptDate,
	}
	if err := s.validate(booking); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		if errors.Is(err, bookingserrors.ErrSlotTaken) {
			return nil, conflictError(apptDate)
		}
		s.cfg.Log.Error("Failed to create booking", "error", err)
		return nil, apperrors.Internal("Failed to create booking", err)
	}
	booking.Car = car.Summary()

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"user_id", booking.UserID,
		"car_id", booking.CarID,
		"appt_date", booking.ApptDate.Format(model.DateLayout),
	)
	s.notify(ctx, model.NotificationBookingCreated, booking, car)
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, principal model.Principal, id string) (*model.Booking, error) {
	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(booking.UserID) {
		return nil, apperrors.Forbidden(fmt.Sprintf("User %s is not authorized to view this booking", principal.UserID))
	}

	if car, err := s.cars.FindByID(ctx, booking.CarID); err == nil {
		booking.Car = car.Summary()
	} else {
		s.cfg.Log.Warn("Failed to load car of booking", "id", id, "car_id", booking.CarID, "error", err)
	}
	return booking, nil
}

// GetAll lists every booking for admins and the caller's own bookings otherwise.
func (s *bookingService) GetAll(ctx context.Context, principal model.Principal, limit int, offset int64) ([]*model.Booking, int64, error) {
	filter := repository.Filter{}
	if !principal.IsAdmin() {
		filter.UserID = principal.UserID
	}
	return s.list(ctx, filter, limit, offset)
}

func (s *bookingService) GetByCar(ctx context.Context, principal model.Principal, carID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if !principal.IsAdmin() {
		return nil, 0, apperrors.InvalidInput("User cannot view another user booking")
	}
	return s.list(ctx, repository.Filter{CarID: carID}, limit, offset)
}

func (s *bookingService) list(ctx context.Context, filter repository.Filter, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "user_id", filter.UserID, "car_id", filter.CarID, "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "user_id", filter.UserID, "car_id", filter.CarID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}

	s.attachCars(ctx, bookings)
	return bookings, count, nil
}

// attachCars embeds the car summary into each booking. Missing cars leave
// the summary empty rather than failing the listing.
func (s *bookingService) attachCars(ctx context.Context, bookings []*model.Booking) {
	if len(bookings) == 0 {
		return
	}

	seen := make(map[string]bool, len(bookings))
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		if !seen[b.CarID] {
			seen[b.CarID] = true
			ids = append(ids, b.CarID)
		}
	}

	cars, err := s.cars.FindByIDs(ctx, ids)
	if err != nil {
		s.cfg.Log.Warn("Failed to load cars of bookings", "error", err)
		return
	}

	byID := make(map[string]*model.CarSummary, len(cars))
	for _, c := range cars {
		byID[c.ID] = c.Summary()
	}
	for _, b := range bookings {
		b.Car = byID[b.CarID]
	}
}

// Update moves a booking to another car or date. The booking keeps its owner.
func (s *bookingService) Update(ctx context.Context, principal model.Principal, id string, req *model.BookingRequest) (*model.Booking, error) {
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.validator.ValidateRequest(req, false); err != nil {
		s.cfg.Log.Warn("Booking update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := *existing
	if req.Car != "" {
		merged.CarID = req.Car
	}
	if req.ApptDate != "" {
		apptDate, err := model.ParseDate(req.ApptDate, s.cfg.Location)
		if err != nil {
			return nil, apperrors.InvalidDate("Invalid appointment date")
		}
		merged.ApptDate = apptDate
	}

	car, err := s.admission.Propose(ctx, Proposal{
		Principal: principal,
		CarID:     merged.CarID,
		ApptDate:  merged.ApptDate,
		Existing:  existing,
	})
	if err != nil {
		s.cfg.Log.Info("Booking update rejected", "id", id, "user_id", principal.UserID, "error", err)
		return nil, err
	}
	if err := s.validate(&merged); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, id, merged.CarID, merged.ApptDate); err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrSlotTaken):
			return nil, conflictError(merged.ApptDate)
		case errors.Is(err, bookingserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		s.cfg.Log.Error("Failed to update booking", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update booking", err)
	}
	merged.Car = car.Summary()

	s.cfg.Log.Info("Booking updated successfully",
		"id", id,
		"car_id", merged.CarID,
		"appt_date", merged.ApptDate.Format(model.DateLayout),
	)
	s.notify(ctx, model.NotificationBookingUpdated, &merged, car)
	return &merged, nil
}

func (s *bookingService) Delete(ctx context.Context, principal model.Principal, id string) error {
	existing, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	if err := s.admission.Withdraw(principal, existing); err != nil {
		s.cfg.Log.Info("Booking cancellation rejected", "id", id, "user_id", principal.UserID, "error", err)
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", id)
		}
		s.cfg.Log.Error("Failed to delete booking", "id", id, "error", err)
		return apperrors.Internal("Failed to delete booking", err)
	}

	s.cfg.Log.Info("Booking deleted successfully", "id", id)

	car, err := s.cars.FindByID(ctx, existing.CarID)
	if err != nil {
		car = nil
	}
	s.notify(ctx, model.NotificationBookingCancelled, existing, car)
	return nil
}

// --- Helpers ---

func (s *bookingService) find(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("No booking with the id of %s", id), http.StatusNotFound)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) validate(booking *model.Booking) error {
	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

// notify hands the booking notification off in the background. Nothing here
// can fail the booking operation.
func (s *bookingService) notify(ctx context.Context, kind model.NotificationKind, booking *model.Booking, car *model.Car) {
	user, err := s.users.FindByID(ctx, booking.UserID)
	if err != nil {
		s.cfg.Log.Error("Failed to resolve booking owner for notification",
			"booking_id", booking.ID,
			"user_id", booking.UserID,
			"kind", kind,
			"error", err,
		)
		return
	}

	data := map[string]string{
		"booking_id": booking.ID,
		"appt_date":  booking.ApptDate.Format(model.DateLayout),
	}
	if car != nil {
		data["car_name"] = car.Name
		data["car_address"] = car.Address
		data["car_tel"] = car.Tel
	}

	s.notifier.Notify(ctx, &model.Notification{
		Kind: kind,
		To:   user.Email,
		Name: user.Name,
		Data: data,
	})
}

// acquireQuotaLock creates the per-user advisory lock guarding the quota
// check. The lock expires on its own if it is never released.
func (s *bookingService) acquireQuotaLock(ctx context.Context, userID string) (string, error) {
	lock := &model.BookingLock{
		ID:        model.QuotaLockID(userID),
		ExpiresAt: time.Now().UTC().Add(s.cfg.BookingLockTTL),
	}

	if err := s.lockRepo.Acquire(ctx, lock); err != nil {
		if errors.Is(err, bookingserrors.ErrLockHeld) {
			return "", apperrors.Conflict("Another booking request for this user is in progress. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire booking lock", err)
	}
	return lock.ID, nil
}

func (s *bookingService) releaseQuotaLock(ctx context.Context, lockID string) {
	if err := s.lockRepo.Release(context.WithoutCancel(ctx), lockID); err != nil {
		s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", err)
	}
}
