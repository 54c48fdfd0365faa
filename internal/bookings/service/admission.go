package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	bookingserrors "rentcar/internal/bookings/errors"
	"rentcar/internal/bookings/repository"
	carserrors "rentcar/internal/cars/errors"
	"rentcar/pkg/config"
	apperrors "rentcar/pkg/errors"
	"rentcar/pkg/model"
)

// CarLookup resolves the cars bookings refer to.
type CarLookup interface {
	FindByID(ctx context.Context, id string) (*model.Car, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Car, error)
}

// Proposal is a booking mutation awaiting admission. Existing is nil for a
// new booking and holds the stored booking for an update.
type Proposal struct {
	Principal model.Principal
	CarID     string
	ApptDate  time.Time
	Existing  *model.Booking
}

func (p Proposal) isUpdate() bool {
	return p.Existing != nil
}

// AdmissionController decides whether a booking may be created, changed or
// withdrawn. It never writes bookings itself.
type AdmissionController struct {
	cars     CarLookup
	bookings repository.BookingRepository
	cfg      *config.Config
	now      func() time.Time
}

func NewAdmissionController(cars CarLookup, bookings repository.BookingRepository, cfg *config.Config) *AdmissionController {
	return &AdmissionController{
		cars:     cars,
		bookings: bookings,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Today is the current calendar day in the business time zone, as UTC midnight.
func (a *AdmissionController) Today() time.Time {
	return model.DateOf(a.now(), a.cfg.Location)
}

// Propose runs the admission checks in order: ownership (updates only), car,
// (car, date) conflict, date in the future, and the per-user quota (creates
// only). It returns the resolved car.
func (a *AdmissionController) Propose(ctx context.Context, p Proposal) (*model.Car, error) {
	if p.isUpdate() && !p.Principal.CanAccess(p.Existing.UserID) {
		return nil, apperrors.Forbidden(fmt.Sprintf("User %s is not authorized to update this booking", p.Principal.UserID))
	}

	car, err := a.cars.FindByID(ctx, p.CarID)
	if err != nil {
		if errors.Is(err, carserrors.ErrNotFound) || errors.Is(err, carserrors.ErrInvalidID) {
			notFound := apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("No car with the id of %s", p.CarID), http.StatusNotFound)
			if p.isUpdate() {
				return nil, notFound.WithStatus(http.StatusUnauthorized)
			}
			return nil, notFound
		}
		return nil, apperrors.Internal("Failed to retrieve car", err)
	}

	if err := a.checkConflict(ctx, p); err != nil {
		return nil, err
	}

	if !p.ApptDate.After(a.Today()) {
		return nil, apperrors.InvalidDate("Appointment date must be after today")
	}

	if !p.isUpdate() {
		if err := a.checkQuota(ctx, p.Principal); err != nil {
			return nil, err
		}
	}

	return car, nil
}

// Withdraw authorizes deleting booking. A booking cannot be cancelled on its own day.
func (a *AdmissionController) Withdraw(principal model.Principal, booking *model.Booking) error {
	if !principal.CanAccess(booking.UserID) {
		return apperrors.Unauthorized(fmt.Sprintf("User %s is not authorized to delete this booking", principal.UserID))
	}
	if booking.ApptDate.Equal(a.Today()) {
		return apperrors.SameDayCancellation("Cannot cancel a booking on the appointment day")
	}
	return nil
}

func (a *AdmissionController) checkConflict(ctx context.Context, p Proposal) error {
	holder, err := a.bookings.FindByCarAndDate(ctx, p.CarID, p.ApptDate)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil
		}
		return apperrors.Internal("Failed to check existing bookings", err)
	}
	if p.isUpdate() && holder.ID == p.Existing.ID {
		return nil
	}
	return conflictError(p.ApptDate)
}

func (a *AdmissionController) checkQuota(ctx context.Context, principal model.Principal) error {
	if principal.IsAdmin() {
		return nil
	}

	count, err := a.bookings.CountByUser(ctx, principal.UserID)
	if err != nil {
		return apperrors.Internal("Failed to count bookings", err)
	}
	if count >= int64(a.cfg.MaxActiveBookings) {
		return apperrors.QuotaExceeded(fmt.Sprintf("The user with ID %s has already made %d bookings", principal.UserID, a.cfg.MaxActiveBookings))
	}
	return nil
}

func conflictError(apptDate time.Time) error {
	return apperrors.Conflict(fmt.Sprintf("This car is already booked on %s", apptDate.Format(model.DateLayout)))
}
