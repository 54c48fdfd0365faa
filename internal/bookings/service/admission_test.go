package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	apperrors "rentcar/pkg/errors"
	"rentcar/pkg/model"
)

func assertAppError(t *testing.T, err error, wantCode string, wantStatus int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s (%d), got nil", wantCode, wantStatus)
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != wantCode || appErr.StatusCode() != wantStatus {
		t.Fatalf("expected %s (%d), got %s (%d): %v", wantCode, wantStatus, appErr.Code, appErr.StatusCode(), err)
	}
}

func TestAdmission_Today(t *testing.T) {
	f := newFixture()

	// 16:30 UTC is 23:30 in Bangkok, still the 5th.
	f.admission.now = func() time.Time { return time.Date(2030, 1, 5, 16, 30, 0, 0, time.UTC) }
	if got := f.admission.Today(); !got.Equal(day(5)) {
		t.Errorf("Today() = %v, want %v", got, day(5))
	}

	f.admission.now = func() time.Time { return time.Date(2030, 1, 5, 17, 30, 0, 0, time.UTC) }
	if got := f.admission.Today(); !got.Equal(day(6)) {
		t.Errorf("Today() after Bangkok midnight = %v, want %v", got, day(6))
	}
}

func TestAdmission_Propose(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(f *fixture) Proposal
		wantCode   string
		wantStatus int
	}{
		{
			name: "future date on a free car",
			setup: func(f *fixture) Proposal {
				return Proposal{Principal: userU, CarID: carC1, ApptDate: day(10)}
			},
		},
		{
			name: "today is rejected",
			setup: func(f *fixture) Proposal {
				return Proposal{Principal: userU, CarID: carC1, ApptDate: day(5)}
			},
			wantCode:   apperrors.CodeInvalidDate,
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name: "past date is rejected",
			setup: func(f *fixture) Proposal {
				return Proposal{Principal: userU, CarID: carC1, ApptDate: day(1)}
			},
			wantCode:   apperrors.CodeInvalidDate,
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name: "car taken by another user",
			setup: func(f *fixture) Proposal {
				f.bookings.put(userV.UserID, carC1, day(10))
				return Proposal{Principal: userU, CarID: carC1, ApptDate: day(10)}
			},
			wantCode:   apperrors.CodeConflict,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "same date on another car is free",
			setup: func(f *fixture) Proposal {
				f.bookings.put(userV.UserID, carC1, day(10))
				return Proposal{Principal: userU, CarID: carC2, ApptDate: day(10)}
			},
		},
		{
			name: "unknown car on create",
			setup: func(f *fixture) Proposal {
				return Proposal{Principal: userU, CarID: noCar, ApptDate: day(10)}
			},
			wantCode:   apperrors.CodeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name: "unknown car on update",
			setup: func(f *fixture) Proposal {
				existing := f.bookings.put(userU.UserID, carC1, day(10))
				return Proposal{Principal: userU, CarID: noCar, ApptDate: day(10), Existing: existing}
			},
			wantCode:   apperrors.CodeNotFound,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "update keeping its own slot",
			setup: func(f *fixture) Proposal {
				existing := f.bookings.put(userU.UserID, carC1, day(10))
				return Proposal{Principal: userU, CarID: carC1, ApptDate: day(10), Existing: existing}
			},
		},
		{
			name: "update of another user's booking",
			setup: func(f *fixture) Proposal {
				existing := f.bookings.put(userV.UserID, carC1, day(10))
				return Proposal{Principal: userU, CarID: carC1, ApptDate: day(11), Existing: existing}
			},
			wantCode:   apperrors.CodeForbidden,
			wantStatus: http.StatusForbidden,
		},
		{
			name: "admin updates any booking",
			setup: func(f *fixture) Proposal {
				existing := f.bookings.put(userV.UserID, carC1, day(10))
				return Proposal{Principal: admin, CarID: carC2, ApptDate: day(11), Existing: existing}
			},
		},
		{
			name: "quota reached",
			setup: func(f *fixture) Proposal {
				for d := 10; d < 13; d++ {
					f.bookings.put(userU.UserID, carC2, day(d))
				}
				return Proposal{Principal: userU, CarID: carC1, ApptDate: day(20)}
			},
			wantCode:   apperrors.CodeQuotaExceeded,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "quota does not apply to updates",
			setup: func(f *fixture) Proposal {
				var existing *model.Booking
				for d := 10; d < 13; d++ {
					existing = f.bookings.put(userU.UserID, carC2, day(d))
				}
				return Proposal{Principal: userU, CarID: carC1, ApptDate: day(20), Existing: existing}
			},
		},
		{
			name: "admins have no quota",
			setup: func(f *fixture) Proposal {
				for d := 10; d < 20; d++ {
					f.bookings.put(admin.UserID, carC2, day(d))
				}
				return Proposal{Principal: admin, CarID: carC1, ApptDate: day(20)}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			p := tt.setup(f)

			car, err := f.admission.Propose(context.Background(), p)
			if tt.wantCode != "" {
				assertAppError(t, err, tt.wantCode, tt.wantStatus)
				return
			}
			if err != nil {
				t.Fatalf("Propose(): %v", err)
			}
			if car == nil || car.ID != p.CarID {
				t.Errorf("expected car %s to be resolved, got %+v", p.CarID, car)
			}
		})
	}
}

func TestAdmission_ConflictMessage(t *testing.T) {
	f := newFixture()
	f.bookings.put(userV.UserID, carC1, day(10))

	_, err := f.admission.Propose(context.Background(), Proposal{Principal: userU, CarID: carC1, ApptDate: day(10)})
	if got := apperrors.AsAppError(err).Message; got != "This car is already booked on 2030-01-10" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestAdmission_Withdraw(t *testing.T) {
	tests := []struct {
		name       string
		principal  model.Principal
		apptDate   time.Time
		wantCode   string
		wantStatus int
	}{
		{name: "owner cancels a future booking", principal: userU, apptDate: day(10)},
		{name: "admin cancels any booking", principal: admin, apptDate: day(10)},
		{name: "owner cancels a past booking", principal: userU, apptDate: day(1)},
		{
			name:       "other user",
			principal:  userV,
			apptDate:   day(10),
			wantCode:   apperrors.CodeUnauthorized,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "on the appointment day",
			principal:  userU,
			apptDate:   day(5),
			wantCode:   apperrors.CodeSameDayCancellation,
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name:       "admin on the appointment day",
			principal:  admin,
			apptDate:   day(5),
			wantCode:   apperrors.CodeSameDayCancellation,
			wantStatus: http.StatusPaymentRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			booking := &model.Booking{ID: "b1", UserID: userU.UserID, CarID: carC1, ApptDate: tt.apptDate}

			err := f.admission.Withdraw(tt.principal, booking)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Withdraw(): %v", err)
				}
				return
			}
			assertAppError(t, err, tt.wantCode, tt.wantStatus)
		})
	}
}
