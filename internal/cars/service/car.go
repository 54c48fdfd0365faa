package service

import (
	"context"
	"errors"
	"sync"

	carserrors "rentcar/internal/cars/errors"
	"rentcar/internal/cars/repository"
	"rentcar/internal/cars/validator"
	"rentcar/pkg/config"
	apperrors "rentcar/pkg/errors"
	"rentcar/pkg/model"
	"rentcar/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// BookingCascade removes the bookings that reference a car.
type BookingCascade interface {
	DeleteByCar(ctx context.Context, carID string) (int64, error)
}

type CarService interface {
	Create(ctx context.Context, car *model.Car) error
	GetByID(ctx context.Context, id string) (*model.Car, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Car, int64, error)
	Update(ctx context.Context, id string, updates *model.CarUpdate) (*model.Car, error)
	Delete(ctx context.Context, id string) error
}

type carService struct {
	repo      repository.CarRepository
	bookings  BookingCascade
	validator *validator.CarValidator
	cfg       *config.Config
}

func NewCarService(
	repo repository.CarRepository,
	bookings BookingCascade,
	validator *validator.CarValidator,
	cfg *config.Config,
) CarService {
	return &carService{
		repo:      repo,
		bookings:  bookings,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *carService) Create(ctx context.Context, car *model.Car) error {
	s.sanitize(car)
	if err := s.validate(car); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, car); err != nil {
		if errors.Is(err, carserrors.ErrDuplicateName) {
			return apperrors.Conflict("Car name already exists")
		}
		s.cfg.Log.Error("Failed to create car", "error", err)
		return apperrors.Internal("Failed to create car", err)
	}

	s.cfg.Log.Info("Car created successfully", "id", car.ID, "name", car.Name)
	return nil
}

func (s *carService) GetByID(ctx context.Context, id string) (*model.Car, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Car ID cannot be empty")
	}

	car, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapFindError(id, err)
	}
	return car, nil
}

func (s *carService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Car, int64, error) {
	var count int64
	var cars []*model.Car
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count cars", "error", errCount)
			errCount = apperrors.Internal("Failed to count cars", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		cars, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list cars", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve cars", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	if cars == nil {
		cars = []*model.Car{}
	}

	return cars, count, nil
}

func (s *carService) Update(ctx context.Context, id string, updates *model.CarUpdate) (*model.Car, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Car ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapFindError(id, err)
	}

	if tel := sanitizer.NormalizePhone(updates.Tel, s.cfg.PhoneRegions...); tel != "" {
		updates.Tel = tel
	}
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Car update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := mergeCarUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validate(merged); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		switch {
		case errors.Is(err, carserrors.ErrDuplicateName):
			return nil, apperrors.Conflict("Car name already exists")
		case errors.Is(err, carserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Car", id)
		}
		s.cfg.Log.Error("Failed to update car", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update car", err)
	}

	s.cfg.Log.Info("Car updated successfully", "id", id)
	return merged, nil
}

// Delete removes the car together with its bookings in one transaction, so no
// booking is left pointing at a missing car.
func (s *carService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Car ID cannot be empty")
	}

	var removed int64
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		n, err := s.bookings.DeleteByCar(sessCtx, id)
		if err != nil {
			return apperrors.Internal("Failed to delete bookings of car", err)
		}
		if err := s.repo.Delete(sessCtx, id); err != nil {
			return mapFindError(id, err)
		}
		removed = n
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to delete car", "id", id, "error", err)
		return err
	}

	s.cfg.Log.Info("Car deleted successfully", "id", id, "bookings_removed", removed)
	return nil
}

func mapFindError(id string, err error) error {
	switch {
	case errors.Is(err, carserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Car", id)
	case errors.Is(err, carserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid car ID format")
	}
	return apperrors.Internal("Failed to retrieve car", err)
}

func (s *carService) sanitize(c *model.Car) {
	c.Name = sanitizer.TrimAndNormalize(c.Name)
	c.Address = sanitizer.TrimAndNormalize(c.Address)
	c.District = sanitizer.TrimAndNormalize(c.District)
	c.Province = sanitizer.TrimAndNormalize(c.Province)
	c.Region = sanitizer.TrimAndNormalize(c.Region)
	if tel := sanitizer.NormalizePhone(c.Tel, s.cfg.PhoneRegions...); tel != "" {
		c.Tel = tel
	}
}

func mergeCarUpdates(existing *model.Car, updates *model.CarUpdate) *model.Car {
	merged := *existing

	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Address != "" {
		merged.Address = updates.Address
	}
	if updates.District != "" {
		merged.District = updates.District
	}
	if updates.Province != "" {
		merged.Province = updates.Province
	}
	if updates.Tel != "" {
		merged.Tel = updates.Tel
	}
	if updates.Region != "" {
		merged.Region = updates.Region
	}

	return &merged
}

func (s *carService) validate(car *model.Car) error {
	if err := s.validator.Validate(car); err != nil {
		s.cfg.Log.Warn("Car validation failed", "error", err)
		return apperrors.Validation("Car validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}
