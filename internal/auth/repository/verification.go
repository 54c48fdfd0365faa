package repository

import (
	"context"
	"errors"
	"fmt"

	autherrors "rentcar/internal/auth/errors"
	"rentcar/pkg/config"
	"rentcar/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	VerificationsCollection = "Verifications"
)

// VerificationRepository stores at most one verification per user, keyed by user_id.
type VerificationRepository interface {
	Upsert(ctx context.Context, v *model.Verification) error
	FindByUser(ctx context.Context, userID string) (*model.Verification, error)
	DeleteByUserAndCode(ctx context.Context, userID string, code string) error
}

type mongoVerificationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoVerificationRepository(cfg *config.Config) VerificationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoVerificationRepository{
		cfg:        cfg,
		collection: db.Collection(VerificationsCollection),
	}
}

// Upsert replaces the code and expiry of the user's verification, creating it
// when absent.
func (r *mongoVerificationRepository) Upsert(ctx context.Context, v *model.Verification) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"code":       v.Code,
			"created_at": v.CreatedAt,
			"expires_at": v.ExpiresAt,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored model.Verification
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"user_id": v.UserID}, update, opts).Decode(&stored)
	if err != nil {
		return fmt.Errorf("failed to upsert verification: %w", err)
	}
	v.ID = stored.ID
	return nil
}

func (r *mongoVerificationRepository) FindByUser(ctx context.Context, userID string) (*model.Verification, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var v model.Verification
	if err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, autherrors.ErrVerificationNotFound
		}
		return nil, fmt.Errorf("failed to find verification: %w", err)
	}
	return &v, nil
}

// DeleteByUserAndCode deletes the verification only while it still holds code.
// Of two concurrent consumers exactly one observes a deletion.
func (r *mongoVerificationRepository) DeleteByUserAndCode(ctx context.Context, userID string, code string) error {
	return r.delete(ctx, bson.M{"user_id": userID, "code": code})
}

func (r *mongoVerificationRepository) delete(ctx context.Context, filter bson.M) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete verification: %w", err)
	}
	if result.DeletedCount == 0 {
		return autherrors.ErrVerificationNotFound
	}
	return nil
}
