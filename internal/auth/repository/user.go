package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	autherrors "rentcar/internal/auth/errors"
	"rentcar/pkg/config"
	mongotx "rentcar/pkg/db/mongo"
	"rentcar/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	UsersCollection = "Users"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	MarkVerified(ctx context.Context, id string) error
	SetResetToken(ctx context.Context, id string, token string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string, token string) error
	ClaimResetToken(ctx context.Context, id string, token string, now time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoUserRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoUserRepository(cfg *config.Config) UserRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoUserRepository{
		cfg:        cfg,
		collection: db.Collection(UsersCollection),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout leaves a SessionContext untouched so transactional calls keep
// their session.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	if remaining := time.Until(deadline); remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", autherrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoUserRepository) Create(ctx context.Context, user *model.User) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	user.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return autherrors.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid.Hex()
	}
	return nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var user model.User
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, autherrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *mongoUserRepository) MarkVerified(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	return r.updateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"verified": true}})
}

func (r *mongoUserRepository) SetResetToken(ctx context.Context, id string, token string, expiresAt time.Time) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	return r.updateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"reset_password_token":  token,
		"reset_password_expire": expiresAt,
	}})
}

// ClearResetToken removes the reset fields only while they still hold token,
// so a newer token issued concurrently survives.
func (r *mongoUserRepository) ClearResetToken(ctx context.Context, id string, token string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	err = r.updateOne(ctx,
		bson.M{"_id": oid, "reset_password_token": token},
		bson.M{"$unset": bson.M{"reset_password_token": "", "reset_password_expire": ""}},
	)
	if errors.Is(err, autherrors.ErrNotFound) {
		return nil
	}
	return err
}

// ClaimResetToken clears the reset fields in the same write that checks them,
// so a token can be claimed at most once.
func (r *mongoUserRepository) ClaimResetToken(ctx context.Context, id string, token string, now time.Time) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	err = r.updateOne(ctx,
		bson.M{
			"_id":                   oid,
			"reset_password_token":  token,
			"reset_password_expire": bson.M{"$gt": now},
		},
		bson.M{"$unset": bson.M{"reset_password_token": "", "reset_password_expire": ""}},
	)
	if errors.Is(err, autherrors.ErrNotFound) {
		return autherrors.ErrResetTokenMismatch
	}
	return err
}

func (r *mongoUserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	return r.updateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"password": passwordHash}})
}

func (r *mongoUserRepository) updateOne(ctx context.Context, filter bson.M, update bson.M) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return autherrors.ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
