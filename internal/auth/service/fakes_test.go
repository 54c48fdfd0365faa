package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	autherrors "rentcar/internal/auth/errors"
	"rentcar/internal/auth/validator"
	"rentcar/pkg/config"
	mongotx "rentcar/pkg/db/mongo"
	"rentcar/pkg/logger"
	"rentcar/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ────────────────────────────────────────────────
// In-memory repositories
// ────────────────────────────────────────────────

type fakeUserRepository struct {
	mu        sync.Mutex
	users     map[string]*model.User
	updateErr error
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: map[string]*model.User{}}
}

func (f *fakeUserRepository) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return autherrors.ErrDuplicateEmail
		}
	}
	user.ID = primitive.NewObjectID().Hex()
	user.CreatedAt = time.Now().UTC()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, autherrors.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	found := *u
	return &found, nil
}

func (f *fakeUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			found := *u
			return &found, nil
		}
	}
	return nil, autherrors.ErrNotFound
}

func (f *fakeUserRepository) MarkVerified(ctx context.Context, id string) error {
	return f.mutate(id, func(u *model.User) { u.Verified = true })
}

func (f *fakeUserRepository) SetResetToken(ctx context.Context, id string, token string, expiresAt time.Time) error {
	return f.mutate(id, func(u *model.User) {
		u.ResetPasswordToken = token
		u.ResetPasswordExpire = &expiresAt
	})
}

func (f *fakeUserRepository) ClearResetToken(ctx context.Context, id string, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok && u.ResetPasswordToken == token {
		u.ResetPasswordToken = ""
		u.ResetPasswordExpire = nil
	}
	return nil
}

func (f *fakeUserRepository) ClaimResetToken(ctx context.Context, id string, token string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.ResetPasswordToken == "" || u.ResetPasswordToken != token ||
		u.ResetPasswordExpire == nil || !u.ResetPasswordExpire.After(now) {
		return autherrors.ErrResetTokenMismatch
	}
	u.ResetPasswordToken = ""
	u.ResetPasswordExpire = nil
	return nil
}

func (f *fakeUserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	return f.mutate(id, func(u *model.User) { u.Password = passwordHash })
}

func (f *fakeUserRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

func (f *fakeUserRepository) mutate(id string, apply func(*model.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.users[id]
	if !ok {
		return autherrors.ErrNotFound
	}
	apply(u)
	return nil
}

func (f *fakeUserRepository) get(id string) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.users[id]
}

type fakeVerificationRepository struct {
	mu        sync.Mutex
	byUser    map[string]*model.Verification
	upsertErr error
}

func newFakeVerificationRepository() *fakeVerificationRepository {
	return &fakeVerificationRepository{byUser: map[string]*model.Verification{}}
}

func (f *fakeVerificationRepository) Upsert(ctx context.Context, v *model.Verification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if existing, ok := f.byUser[v.UserID]; ok {
		v.ID = existing.ID
	} else {
		v.ID = primitive.NewObjectID().Hex()
	}
	stored := *v
	f.byUser[v.UserID] = &stored
	return nil
}

func (f *fakeVerificationRepository) FindByUser(ctx context.Context, userID string) (*model.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byUser[userID]
	if !ok {
		return nil, autherrors.ErrVerificationNotFound
	}
	found := *v
	return &found, nil
}

func (f *fakeVerificationRepository) DeleteByUserAndCode(ctx context.Context, userID string, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byUser[userID]
	if !ok || v.Code != code {
		return autherrors.ErrVerificationNotFound
	}
	delete(f.byUser, userID)
	return nil
}

func (f *fakeVerificationRepository) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byUser)
}

// ────────────────────────────────────────────────
// Collaborators
// ────────────────────────────────────────────────

type fakeNotifier struct {
	mu         sync.Mutex
	sent       []*model.Notification
	deliverErr error
}

func (f *fakeNotifier) Notify(ctx context.Context, n *model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
}

func (f *fakeNotifier) Deliver(ctx context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deliverErr != nil {
		return f.deliverErr
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeNotifier) last(kind model.NotificationKind) *model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].Kind == kind {
			return f.sent[i]
		}
	}
	return nil
}

type fakeHasher struct {
	hashErr error
}

func (h *fakeHasher) Hash(password string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + password, nil
}

func (h *fakeHasher) Compare(hash, password string) error {
	if !strings.HasPrefix(hash, "hashed:") || strings.TrimPrefix(hash, "hashed:") != password {
		return errors.New("mismatch")
	}
	return nil
}

// ────────────────────────────────────────────────
// Fixture
// ────────────────────────────────────────────────

type fixture struct {
	users         *fakeUserRepository
	verifications *fakeVerificationRepository
	notifier      *fakeNotifier
	hasher        *fakeHasher
	manager       *verificationManager
	auth          AuthService
}

func newFixture() *fixture {
	cfg := &config.Config{
		Log:           logger.Discard(),
		OTPTTL:        7 * 24 * time.Hour,
		ResetTokenTTL: time.Hour,
		ResetURL:      "http://localhost:5000/api/v1/auth/resetpassword/",
		PhoneRegions:  []string{"TH", "US"},
	}
	f := &fixture{
		users:         newFakeUserRepository(),
		verifications: newFakeVerificationRepository(),
		notifier:      &fakeNotifier{},
		hasher:        &fakeHasher{},
	}
	v := validator.NewUserValidator(cfg.Log)
	f.manager = &verificationManager{
		users:         f.users,
		verifications: f.verifications,
		hasher:        f.hasher,
		notifier:      f.notifier,
		validator:     v,
		cfg:           cfg,
		now:           time.Now,
	}
	f.auth = NewAuthService(f.users, f.manager, f.hasher, v, cfg)
	return f
}

func (f *fixture) register(email string) *model.User {
	user, err := f.auth.Register(context.Background(), &model.RegisterRequest{
		Name:     "Somchai Jaidee",
		Email:    email,
		Tel:      "+66 81 234 5678",
		Password: "secret123",
	})
	if err != nil {
		panic(err)
	}
	return user
}
