package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/prostech/salesbi-auth/internal/core/domain"
	"github.com/prostech/salesbi-auth/internal/pkg/metrics"
	"github.com/prostech/salesbi-auth/internal/pkg/retry"
)

const usersCollection = "users"

// UserRepository reads the users collection, a document mirror of the
// relational users table.
type UserRepository struct {
	coll  *mongo.Collection
	retry retry.Policy
	log   zerolog.Logger
}

func NewUserRepository(db *mongo.Database, log zerolog.Logger) *UserRepository {
	r := &UserRepository{
		coll: db.Collection(usersCollection),
		log:  log.With().Str("component", "mongo_users").Logger(),
	}
	r.retry = retry.Default
	r.retry.Permanent = func(err error) bool {
		return errors.Is(err, mongo.ErrNoDocuments) ||
			errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded)
	}
	return r
}

type mongoUser struct {
	ID           int64      `bson:"id"`
	Username     string     `bson:"username"`
	Email        string     `bson:"email,omitempty"`
	Role         string     `bson:"role,omitempty"`
	EmployeeID   *int64     `bson:"employee_id,omitempty"`
	PasswordHash string     `bson:"password_hash,omitempty"`
	PasswordSalt string     `bson:"password_salt,omitempty"`
	IsActive     *bool      `bson:"is_active,omitempty"`
	LastLogin    *time.Time `bson:"last_login,omitempty"`
	CreatedDate  *time.Time `bson:"created_date,omitempty"`
	DeleteFlag   int        `bson:"delete_flag"`
}

func (m mongoUser) active() bool {
	return m.IsActive == nil || *m.IsActive
}

func liveFilter(username string) bson.M {
	return bson.M{"username": username, "delete_flag": 0}
}

var (
	credentialProjection = bson.M{"username": 1, "password_hash": 1, "password_salt": 1, "is_active": 1}
	profileProjection    = bson.M{"password_hash": 0, "password_salt": 0}
)

func (r *UserRepository) findOne(ctx context.Context, op, username string, projection bson.M) (*mongoUser, error) {
	p := r.retry
	p.OnRetry = func(attempt int, err error) {
		metrics.StoreRetriesTotal.WithLabelValues(op).Inc()
		r.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("query attempt failed")
	}

	var mu mongoUser
	err := retry.Do(ctx, p, func(ctx context.Context) error {
		return r.coll.FindOne(ctx, liveFilter(username), options.FindOne().SetProjection(projection)).Decode(&mu)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &mu, nil
}

func (r *UserRepository) FindCredentials(ctx context.Context, username string) (*domain.Credential, error) {
	mu, err := r.findOne(ctx, "find_credentials", username, credentialProjection)
	if err != nil {
		return nil, err
	}
	return &domain.Credential{
		Username:     mu.Username,
		PasswordHash: mu.PasswordHash,
		PasswordSalt: mu.PasswordSalt,
		IsActive:     mu.active(),
	}, nil
}

func (r *UserRepository) FindProfile(ctx context.Context, username string) (*domain.User, error) {
	mu, err := r.findOne(ctx, "find_profile", username, profileProjection)
	if err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(mu.Role)
	if err != nil {
		return nil, fmt.Errorf("find profile: role %q: %w", mu.Role, err)
	}
	return &domain.User{
		ID:          mu.ID,
		Username:    mu.Username,
		Email:       mu.Email,
		Role:        role,
		EmployeeID:  mu.EmployeeID,
		IsActive:    mu.active(),
		LastLogin:   utcPtr(mu.LastLogin),
		CreatedDate: utcPtr(mu.CreatedDate),
	}, nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, username string) error {
	update := bson.M{"$set": bson.M{"last_login": time.Now().UTC()}}
	if _, err := r.coll.UpdateOne(ctx, liveFilter(username), update); err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

// EnsureIndexes creates the unique username index lookups rely on.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_username"),
	})
	if err != nil {
		return fmt.Errorf("ensure users indexes: %w", err)
	}
	return nil
}
