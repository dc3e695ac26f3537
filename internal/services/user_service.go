package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Arjun7988/i4ubuddylive-sub000/internal/auth"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/config"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/db"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/models"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/utils"
)

var (
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserSuspended      = errors.New("user account is suspended")
)

// IUserService defines the interface for user account operations.
type IUserService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	FindUserByID(ctx context.Context, userID utils.SixID) (*models.User, error)
	SuspendUser(ctx context.Context, userID utils.SixID) error
	UnsuspendUser(ctx context.Context, userID utils.SixID) error
}

const usersCollection = "users"

type userService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewUserService creates a new UserService.
func NewUserService(database *mongo.Database, cfg *config.Config) IUserService {
	return &userService{db: database, cfg: cfg}
}

// Register creates a new user account with a bcrypt-hashed password.
func (s *userService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	if s.cfg.PasswordRegexp != "" {
		re, err := regexp.Compile(s.cfg.PasswordRegexp)
		if err != nil {
			return nil, fmt.Errorf("invalid password policy regexp: %w", err)
		}
		if !re.MatchString(password) {
			return nil, &ValidationError{Fields: map[string]string{
				"password": "password does not meet the minimum requirements",
			}}
		}
	}

	collection := s.db.Collection(usersCollection)

	// Email uniqueness is enforced by a unique index; this pre-check just
	// gives a cleaner error for the common case.
	count, err := collection.CountDocuments(ctx, bson.M{"email": email, "deleted": false})
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing user: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailExists
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var newUser *models.User

	operation := func() error {
		newUser = &models.User{
			Base:         models.NewBase(),
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		_, insertErr := collection.InsertOne(ctx, newUser)
		return insertErr
	}

	if err = db.Try(operation); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to insert new user: %w", err)
	}

	return newUser, nil
}

// Authenticate verifies the credentials and returns the user. Suspended
// accounts cannot log in.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	collection := s.db.Collection(usersCollection)

	err := collection.FindOne(ctx, bson.M{"email": email, "deleted": false}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error finding user by email: %w", err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if user.Suspended {
		return nil, ErrUserSuspended
	}
	return &user, nil
}

// FindUserByID finds a non-deleted user by ID.
func (s *userService) FindUserByID(ctx context.Context, userID utils.SixID) (*models.User, error) {
	var user models.User
	collection := s.db.Collection(usersCollection)

	err := collection.FindOne(ctx, bson.M{"_id": userID, "deleted": false}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by ID %s: %w", userID.String(), err)
	}
	return &user, nil
}

func (s *userService) setSuspended(ctx context.Context, userID utils.SixID, suspended bool) error {
	collection := s.db.Collection(usersCollection)
	update := bson.M{"$set": bson.M{
		"suspended":  suspended,
		"updated_at": time.Now().UTC(),
	}}
	result, err := collection.UpdateOne(ctx, bson.M{"_id": userID, "deleted": false}, update)
	if err != nil {
		return fmt.Errorf("db error updating suspension for user %s: %w", userID.String(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SuspendUser blocks the user from logging in. Their listings stay in place.
func (s *userService) SuspendUser(ctx context.Context, userID utils.SixID) error {
	return s.setSuspended(ctx, userID, true)
}

// UnsuspendUser lifts a suspension.
func (s *userService) UnsuspendUser(ctx context.Context, userID utils.SixID) error {
	return s.setSuspended(ctx, userID, false)
}
