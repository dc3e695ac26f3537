package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Arjun7988/i4ubuddylive-sub000/internal/config"
	"github.com/Arjun7988/i4ubuddylive-sub000/internal/utils"
)

func setupTestDBUser(t *testing.T, dbName string) *mongo.Database {
	return utils.SetupTestDB(t, dbName, "users")
}

func testUserConfig() *config.Config {
	return &config.Config{PasswordRegexp: "^.{8,}$"}
}

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	db := setupTestDBUser(t, "testdb_user_service_register")
	svc := NewUserService(db, testUserConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice", "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEqual(t, utils.SixID{}, user.ID)
	// The hash is stored, never the plaintext.
	assert.NotEqual(t, "correct horse battery", user.PasswordHash)

	// Duplicate email
	_, err = svc.Register(ctx, "Alice Again", "alice@example.com", "another password")
	assert.ErrorIs(t, err, ErrEmailExists)

	authed, err := svc.Authenticate(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = svc.Authenticate(ctx, "alice@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_PasswordPolicy(t *testing.T) {
	db := setupTestDBUser(t, "testdb_user_service_policy")
	svc := NewUserService(db, testUserConfig())

	_, err := svc.Register(context.Background(), "Bob", "bob@example.com", "short")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")
}

func TestUserService_SuspendBlocksLogin(t *testing.T) {
	db := setupTestDBUser(t, "testdb_user_service_suspend")
	svc := NewUserService(db, testUserConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, "Carol", "carol@example.com", "long enough password")
	require.NoError(t, err)

	require.NoError(t, svc.SuspendUser(ctx, user.ID))
	_, err = svc.Authenticate(ctx, "carol@example.com", "long enough password")
	assert.ErrorIs(t, err, ErrUserSuspended)

	require.NoError(t, svc.UnsuspendUser(ctx, user.ID))
	_, err = svc.Authenticate(ctx, "carol@example.com", "long enough password")
	assert.NoError(t, err)

	// Unknown user
	err = svc.SuspendUser(ctx, utils.NewSixID())
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}

func TestUserService_FindUserByID(t *testing.T) {
	db := setupTestDBUser(t, "testdb_user_service_find")
	svc := NewUserService(db, testUserConfig())
	ctx := context.Background()

	user, err := svc.Register(ctx, "Dave", "dave@example.com", "long enough password")
	require.NoError(t, err)

	found, err := svc.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dave", found.Name)

	_, err = svc.FindUserByID(ctx, utils.NewSixID())
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}
