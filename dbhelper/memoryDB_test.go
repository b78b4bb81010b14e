package dbhelper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/speakcheck/apiv1/models"
	"github.com/speakcheck/apiv1/utils"
)

func TestMemoryStore_UserUniqueness(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.CreateUser(ctx, &models.User{Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = store.CreateUser(ctx, &models.User{Email: "alice@example.com"})
	assert.ErrorIs(t, err, utils.ErrDuplicateKey)
}

func TestMemoryStore_SessionExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	userID := primitive.NewObjectID()
	now := time.Now().UTC()

	require.NoError(t, store.CreateSession(ctx, &models.UserSession{
		UserID:    userID,
		Token:     "live-token",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
		IsActive:  true,
	}))
	require.NoError(t, store.CreateSession(ctx, &models.UserSession{
		UserID:    userID,
		Token:     "expired-token",
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
		IsActive:  true,
	}))

	live, err := store.GetActiveSessionByToken(ctx, "live-token")
	require.NoError(t, err)
	assert.NotNil(t, live)

	// expired sessions are filtered even while still marked active
	expired, err := store.GetActiveSessionByToken(ctx, "expired-token")
	require.NoError(t, err)
	assert.Nil(t, expired)

	swept, err := store.SweepSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	live, err = store.GetActiveSessionByToken(ctx, "live-token")
	require.NoError(t, err)
	assert.NotNil(t, live)
}

func TestMemoryStore_ResetTokenSingleUse(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.CreateResetToken(ctx, &models.PasswordResetToken{
		UserID:    primitive.NewObjectID(),
		Token:     "reset-token",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	reset, err := store.GetValidResetToken(ctx, "reset-token")
	require.NoError(t, err)
	require.NotNil(t, reset)

	changed, err := store.MarkResetTokenUsed(ctx, "reset-token")
	require.NoError(t, err)
	assert.True(t, changed)

	// once consumed it never validates again
	reset, err = store.GetValidResetToken(ctx, "reset-token")
	require.NoError(t, err)
	assert.Nil(t, reset)

	changed, err = store.MarkResetTokenUsed(ctx, "reset-token")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestMemoryStore_InvalidateUserSessions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	userID := primitive.NewObjectID()
	other := primitive.NewObjectID()
	now := time.Now().UTC()

	for _, token := range []string{"t1", "t2", "t3"} {
		require.NoError(t, store.CreateSession(ctx, &models.UserSession{
			UserID: userID, Token: token, CreatedAt: now, ExpiresAt: now.Add(time.Hour), IsActive: true,
		}))
	}
	require.NoError(t, store.CreateSession(ctx, &models.UserSession{
		UserID: other, Token: "other", CreatedAt: now, ExpiresAt: now.Add(time.Hour), IsActive: true,
	}))

	n, err := store.InvalidateUserSessions(ctx, userID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// the other user's session is untouched
	s, err := store.GetActiveSessionByToken(ctx, "other")
	require.NoError(t, err)
	assert.NotNil(t, s)
}
