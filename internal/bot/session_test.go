package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tailoring-bot/internal/fitting"
	"tailoring-bot/pkg/redis"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(redis.NewMemory(), time.Hour)

	sess, err := store.Get(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, Session{}, sess)

	booking := fitting.NewBooking()
	booking.FirstName = "Asha"
	require.NoError(t, store.Save(ctx, 7, Session{Step: StepFittingLastName, Fitting: &booking}))

	sess, err = store.Get(ctx, 7)
	require.NoError(t, err)
	sess.Step = StepFittingEmail
	require.NoError(t, store.Save(ctx, 7, sess))

	sess, err = store.Get(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, StepFittingEmail, sess.Step)
	require.Equal(t, "Asha", sess.Fitting.FirstName)

	require.NoError(t, store.Clear(ctx, 7))
	sess, err = store.Get(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, Session{}, sess)
}

func TestSessionStoreAllow(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(redis.NewMemory(), time.Hour)

	for i := 0; i < 3; i++ {
		ok, err := store.Allow(ctx, 7, "submit", 3, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := store.Allow(ctx, 7, "submit", 3, time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = store.Allow(ctx, 8, "submit", 3, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSessionStoreOrderBinding(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(redis.NewMemory(), time.Hour)

	_, found, err := store.ChatForOrder(ctx, "token")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.BindOrder(ctx, "token", 7))
	chatID, found, err := store.ChatForOrder(ctx, "token")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(7), chatID)

	first, err := store.FirstNotice(ctx, "sub-1")
	require.NoError(t, err)
	require.True(t, first)
	first, err = store.FirstNotice(ctx, "sub-1")
	require.NoError(t, err)
	require.False(t, first)
}
