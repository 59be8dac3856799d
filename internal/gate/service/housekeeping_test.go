package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bitshala/guildgate/internal/gate/domain"
	"github.com/bitshala/guildgate/internal/gate/store"
	"github.com/bitshala/guildgate/pkg/cryptox"
	"github.com/bitshala/guildgate/pkg/idx"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	st := newServiceStore(t)
	svc := NewHousekeepingService(st, discardLogger(), time.Hour)

	expired := domain.Token{
		ID:        idx.New().String(),
		Value:     cryptox.MustGenerateToken(cryptox.TokenSize128),
		RoleKey:   "pb",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, st.Tokens().CreateToken(ctx, expired))

	live := domain.Token{
		ID:        idx.New().String(),
		Value:     cryptox.MustGenerateToken(cryptox.TokenSize128),
		RoleKey:   "pb",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, st.Tokens().CreateToken(ctx, live))

	removed, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	_, err = st.Tokens().GetTokenByValue(ctx, expired.Value)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.Tokens().GetTokenByValue(ctx, live.Value)
	require.NoError(t, err)
}

func TestHousekeepingStartStop(t *testing.T) {
	st := newServiceStore(t)
	svc := NewHousekeepingService(st, discardLogger(), time.Hour)

	svc.Start()
	svc.Stop()
}
