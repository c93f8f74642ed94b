package chainclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNonceSource struct {
	nonce uint64
	err   error
	calls int
}

func (s *fakeNonceSource) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	s.calls++
	return s.nonce, s.err
}

func TestNonceManagerAllocatesSequentially(t *testing.T) {
	source := &fakeNonceSource{nonce: 5}
	nm := NewNonceManager(source, common.Address{1}, nil)
	ctx := context.Background()

	for want := uint64(5); want < 8; want++ {
		got, err := nm.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 1, source.calls)
}

func TestNonceManagerRelease(t *testing.T) {
	source := &fakeNonceSource{nonce: 1}
	nm := NewNonceManager(source, common.Address{1}, nil)
	ctx := context.Background()

	first, err := nm.Next(ctx)
	require.NoError(t, err)
	assert.True(t, nm.Release(first))

	again, err := nm.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	t.Run("gap forces a resync", func(t *testing.T) {
		second, err := nm.Next(ctx)
		require.NoError(t, err)
		assert.False(t, nm.Release(again))

		source.nonce = 2
		next, err := nm.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), next)
		assert.Equal(t, uint64(2), second)
		assert.Equal(t, 2, source.calls)
	})
}

func TestNonceManagerTrackAndConfirm(t *testing.T) {
	nm := NewNonceManager(&fakeNonceSource{}, common.Address{1}, nil)
	hash := common.HexToHash("0x01")

	nm.Track(0, hash)
	assert.Equal(t, 1, nm.Pending())
	assert.True(t, nm.Confirm(hash))
	assert.False(t, nm.Confirm(hash))
	assert.Equal(t, 0, nm.Pending())
}

func TestNonceManagerResyncsWhenStale(t *testing.T) {
	source := &fakeNonceSource{nonce: 10}
	nm := NewNonceManager(source, common.Address{1}, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	nm.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := nm.Next(ctx)
	require.NoError(t, err)

	// the chain moved ahead, e.g. the key was used elsewhere
	source.nonce = 20
	now = now.Add(defaultNonceSyncInterval + time.Second)
	got, err := nm.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), got)
}

func TestNonceManagerSyncError(t *testing.T) {
	nm := NewNonceManager(&fakeNonceSource{err: errors.New("connection refused")}, common.Address{1}, nil)
	_, err := nm.Next(context.Background())
	assert.Error(t, err)
	assert.Error(t, nm.Sync(context.Background()))
}
