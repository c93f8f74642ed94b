package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unikron/shieldswap/pkg/models"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "11155111:0xabcdef0000000000000000000000000000000001", Key(11155111, testUser))
	assert.Equal(t, Key(1, "0xABC"), Key(1, "0xabc"))
	assert.NotEqual(t, Key(1, "0xabc"), Key(5, "0xabc"))
}

func sampleSession() *models.PersistedSession {
	return &models.PersistedSession{
		IntentID:  "intent-1",
		Phase:     models.PhaseCommit,
		CreatedAt: 1772366400000,
		Intent: models.SwapIntent{
			IntentID:     "intent-1",
			Status:       models.IntentPending,
			CreatedAt:    1772366400000,
			ChainID:      testChainID,
			User:         testUser,
			InputAmount:  "1",
			AmountInBase: "1000000000000000000",
			Nonce:        "42",
			Commitment:   "0x" + "ab",
			CommitTxRef:  "0xcommit1",
		},
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	storage, err := NewFileStorage(path)
	require.NoError(t, err)
	assert.Equal(t, path, storage.Path())

	key := Key(testChainID, testUser)

	t.Run("missing file loads nothing", func(t *testing.T) {
		got, err := storage.Load(key)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("save then load", func(t *testing.T) {
		want := sampleSession()
		require.NoError(t, storage.Save(key, want))

		got, err := storage.Load(key)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.IntentID, got.IntentID)
		assert.Equal(t, want.Phase, got.Phase)
		assert.Equal(t, want.Intent.Nonce, got.Intent.Nonce)
		assert.Equal(t, want.Intent.CommitTxRef, got.Intent.CommitTxRef)
		assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))

		// a second storage over the same file sees the session
		reopened, err := NewFileStorage(path)
		require.NoError(t, err)
		again, err := reopened.Load(key)
		require.NoError(t, err)
		require.NotNil(t, again)
		assert.Equal(t, want.IntentID, again.IntentID)
	})

	t.Run("sessions are keyed per user", func(t *testing.T) {
		other := Key(testChainID, "0x0000000000000000000000000000000000000002")
		got, err := storage.Load(other)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, storage.Delete(key))
		got, err := storage.Load(key)
		require.NoError(t, err)
		assert.Nil(t, got)
		require.NoError(t, storage.Delete(key))

		_, err = os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err))
	})
}

func TestFileStorageCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	storage, err := NewFileStorage(path)
	require.NoError(t, err)
	_, err = storage.Load("any")
	assert.Error(t, err)
}

func TestNewFileStorageRequiresPath(t *testing.T) {
	_, err := NewFileStorage("")
	assert.Error(t, err)
}

func TestMemoryStorage(t *testing.T) {
	storage := NewMemoryStorage()
	key := Key(testChainID, testUser)

	got, err := storage.Load(key)
	require.NoError(t, err)
	assert.Nil(t, got)

	s := sampleSession()
	require.NoError(t, storage.Save(key, s))
	s.Phase = models.PhaseReveal

	got, err = storage.Load(key)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCommit, got.Phase)

	require.NoError(t, storage.Delete(key))
	got, err = storage.Load(key)
	require.NoError(t, err)
	assert.Nil(t, got)
}
