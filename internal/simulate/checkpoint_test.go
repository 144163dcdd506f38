package simulate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	store := NewCheckpointStore(path, true)

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(Checkpoint{Scenario: "basic", LastPersistedLine: 10, Seq: 2}))
	cp, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "basic", cp.Scenario)
	assert.Equal(t, uint64(10), cp.LastPersistedLine)
	assert.Equal(t, uint64(2), cp.Seq)
	assert.NotEmpty(t, cp.UpdatedAt)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestCheckpointStoreDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")

	require.NoError(t, NewCheckpointStore(path, false).Save(Checkpoint{Scenario: "basic"}))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, ok, err := NewCheckpointStore("", true).Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckpointStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, _, err := NewCheckpointStore(path, true).Load()
	assert.ErrorContains(t, err, "parse checkpoint")
}
