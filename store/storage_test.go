package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorageRoundTrip(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	_, err = fs.Load("kairos-auth")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, fs.Save("kairos-auth", []byte(`{"version":2}`)))
	data, err := fs.Load("kairos-auth")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":2}`, string(data))

	require.NoError(t, fs.Delete("kairos-auth"))
	_, err = fs.Load("kairos-auth")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing key is not an error.
	assert.NoError(t, fs.Delete("kairos-auth"))
}

func TestSnapshotVersionMismatch(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, saveSnapshot(storage, "kairos-team", 1, persistedTeam{
		Teams: []Team{{ID: "t1"}},
	}))

	var out persistedTeam
	err := loadSnapshot(storage, "kairos-team", 2, &out)
	assert.ErrorIs(t, err, ErrNotFound)

	// Mismatched record was discarded.
	_, err = storage.Load("kairos-team")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotCorruptRecordDiscarded(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save("kairos-team", []byte("not json")))

	var out persistedTeam
	err := loadSnapshot(storage, "kairos-team", 1, &out)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = storage.Load("kairos-team")
	assert.ErrorIs(t, err, ErrNotFound)
}
