package credentials_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerops/amazon-connector/internal/credentials"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

func testCredential() *domain.Credential {
	return &domain.Credential{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		ExpiresAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		ConnectedAt:  time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "creds", "amazon.json")
	store, err := credentials.NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Persist(testCredential()))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, testCredential(), loaded)
}

func TestFileStore_LoadMissingIsNil(t *testing.T) {
	t.Parallel()

	store, err := credentials.NewFileStore(filepath.Join(t.TempDir(), "amazon.json"))
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestFileStore_PermissionsRestricted(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "amazon.json")
	store, err := credentials.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Persist(testCredential()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_PersistOverwrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "amazon.json")
	store, err := credentials.NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Persist(testCredential()))

	updated := testCredential()
	updated.AccessToken = "rotated"
	require.NoError(t, store.Persist(updated))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "rotated", loaded.AccessToken)
}

func TestFileStore_Clear(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "amazon.json")
	store, err := credentials.NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Persist(testCredential()))
	require.NoError(t, store.Clear())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Clearing twice is fine.
	assert.NoError(t, store.Clear())
}

func TestFileStore_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "amazon.json")
	store, err := credentials.NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err = store.Load()
	assert.Error(t, err)
}

func TestNewFileStore_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := credentials.NewFileStore("")
	assert.Error(t, err)
}
