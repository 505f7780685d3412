package inventory

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eoproc/surfobs/utils"
)

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(utils.InventoryConfig{})
	assert.Error(t, err)
}

// Integration coverage needs a reachable postgres; point
// SURFOBS_TEST_DSN at one to enable it.
func TestInventoryRoundTrip(t *testing.T) {
	dsn := os.Getenv("SURFOBS_TEST_DSN")
	if len(dsn) == 0 {
		t.Skip("SURFOBS_TEST_DSN not set")
	}

	inv, err := Open(utils.InventoryConfig{DSN: dsn, Table: "file_refs_test"})
	require.NoError(t, err)
	defer inv.Close()
	require.NoError(t, inv.EnsureSchema())

	t0 := time.Date(2017, 9, 4, 10, 50, 21, 0, time.UTC)
	fileRefs := []utils.FileRef{
		{Url: "/g/data/S2A_MSIL2A_20170904T105021_N0205", StartTime: t0, EndTime: t0, MimeType: "application/x-product"},
		{Url: "/g/data/S2A_MSIL2A_20170905T105021_N0205", StartTime: t0.Add(24 * time.Hour), EndTime: t0.Add(24 * time.Hour)},
	}
	require.NoError(t, inv.IndexAll(fileRefs))
	// re-indexing the same url must not duplicate it
	require.NoError(t, inv.Index(fileRefs[0]))

	got, err := inv.FileRefsBetween(t0.Add(-time.Hour), t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, fileRefs[0].Url, got[0].Url)
	assert.True(t, got[0].StartTime.Equal(t0))

	all, err := inv.FileRefsBetween(t0.Add(-time.Hour), t0.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].StartTime.Before(all[1].StartTime))
}
