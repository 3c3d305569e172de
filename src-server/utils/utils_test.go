package utils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"brokerdesk/src-server/calendar"
	"brokerdesk/src-server/model/modeltest"
	"brokerdesk/src-server/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupName(t *testing.T) {
	assert.Equal(t, "Jane Doe", utils.CleanupName("  jane   doe "))
	assert.Equal(t, "Rachel McAdams", utils.CleanupName("rachel McAdams"))
}

func TestLoadStageNames(t *testing.T) {
	names, err := utils.LoadStageNames("")
	require.NoError(t, err)
	assert.Equal(t, utils.DefaultStageNames, names)

	dir := t.TempDir()
	good := filepath.Join(dir, "stages.yaml")
	require.NoError(t, os.WriteFile(good, []byte("stages:\n  - Prospect\n  - ' Listing '\n  - ''\n  - Sold\n"), 0o600))
	names, err = utils.LoadStageNames(good)
	require.NoError(t, err)
	assert.Equal(t, []string{"Prospect", "Listing", "Sold"}, names)

	dup := filepath.Join(dir, "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte("stages: [Offer, offer]\n"), 0o600))
	_, err = utils.LoadStageNames(dup)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("stages: []\n"), 0o600))
	_, err = utils.LoadStageNames(empty)
	assert.Error(t, err)
}

func TestResolveDate(t *testing.T) {
	w := utils.NewWhenParser()
	now := time.Date(2026, time.January, 15, 9, 0, 0, 0, calendar.Location())

	got, err := utils.ResolveDate(w, "2026-02-01T10:00", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01T10:00", got, "exact dates pass through")

	got, err = utils.ResolveDate(w, "tomorrow at 3pm", now)
	require.NoError(t, err)
	parsed, err := calendar.ParseCivil(got)
	require.NoError(t, err)
	assert.Equal(t, 16, parsed.Day())
	assert.Equal(t, 15, parsed.Hour())

	_, err = utils.ResolveDate(w, "qwerty", now)
	assert.Error(t, err)

	got, err = utils.ResolveDate(w, "", now)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGracefulShutdownClosesChans(t *testing.T) {
	as := utils.NewAppStateWithDB(utils.DefaultConfig(), modeltest.NewDB(t))
	ch := as.CreateGracefulShutdownChan()

	as.MetricChans.Observe(as.MetricChans.Projection, 1)
	assert.Equal(t, float64(1), <-as.MetricChans.Projection)

	select {
	case <-*ch:
		t.Fatal("closed too early")
	default:
	}
	as.GracefulShutdown()
	_, open := <-*ch
	assert.False(t, open)
}
