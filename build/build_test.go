package build

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	info, ok := Parse(`{
		"version": "1.4.0",
		"git_commit": "abc123",
		"build_time": "2026-01-05T12:00:00Z",
		"go_version": "go1.25.5"
	}`)

	require.True(t, ok)
	assert.Equal(t, &Info{
		Version:   "1.4.0",
		GitCommit: "abc123",
		BuildTime: "2026-01-05T12:00:00Z",
		GoVersion: "go1.25.5",
	}, info)
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	for _, js := range []string{"", "{}", "{not json"} {
		info, ok := Parse(js)
		assert.False(t, ok, js)
		assert.Nil(t, info, js)
	}
}

func TestCurrent_PrefersLinkTimeInfo(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2.0.0", Current(`{"version":"2.0.0"}`).Version)
	assert.NotEmpty(t, Current("").Version)
}

func TestFromBuildInfo(t *testing.T) {
	t.Parallel()

	info := fromBuildInfo(&debug.BuildInfo{
		GoVersion: "go1.25.0",
		Main:      debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-02-01T00:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	assert.Equal(t, Info{
		Version:   "0.3.1",
		GitCommit: "0123456789abcdef",
		BuildTime: "2026-02-01T00:00:00Z",
		GoVersion: "go1.25.0",
		Modified:  true,
	}, info)
	assert.Equal(t, "0.3.1 (0123456789ab, modified) built 2026-02-01T00:00:00Z go1.25.0", info.String())

	assert.Equal(t, "dev", fromBuildInfo(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}).Version)
}

func TestInfoString_Minimal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dev", Info{Version: "dev"}.String())
}
