package version

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withVersion(t *testing.T, version, commit string) {
	t.Helper()
	oldVersion, oldCommit := Version, GitCommit
	Version, GitCommit = version, commit
	t.Cleanup(func() { Version, GitCommit = oldVersion, oldCommit })
}

func TestLdflagsWin(t *testing.T) {
	withVersion(t, "v1.2.3", "0123456789abcdef")

	assert.Equal(t, "v1.2.3", GetVersion())
	assert.Equal(t, "0123456789abcdef", GetGitCommit())
	assert.Equal(t, "v1.2.3 (0123456)", GetShortVersion())
	assert.Equal(t, "grievance/v1.2.3", UserAgent())
	assert.True(t, IsRelease())
}

func TestDevBuild(t *testing.T) {
	withVersion(t, "dev", "abcdef0123")

	assert.Equal(t, "dev-abcdef0", GetShortVersion())
	assert.False(t, IsRelease())
}

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()
	assert.True(t, strings.HasPrefix(info.GoVersion, "go"))
	assert.Contains(t, info.Platform, "/")
}

func TestParseBuildTime(t *testing.T) {
	assert.True(t, parseBuildTime("unknown").IsZero())
	assert.True(t, parseBuildTime("yesterday").IsZero())
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), parseBuildTime("2025-06-01T10:00:00Z"))
	assert.Equal(t, 2025, parseBuildTime("2025-06-01 10:00:00").Year())
}
