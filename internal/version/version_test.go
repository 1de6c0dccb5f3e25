package version

import (
	"strings"
	"testing"
)

func TestVersionDefault(t *testing.T) {
	if Version == "" {
		t.Error("Version must have a default value")
	}
	if !strings.Contains(Version, ".") {
		t.Errorf("Version %q is not a dotted version string", Version)
	}
}

func TestBuildMetadataOverridable(t *testing.T) {
	origCommit, origDate := GitCommit, BuildDate
	defer func() { GitCommit, BuildDate = origCommit, origDate }()

	GitCommit = "abc123def456"
	BuildDate = "2026-08-06T10:30:00Z"
	if GitCommit != "abc123def456" || BuildDate != "2026-08-06T10:30:00Z" {
		t.Errorf("ldflags-style override failed: %q %q", GitCommit, BuildDate)
	}
}
