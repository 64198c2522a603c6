package version_test

import (
	"strings"
	"testing"

	"github.com/nightjar-audio/nightjar-jukebox-backend/internal/version"
)

func TestVersionInfo(t *testing.T) {
	t.Run("Version should not be empty", func(t *testing.T) {
		if version.Version == "" {
			t.Error("Version should not be empty")
		}
	})

	t.Run("Name should be Nightjar", func(t *testing.T) {
		if version.Name != "Nightjar" {
			t.Errorf("Expected name 'Nightjar', got '%s'", version.Name)
		}
	})
}

func TestGetInfo(t *testing.T) {
	info := version.GetInfo()

	t.Run("should return name", func(t *testing.T) {
		if info.Name != version.Name {
			t.Errorf("Expected name '%s', got '%s'", version.Name, info.Name)
		}
	})

	t.Run("should return version", func(t *testing.T) {
		if info.Version != version.Version {
			t.Errorf("Expected version '%s', got '%s'", version.Version, info.Version)
		}
	})
}

func TestString(t *testing.T) {
	info := version.GetInfo()
	str := info.String()

	if str == "" {
		t.Error("String() should not return empty string")
	}

	// Should contain the name and version at minimum
	if len(str) < len(version.Name)+len(version.Version) {
		t.Errorf("String() seems too short: %s", str)
	}
}

func TestStringTruncatesCommit(t *testing.T) {
	info := version.Info{Name: "Nightjar", Version: "1.0.0", GitCommit: "abcdef0123456789"}
	if got := info.String(); !strings.Contains(got, "(abcdef0)") {
		t.Errorf("String() = %q, want the commit shortened to 7 characters", got)
	}

	short := version.Info{Name: "Nightjar", Version: "1.0.0", GitCommit: "ab12"}
	if got := short.String(); !strings.Contains(got, "(ab12)") {
		t.Errorf("String() = %q, want the short commit verbatim", got)
	}
}
