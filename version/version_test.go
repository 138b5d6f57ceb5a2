package version

import (
	"bytes"
	"strings"
	"testing"
)

func withBuildVars(t *testing.T, version, commit, date string) {
	t.Helper()
	oldVersion, oldCommit, oldDate := Version, Commit, Date
	Version, Commit, Date = version, commit, date
	t.Cleanup(func() {
		Version, Commit, Date = oldVersion, oldCommit, oldDate
	})
}

func TestInjectedValuesWin(t *testing.T) {
	withBuildVars(t, "v1.2.3", "0123456789abcdef", "2024-01-01T00:00:00Z")

	info := GetInfo()
	if info.Version != "v1.2.3" || info.Commit != "0123456789abcdef" || info.Date != "2024-01-01T00:00:00Z" {
		t.Fatalf("GetInfo() = %+v", info)
	}
	if info.Package != Package {
		t.Errorf("package = %q", info.Package)
	}
	want := "v1.2.3 (0123456, built 2024-01-01T00:00:00Z)"
	if got := GetFullVersion(); got != want {
		t.Errorf("GetFullVersion() = %q, want %q", got, want)
	}
}

func TestInfoString(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "v1", Commit: "unknown", Date: "unknown"}, "v1"},
		{Info{Version: "v1", Commit: "abc", Date: "today"}, "v1"},
		{Info{Version: "v1", Commit: "0123456789", Date: "unknown"}, "v1 (0123456)"},
		{Info{Version: "v1", Commit: "0123456789", Date: "today"}, "v1 (0123456, built today)"},
	}
	for _, tt := range tests {
		if got := tt.info.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.info, got, tt.want)
		}
	}
}

func TestWrite(t *testing.T) {
	withBuildVars(t, "v2.0.0", "fedcba9876543210", "unknown")

	var buf bytes.Buffer
	Write(&buf, "gitfuse")
	out := buf.String()
	for _, line := range []string{
		"gitfuse version v2.0.0 (fedcba9)",
		"Package: gitfuse",
		"Commit: fedcba9876543210",
		"Build Date: unknown",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("output missing %q:\n%s", line, out)
		}
	}
}
