package version

import "testing"

func TestVersionStringNonEmpty(t *testing.T) {
	if s := String(); s == "" {
		t.Fatalf("version string is empty")
	}
}

func TestVersionStringShortCommit(t *testing.T) {
	oldV, oldC := Version, Commit
	t.Cleanup(func() { Version, Commit = oldV, oldC })
	Version, Commit = "v1.0.0", "0123456789abcdef"
	if got := String(); got != "v1.0.0 (0123456)" {
		t.Fatalf("String() = %q, want %q", got, "v1.0.0 (0123456)")
	}
}
