package posts

import (
	"strings"
	"testing"
)

func TestUnifiedDiff_Identical(t *testing.T) {
	if got := UnifiedDiff("post", "same\n", "same\n"); got != "" {
		t.Errorf("Expected empty diff, got %q", got)
	}
}

func TestUnifiedDiff_Changed(t *testing.T) {
	stored := "line1\nline2\nline3\n"
	local := "line1\nmodified\nline3\n"

	got := UnifiedDiff("abc/body", stored, local)

	if !strings.HasPrefix(got, "--- a/abc/body\n+++ b/abc/body\n") {
		t.Errorf("Missing file headers:\n%s", got)
	}
	if !strings.Contains(got, "-line2") {
		t.Errorf("Expected removed line in diff:\n%s", got)
	}
	if !strings.Contains(got, "+modified") {
		t.Errorf("Expected added line in diff:\n%s", got)
	}
}
