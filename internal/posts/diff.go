package posts

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// UnifiedDiff returns a unified diff from stored to local, or "" when they
// are identical.
func UnifiedDiff(name, stored, local string) string {
	if stored == local {
		return ""
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for readable hunks
	a, b, lineArray := dmp.DiffLinesToChars(stored, local)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(stored, diffs)
	if len(patches) == 0 {
		return ""
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("--- a/%s\n", name))
	result.WriteString(fmt.Sprintf("+++ b/%s\n", name))
	result.WriteString(dmp.PatchToText(patches))
	return result.String()
}
