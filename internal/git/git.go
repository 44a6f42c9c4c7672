package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// SecretFiles are files that may carry SEALPOST_PASSPHRASE or SEALPOST_SALT
// in plaintext and must never be committed.
var SecretFiles = []string{".env", ".env.local"}

// GitStatus contains git hygiene information for a sealpost store
type GitStatus struct {
	IsRepo           bool
	StoreFile        string
	StoreTracked     bool
	TrackedSecrets   []string // Secret files tracked by git (bad)
	UnignoredSecrets []string // Secret files present but not ignored (warning)
	IgnoredSecrets   []string // Secret files covered by .gitignore (good)
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	return cmd.Run() == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	// exit code 0 means ignored
	return cmd.Run() == nil
}

// Check inspects the store file and the secret files that exist in workDir.
// exists reports whether a secret file is present on disk.
func Check(workDir, storeFile string, exists func(string) bool) *GitStatus {
	status := &GitStatus{StoreFile: storeFile}
	if !IsGitRepo(workDir) {
		return status
	}
	status.IsRepo = true
	status.StoreTracked = IsTracked(workDir, storeFile)

	for _, file := range SecretFiles {
		tracked := IsTracked(workDir, file)
		if !tracked && !exists(file) {
			continue
		}
		switch {
		case tracked:
			status.TrackedSecrets = append(status.TrackedSecrets, file)
		case IsIgnored(workDir, file):
			status.IgnoredSecrets = append(status.IgnoredSecrets, file)
		default:
			status.UnignoredSecrets = append(status.UnignoredSecrets, file)
		}
	}
	return status
}

// FormatGitStatus formats git status for display
func FormatGitStatus(status *GitStatus) string {
	if status == nil || !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit Integration:\n")

	if status.StoreTracked {
		fmt.Fprintf(&result, "   ok: %s is tracked by git (contents are sealed)\n", status.StoreFile)
	} else {
		fmt.Fprintf(&result, "   info: %s not tracked by git\n", status.StoreFile)
	}

	for _, file := range status.TrackedSecrets {
		fmt.Fprintf(&result, "   error: %s is tracked by git (run: git rm --cached %s)\n", file, file)
	}
	for _, file := range status.UnignoredSecrets {
		fmt.Fprintf(&result, "   warning: %s not in .gitignore (add to .gitignore)\n", file)
	}
	if len(status.TrackedSecrets) == 0 && len(status.UnignoredSecrets) == 0 && len(status.IgnoredSecrets) > 0 {
		fmt.Fprintf(&result, "   ok: %d secret file(s) in .gitignore\n", len(status.IgnoredSecrets))
	}

	return result.String()
}
