package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

func TestCheck_NotARepo(t *testing.T) {
	requireGit(t)
	status := Check(t.TempDir(), ".sealpost", func(string) bool { return true })
	if status.IsRepo {
		t.Error("Expected IsRepo false outside a repository")
	}
	if FormatGitStatus(status) != "" {
		t.Error("Expected no output outside a repository")
	}
}

func TestCheck_SecretFiles(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")

	for name, content := range map[string]string{
		".sealpost":  "sealed",
		".env":       "SEALPOST_PASSPHRASE=x\n",
		".env.local": "SEALPOST_SALT=y\n",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}
	runGit(t, dir, "add", ".sealpost", ".env")

	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(dir, name))
		return err == nil
	}
	status := Check(dir, ".sealpost", exists)

	if !status.IsRepo || !status.StoreTracked {
		t.Fatalf("Expected tracked store in repo, got %+v", status)
	}
	if len(status.TrackedSecrets) != 1 || status.TrackedSecrets[0] != ".env" {
		t.Errorf("TrackedSecrets = %v, want [.env]", status.TrackedSecrets)
	}
	if len(status.UnignoredSecrets) != 1 || status.UnignoredSecrets[0] != ".env.local" {
		t.Errorf("UnignoredSecrets = %v, want [.env.local]", status.UnignoredSecrets)
	}

	out := FormatGitStatus(status)
	if !strings.Contains(out, "error: .env is tracked") {
		t.Errorf("Missing tracked secret error:\n%s", out)
	}
	if !strings.Contains(out, "warning: .env.local not in .gitignore") {
		t.Errorf("Missing unignored warning:\n%s", out)
	}
}
