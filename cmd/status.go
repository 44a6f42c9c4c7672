package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/illarion/sealpost/internal/core"
	"github.com/illarion/sealpost/internal/git"
	"github.com/illarion/sealpost/internal/keyring"
)

// Status shows the current state of the store. It needs no passphrase.
func Status(ctx context.Context, rt *Runtime) {
	status, err := rt.Vault().Status(ctx)
	if errors.Is(err, core.ErrNotInitialized) {
		fmt.Printf("No store found at %s\n", rt.Config.DBPath)
		fmt.Println("Run 'sealpost init' to create one")
		return
	}
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Store:      %s\n", status.Path)
	if status.StoreID != "" {
		fmt.Printf("Store ID:   %s\n", status.StoreID)
	}
	fmt.Printf("Created:    %s\n", formatTime(status.Created))
	fmt.Printf("Modified:   %s\n", formatTime(status.Modified))
	fmt.Printf("Encryption: %s\n", status.Algorithm)
	fmt.Printf("KDF:        scrypt N=%d r=%d p=%d (%s)\n",
		status.KDF.N, status.KDF.R, status.KDF.P, formatSize(status.KDF.MemoryRequired()))
	fmt.Printf("Posts:      %d (%s)\n", status.PostCount, status.Backend)

	if status.StoreID != "" && keyring.HasPassphrase(status.StoreID) {
		fmt.Println("Keyring:    passphrase stored")
	} else {
		fmt.Println("Keyring:    not stored")
	}

	if len(status.Posts) > 0 {
		fmt.Println("\nPosts:")
		for _, p := range status.Posts {
			author := p.Author
			if author == "" {
				author = "-"
			}
			fmt.Printf("  %s  %s  %s\n", p.ID, p.CreatedAt.Format(time.DateOnly), author)
		}
	}

	fmt.Print(git.FormatGitStatus(status.GitStatus))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format(time.RFC3339)
}
