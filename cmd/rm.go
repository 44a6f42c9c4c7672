package cmd

import (
	"context"
	"fmt"
	"os"
)

// Remove deletes posts
func Remove(ctx context.Context, rt *Runtime, ids []string) {
	if len(ids) == 0 {
		fmt.Fprintf(os.Stderr, "Error: rm requires at least one post ID\n")
		fmt.Fprintf(os.Stderr, "Usage: sealpost rm <id> [id...]\n")
		os.Exit(1)
	}

	session := rt.Unlock(ctx)
	for _, id := range ids {
		if err := session.Posts().Delete(ctx, id); err != nil {
			session.Close()
			HandleError(err)
		}
		fmt.Printf("removed: %s\n", id)
	}
	session.Close()

	// Compact database to reclaim space
	if !rt.Config.Mongo.Enabled() {
		if err := rt.Vault().Compact(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
		}
	}
}
