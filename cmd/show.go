package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/illarion/sealpost/internal/posts"
)

// Show prints one decrypted post
func Show(ctx context.Context, rt *Runtime, id string, asJSON bool) {
	session := rt.Unlock(ctx)
	defer session.Close()

	post, err := session.Posts().Get(ctx, id)
	if err != nil {
		HandleError(err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(post); err != nil {
			HandleError(err)
		}
		return
	}

	fmt.Printf("ID:      %s\n", post.ID)
	fmt.Printf("Title:   %s\n", post.Title)
	if post.Author != "" {
		fmt.Printf("Author:  %s\n", post.Author)
	}
	if len(post.Tags) > 0 {
		fmt.Printf("Tags:    %s\n", strings.Join(post.Tags, ", "))
	}
	fmt.Printf("Created: %s\n", post.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Updated: %s\n", post.UpdatedAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println(post.Body)
	warnDegraded(post)
}

func warnDegraded(post *posts.Post) {
	if post.Degraded() {
		fmt.Fprintf(os.Stderr, "warning: post %s: could not decrypt %s\n", post.ID, strings.Join(post.FailedFields, ", "))
	}
}
