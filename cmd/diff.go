package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/sealpost/internal/posts"
)

// Diff compares a post body with a local file
func Diff(ctx context.Context, rt *Runtime, id, path string) {
	files := rt.Files()
	defer files.Close()

	local, err := files.ReadFile(path)
	if err != nil {
		HandleError(err)
	}

	session := rt.Unlock(ctx)
	defer session.Close()

	post, err := session.Posts().Get(ctx, id)
	if err != nil {
		HandleError(err)
	}
	warnDegraded(post)

	diff := posts.UnifiedDiff(id+"/body", post.Body, string(local))
	if diff == "" {
		fmt.Printf("%s: no changes\n", path)
		return
	}
	fmt.Print(diff)
}
