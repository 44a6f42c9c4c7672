package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/sealpost/internal/posts"
)

func postInput(f PostFlags, body *string) posts.Input {
	in := posts.Input{Tags: f.Tags}
	if f.Title != nil {
		in.Title = *f.Title
	}
	if body != nil {
		in.Body = *body
	}
	if f.Author != nil {
		in.Author = *f.Author
	}
	return in
}

// Edit updates the given fields of a post
func Edit(ctx context.Context, rt *Runtime, id string, f PostFlags) {
	changes := posts.Changes{
		Title:  f.Title,
		Body:   f.body(rt),
		Author: f.Author,
		Tags:   f.Tags,
	}
	if changes.Title == nil && changes.Body == nil && changes.Author == nil && changes.Tags == nil {
		fmt.Fprintln(os.Stderr, "Error: nothing to change")
		os.Exit(1)
	}

	session := rt.Unlock(ctx)
	defer session.Close()

	post, err := session.Posts().Update(ctx, id, changes)
	if err != nil {
		HandleError(err)
	}
	fmt.Printf("✓ Updated post %s\n", post.ID)
	warnDegraded(post)
}
