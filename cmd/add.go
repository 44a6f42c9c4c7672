package cmd

import (
	"context"
	"fmt"
	"os"
)

// PostFlags are the field values given on the command line
type PostFlags struct {
	Title    *string
	Body     *string
	BodyFile string
	Author   *string
	Tags     []string
}

// body returns the body flag, or the contents of --body-file
func (f *PostFlags) body(rt *Runtime) *string {
	if f.BodyFile == "" {
		return f.Body
	}
	if f.Body != nil {
		fmt.Fprintln(os.Stderr, "Error: --body and --body-file are mutually exclusive")
		os.Exit(1)
	}

	files := rt.Files()
	defer files.Close()

	data, err := files.ReadFile(f.BodyFile)
	if err != nil {
		HandleError(err)
	}
	body := string(data)
	return &body
}

// Add seals and stores a new post
func Add(ctx context.Context, rt *Runtime, f PostFlags) {
	body := f.body(rt)

	in := postInput(f, body)

	session := rt.Unlock(ctx)
	defer session.Close()

	post, err := session.Posts().Create(ctx, in)
	if err != nil {
		HandleError(err)
	}
	fmt.Printf("✓ Added post %s\n", post.ID)
}
