package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// List prints every post with its decrypted title
func List(ctx context.Context, rt *Runtime) {
	session := rt.Unlock(ctx)
	defer session.Close()

	list, err := session.Posts().List(ctx)
	if err != nil {
		HandleError(err)
	}

	if len(list) == 0 {
		fmt.Println("No posts")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tAUTHOR\tTITLE")
	for _, p := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.CreatedAt.Format(time.DateOnly), p.Author, p.Title)
	}
	w.Flush()

	for _, p := range list {
		warnDegraded(p)
	}
}
