package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Export writes every decrypted post as JSON to a file in the working directory
func Export(ctx context.Context, rt *Runtime, path string) {
	files := rt.Files()
	defer files.Close()

	if _, err := files.Resolve(path); err != nil {
		HandleError(err)
	}

	session := rt.Unlock(ctx)
	defer session.Close()

	list, err := session.Posts().List(ctx)
	if err != nil {
		HandleError(err)
	}

	degraded := 0
	for _, p := range list {
		if p.Degraded() {
			degraded++
		}
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		HandleError(err)
	}
	if err := files.WriteFile(path, append(data, '\n')); err != nil {
		HandleError(err)
	}

	fmt.Printf("✓ Exported %d post(s) to %s\n", len(list), path)
	if degraded > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d post(s) exported with undecryptable fields\n", degraded)
	}
}
