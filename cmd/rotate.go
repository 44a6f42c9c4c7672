package cmd

import (
	"context"
	"fmt"
)

// Rotate re-seals every post under a key derived from a new salt
func Rotate(ctx context.Context, rt *Runtime) {
	session := rt.Unlock(ctx)
	defer session.Close()

	salt, err := session.Rotate(ctx)
	if err != nil {
		HandleError(err)
	}

	fmt.Println("✓ Key rotated")
	fmt.Printf("new salt: %s\n", salt)
}
