package cmd

import (
	"fmt"
	"os"
)

// Compact compacts the store file to reclaim unused space
func Compact(rt *Runtime) {
	vault := rt.Vault()

	info, err := os.Stat(vault.Path())
	if err != nil {
		HandleError(err)
	}
	sizeBefore := info.Size()

	if err := vault.Compact(); err != nil {
		HandleError(err)
	}

	info, err = os.Stat(vault.Path())
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(info.Size()))
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
