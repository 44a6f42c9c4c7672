// Package security confines file access made on behalf of CLI flags to the
// working directory, so a crafted path cannot read or overwrite files
// elsewhere on disk.
package security
