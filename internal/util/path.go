package util

import (
	"path"
	"strings"
)

// BuildObjectKey joins the upload prefix, run directory name, database and
// artifact file name into an object key. Empty segments are skipped.
func BuildObjectKey(prefix, runName, database, file string) string {
	return path.Join(BuildPrefix(prefix, runName, database), file)
}

// BuildPrefix builds the listing prefix for a run or a database inside a run.
func BuildPrefix(prefix string, segments ...string) string {
	parts := []string{}
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return path.Join(parts...)
}
