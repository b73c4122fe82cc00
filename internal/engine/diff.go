package engine

import (
	"os"
	"path/filepath"
)

// Partition splits names into those already present as a directory under
// baseDir and those still missing. Input order is preserved in both slices
// and duplicate names are kept once.
//
// Presence is a best-effort check: a path that appears between Partition and
// the clone makes that clone fail, and is reported as a failed job.
func Partition(names []string, baseDir string) (present, missing []string) {
	present = make([]string, 0)
	missing = make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))

	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		if isDir(filepath.Join(baseDir, name)) {
			present = append(present, name)
		} else {
			missing = append(missing, name)
		}
	}
	return present, missing
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
