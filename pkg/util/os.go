package util

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
)

// FindFilesWithPatterns lists the files under directory whose base name
// matches pattern. Paths are relative to directory, slash separated and
// sorted. Hidden files and directories are skipped.
func FindFilesWithPatterns(directory string, pattern string, recursive bool) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	dirInfo, err := os.Stat(directory)
	if err != nil {
		return nil, err
	}
	if !dirInfo.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", directory)
	}

	var matched []string
	err = fs.WalkDir(os.DirFS(directory), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != "." && IsHidden(p) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !recursive && p != "." {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if re.MatchString(d.Name()) {
			matched = append(matched, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", directory, err)
	}

	sort.Strings(matched)
	return matched, nil
}

// IsHidden reports whether the last element of a slash path starts with a dot.
func IsHidden(p string) bool {
	base := path.Base(p)
	return len(base) > 1 && base[0] == '.'
}

func ByteCountSI(b int64) string {
	const unit = 1000
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(b)/float64(div), "kMGTPE"[exp])
}
