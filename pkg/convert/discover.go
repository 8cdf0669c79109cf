package convert

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

var pathTokenRe = regexp.MustCompile(`[A-Za-z0-9_:\\/.\-]+`)

// DiscoverOutput is the fallback used when the converter did not write to the
// canonical expected path. It collects candidates from stem globs in the
// given search directories and from path-like substrings in the converter's
// combined stdout/stderr, deduplicates by resolved absolute path, and tries
// them newest-modified first. Directory candidates are searched one and then
// two levels deep for a matching file.
func DiscoverOutput(stdout, stderr string, searchDirs []string, stem, ext string) (string, bool) {
	var candidates []string

	for _, dir := range searchDirs {
		matches, err := filepath.Glob(filepath.Join(dir, stem+"*"))
		if err != nil {
			continue
		}
		candidates = append(candidates, matches...)
	}

	candidates = append(candidates, scrapePaths(stdout+"\n"+stderr, ext)...)

	candidates = dedupeByAbsPath(candidates)

	sort.SliceStable(candidates, func(i, j int) bool {
		return modTime(candidates[i]).After(modTime(candidates[j]))
	})

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}

		if info.IsDir() {
			// Look directly inside, then one level deeper
			for _, pattern := range []string{"*" + ext, filepath.Join("*", "*"+ext)} {
				matches, err := filepath.Glob(filepath.Join(candidate, pattern))
				if err == nil && len(matches) > 0 {
					return matches[0], true
				}
			}
			continue
		}

		if strings.HasSuffix(candidate, ext) {
			return candidate, true
		}
	}

	return "", false
}

// scrapePaths pulls path-like substrings out of converter output text:
// anything ending in the expected extension, or an existing directory path.
func scrapePaths(text, ext string) []string {
	var paths []string
	for _, token := range pathTokenRe.FindAllString(text, -1) {
		token = strings.TrimRight(token, ".")
		if token == "" {
			continue
		}
		if strings.HasSuffix(token, ext) {
			paths = append(paths, token)
			continue
		}
		if strings.Contains(token, string(os.PathSeparator)) {
			if info, err := os.Stat(token); err == nil && info.IsDir() {
				paths = append(paths, token)
			}
		}
	}
	return paths
}

func dedupeByAbsPath(candidates []string) []string {
	seen := make(map[string]bool)
	unique := make([]string, 0, len(candidates))
	for _, c := range candidates {
		key := c
		if abs, err := filepath.Abs(c); err == nil {
			key = abs
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, c)
	}
	return unique
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
