package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Checker-Finance/marketeye/pkg/model"
)

var rawExtensions = map[string]bool{".json": true, ".jsonl": true, ".ndjson": true}

// Discover lists the raw files in dir (non-recursive) and assigns each to
// exactly one source. A file matching several sources' patterns goes to the
// source with the longest matching pattern, so "electroplanet_products.json"
// is Electroplanet even though "product" is a Jumia pattern. Ties go to the
// normalizer listed first. A source with no files gets no entry.
func Discover(dir string, normalizers []Normalizer) (map[model.Source][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read raw dir %s: %w", dir, err)
	}

	files := make(map[model.Source][]string)
	for _, e := range entries {
		if e.IsDir() || !rawExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		name := strings.ToLower(e.Name())

		var (
			best    model.Source
			bestLen int
		)
		for _, n := range normalizers {
			for _, p := range n.Patterns() {
				if p != "" && strings.Contains(name, p) && len(p) > bestLen {
					best, bestLen = n.Source(), len(p)
				}
			}
		}
		if bestLen > 0 {
			files[best] = append(files[best], filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
