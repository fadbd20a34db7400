package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteMediaFiles creates each relative path under root as a one-byte file,
// making parent folders. Library scans only look at names, so the content
// does not matter.
func WriteMediaFiles(t testing.TB, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte{0}, 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}
