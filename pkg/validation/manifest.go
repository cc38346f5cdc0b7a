package validation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// marketplaceSearchDepth bounds the upward search for marketplace.json
const marketplaceSearchDepth = 10

// readJSON reads and decodes a JSON document into out. Decoding problems
// are recorded on r with the line of the syntax error when known.
func readJSON(path string, out any, r *Result) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			r.AddError(fmt.Sprintf("File not found: %s", path), Finding{
				Suggestion: "Verify the file path is correct",
			})
		} else {
			r.AddError(fmt.Sprintf("Cannot read file: %v", err), Finding{
				Suggestion: "Check file permissions",
			})
		}
		return false
	}

	if err := json.Unmarshal(data, out); err != nil {
		finding := Finding{Suggestion: "Fix the JSON syntax error"}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr):
			finding.Line = offsetLine(data, syntaxErr.Offset)
		case errors.As(err, &typeErr):
			finding.Line = offsetLine(data, typeErr.Offset)
		}
		r.AddError(fmt.Sprintf("Invalid JSON: %v", err), finding)
		return false
	}
	return true
}

func offsetLine(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	return strings.Count(string(data[:offset]), "\n") + 1
}

// FindMarketplace walks up from the directory containing path looking for
// .claude-plugin/marketplace.json.
func FindMarketplace(path string) (string, bool) {
	current := filepath.Dir(path)
	for i := 0; i < marketplaceSearchDepth; i++ {
		candidate := filepath.Join(current, ".claude-plugin", "marketplace.json")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return "", false
}

func readVersion(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var doc struct {
		Version any `json:"version"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return ""
	}
	v, _ := doc.Version.(string)
	return v
}

// normalizeManifestPath renders a manifest component path as "./a/b"
func normalizeManifestPath(p string) string {
	p = filepath.ToSlash(filepath.Clean(filepath.FromSlash(strings.TrimSpace(p))))
	if p == "." {
		return "./"
	}
	return "./" + strings.TrimPrefix(p, "./")
}
