package engine

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// The engine is embedded by the session service and must stay on the
// standard library.
func TestImportBoundaries(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatal(err)
	}
	fset := token.NewFileSet()
	var violations []string
	for _, name := range files {
		f, err := parser.ParseFile(fset, name, nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		for _, imp := range f.Imports {
			path, _ := strconv.Unquote(imp.Path.Value)
			// Standard library paths have no dot in their first element.
			if first := strings.SplitN(path, "/", 2)[0]; strings.Contains(first, ".") {
				violations = append(violations, name+" → "+path)
			}
		}
	}
	if len(violations) > 0 {
		t.Fatalf("engine imports outside the standard library:\n  %s", strings.Join(violations, "\n  "))
	}
}
