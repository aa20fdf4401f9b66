// Package testutil holds helpers shared by tests: deterministic clocks and
// small builders for scheduler XML documents.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Element renders one Job or Plan element from tag/text pairs, in order.
// The text is inserted verbatim, so it may contain nested elements.
//
//	Element("Job", "Name", "backup", "ID", "4")
//	// <Job><Name>backup</Name><ID>4</ID></Job>
func Element(kind string, pairs ...string) string {
	if len(pairs)%2 != 0 {
		panic("testutil.Element: odd number of tag/text arguments")
	}
	var b strings.Builder
	b.WriteString("<" + kind + ">")
	for i := 0; i < len(pairs); i += 2 {
		tag, text := pairs[i], pairs[i+1]
		b.WriteString("<" + tag + ">" + text + "</" + tag + ">")
	}
	b.WriteString("</" + kind + ">")
	return b.String()
}

// Schedule wraps elements in a <Schedule> root element.
func Schedule(elements ...string) string {
	return "<Schedule>" + strings.Join(elements, "") + "</Schedule>"
}

// WriteDocument writes content to dir/name and returns the path.
func WriteDocument(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
