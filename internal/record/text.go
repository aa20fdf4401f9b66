package record

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// layoutChars are the characters the source documents use for indentation.
const layoutChars = "\n\r\t"

// controlStripper removes layout characters. Spaces are content and are kept.
var controlStripper = strings.NewReplacer("\n", "", "\r", "", "\t", "")

// Separator is the fragment kept for inline whitespace between sub-elements,
// as in <First>John</First> <Last>Doe</Last>.
const Separator = " "

// NormalizeText prepares one character-data fragment for storage:
// newline, carriage return and tab characters are removed and the result
// is NFC-normalized.
func NormalizeText(s string) string {
	return norm.NFC.String(controlStripper.Replace(s))
}

// Fragments normalizes raw fragments, preserving order.
//
// Whitespace-only fragments that contain layout characters are indentation
// and are dropped. Spaces-only fragments between two content fragments
// collapse to a single Separator; at either end they are dropped.
func Fragments(raw []string) []string {
	out := make([]string, 0, len(raw))
	pending := false
	for _, r := range raw {
		s := NormalizeText(r)
		if strings.TrimSpace(s) != "" {
			if pending && len(out) > 0 {
				out = append(out, Separator)
			}
			pending = false
			out = append(out, s)
			continue
		}
		if s != "" && !strings.ContainsAny(r, layoutChars) {
			pending = true
		}
	}
	return out
}

// Content returns the fragments that carry text, dropping separators.
func Content(fragments []string) []string {
	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if strings.TrimSpace(f) != "" {
			out = append(out, f)
		}
	}
	return out
}
