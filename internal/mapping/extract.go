package mapping

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/roach88/schedmap/internal/record"
)

// Child is one direct child element of a Job or Plan element.
// Fragments hold all nested character data in document order, already
// normalized by record.Fragments.
type Child struct {
	Tag       string
	Fragments []string
}

// Element is one Job or Plan element.
type Element struct {
	Kind     record.Kind
	Line     int
	Children []Child
}

// Document is the set of records found in one XML document, each group in
// document order.
type Document struct {
	Plans []Element
	Jobs  []Element
}

// node is a minimal element tree; content interleaves string and *node.
type node struct {
	name    string
	line    int
	content []any
}

// text returns all character data under n in document order.
func (n *node) text() []string {
	var out []string
	for _, c := range n.content {
		switch v := c.(type) {
		case string:
			out = append(out, v)
		case *node:
			out = append(out, v.text()...)
		}
	}
	return out
}

// Parse reads a whole XML document and extracts its Job and Plan elements.
// Documents that are not well-formed yield ErrCodeMalformedDocument.
func Parse(r io.Reader) (*Document, error) {
	root, err := parseTree(r)
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	var walk func(n *node)
	walk = func(n *node) {
		switch record.Kind(n.name) {
		case record.KindPlan:
			doc.Plans = append(doc.Plans, toElement(record.KindPlan, n))
		case record.KindJob:
			doc.Jobs = append(doc.Jobs, toElement(record.KindJob, n))
		}
		for _, c := range n.content {
			if child, ok := c.(*node); ok {
				walk(child)
			}
		}
	}
	walk(root)

	return doc, nil
}

// CheckWellFormed reads r to the end and reports whether it is a single
// well-formed XML document.
func CheckWellFormed(r io.Reader) error {
	_, err := parseTree(r)
	return err
}

func toElement(kind record.Kind, n *node) Element {
	el := Element{Kind: kind, Line: n.line}
	for _, c := range n.content {
		child, ok := c.(*node)
		if !ok {
			continue
		}
		el.Children = append(el.Children, Child{
			Tag:       child.name,
			Fragments: record.Fragments(child.text()),
		})
	}
	return el
}

func parseTree(r io.Reader) (*node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var (
		root  *node
		stack []*node
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			line, _ := dec.InputPos()
			n := &node{name: t.Name.Local, line: line}
			if len(stack) == 0 {
				if root != nil {
					return nil, malformed(fmt.Errorf("line %d: junk after document element", line))
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.content = append(parent.content, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				if strings.TrimSpace(string(t)) != "" {
					line, _ := dec.InputPos()
					return nil, malformed(fmt.Errorf("line %d: text outside the document element", line))
				}
				continue
			}
			parent := stack[len(stack)-1]
			parent.content = append(parent.content, string(t))
		}
	}

	if root == nil {
		return nil, malformed(errors.New("no document element"))
	}
	return root, nil
}

func malformed(err error) *MappingError {
	return &MappingError{
		Code:    ErrCodeMalformedDocument,
		Message: "document is not well-formed XML",
		Err:     err,
	}
}

// charsetReader decodes documents declaring a non-UTF-8 encoding
// (ISO-8859-1, windows-1252, ...) using the IANA registry.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
