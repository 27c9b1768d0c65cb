// Package xmlnorm normalizes gorest XML responses into the records the JSON
// endpoints return.
//
// The service wraps every XML payload in one of a few envelopes:
//
//	<hash>...</hash>                          a single record or a message
//	<objects type="array"><object/>...</objects>  a list of records or validation errors
//	<nil-classes type="array"/>               an empty list
//
// Documents are first parsed into a generic element tree, then reduced to the
// typed shapes in package model. All functions are pure and safe for concurrent use.
package xmlnorm

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
)

// Node is one element of a parsed document.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*Node            // document order
	Elements map[string][]*Node // children grouped by name, document order within a name
}

// Document is a parsed XML document.
type Document struct {
	Root *Node
}

// Child returns the first child element called name.
func (n *Node) Child(name string) (*Node, bool) {
	nodes := n.Elements[name]
	if len(nodes) == 0 {
		return nil, false
	}
	return nodes[0], true
}

// All returns every child element called name.
func (n *Node) All(name string) []*Node {
	return n.Elements[name]
}

// Attr returns the value of an attribute, or "" when absent.
func (n *Node) Attr(name string) string {
	return n.Attrs[name]
}

// IsNil reports whether the element carries the nil="true" marker.
func (n *Node) IsNil() bool {
	return n.Attrs["nil"] == "true"
}

// Parse reads text into a Document. Anything that is not a single well-formed
// root element fails with ErrParse.
func Parse(text []byte) (*Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(text))

	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, parseError(errors.New("multiple root elements"))
			}
			node := &Node{
				Name:     t.Name.Local,
				Attrs:    make(map[string]string, len(t.Attr)),
				Elements: make(map[string][]*Node),
			}
			for _, a := range t.Attr {
				node.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
				parent.Elements[node.Name] = append(parent.Elements[node.Name], node)
			} else {
				root = node
			}
			stack = append(stack, node)
		case xml.EndElement:
			node := stack[len(stack)-1]
			if len(node.Children) > 0 {
				node.Text = ""
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, parseError(errors.New("text outside root element"))
				}
				continue
			}
			stack[len(stack)-1].Text += string(t)
		}
	}

	if root == nil {
		return nil, parseError(errors.New("no root element"))
	}
	return &Document{Root: root}, nil
}

// ParseString is Parse for string input.
func ParseString(text string) (*Document, error) {
	return Parse([]byte(text))
}
