package woff

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// xmlDeclaration is prefixed to every serialised metadata document, even if
// the caller's tree was built without one.
const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// MetadataElement is one node of the parsed WOFF 1.0 metadata XML tree (see
// §4.8 for the vocabulary). Attrs preserves insertion order for stable
// re-serialisation; Text holds the element's direct character data with no
// children in between, matching the vocabulary's leaf/text elements.
type MetadataElement struct {
	Name     string
	Attrs    []xml.Attr
	Text     string
	Children []*MetadataElement
}

// Attr returns the value of attribute name and whether it was present.
func (e *MetadataElement) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// ChildrenOf returns all direct children named name, in document order.
func (e *MetadataElement) ChildrenOf(name string) []*MetadataElement {
	var out []*MetadataElement
	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// ParseMetadata decodes the inflated UTF-8 XML metadata document into a
// tree rooted at <metadata>. It does not enforce the schema in §4.8 --
// that is the validator's m-structure test (checkMetadataSchema, see
// metadata_schema.go) -- it only requires the bytes to be well-formed XML.
func ParseMetadata(b []byte) (*MetadataElement, error) {
	dec := xml.NewDecoder(bytes.NewReader(b))
	var stack []*MetadataElement
	var root *MetadataElement
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("metadata: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &MetadataElement{Name: t.Name.Local, Attrs: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			} else {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("metadata: unbalanced end element %s", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("metadata: no root element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("metadata: unclosed element %s", stack[len(stack)-1].Name)
	}
	return root, nil
}

// SerializeMetadata renders root back to a UTF-8 XML document with a
// leading declaration, regardless of whether root (or its origin) carried
// one. Attribute order is preserved from MetadataElement.Attrs.
func SerializeMetadata(root *MetadataElement) []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlDeclaration)
	writeElement(&buf, root)
	return buf.Bytes()
}

func writeElement(buf *bytes.Buffer, el *MetadataElement) {
	buf.WriteByte('<')
	buf.WriteString(el.Name)
	for _, a := range el.Attrs {
		fmt.Fprintf(buf, ` %s="%s"`, a.Name.Local, xmlEscape(a.Value))
	}
	if el.Text == "" && len(el.Children) == 0 {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	buf.WriteString(xmlEscape(el.Text))
	for _, c := range el.Children {
		writeElement(buf, c)
	}
	buf.WriteString("</")
	buf.WriteString(el.Name)
	buf.WriteByte('>')
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
