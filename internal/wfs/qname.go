package wfs

import (
	"encoding/xml"
	"strings"

	"github.com/delta10/wfs-filter-proxy/internal/ogc"
)

// QName is a qualified name as written in a document. Namespace is only
// known when the name came from an element name or was resolved against a
// Document.
type QName struct {
	Namespace string
	Prefix    string
	Local     string
}

// ParseQName splits "prefix:local"; names without a colon have no prefix.
func ParseQName(s string) QName {
	s = strings.TrimSpace(s)
	if prefix, local, ok := strings.Cut(s, ":"); ok {
		return QName{Prefix: prefix, Local: local}
	}
	return QName{Local: s}
}

func (q QName) IsZero() bool {
	return q.Local == ""
}

func (q QName) String() string {
	if q.Prefix == "" {
		return q.Local
	}
	return q.Prefix + ":" + q.Local
}

func (q QName) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

func (q *QName) UnmarshalText(b []byte) error {
	*q = ParseQName(string(b))
	return nil
}

func (q QName) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if q.IsZero() {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: q.String()}, nil
}

func (q *QName) UnmarshalXMLAttr(attr xml.Attr) error {
	*q = ParseQName(attr.Value)
	return nil
}

// TypeNameList is the whitespace separated typeName list of a Query.
type TypeNameList []QName

func ParseTypeNameList(s string) TypeNameList {
	var list TypeNameList
	for _, field := range strings.Fields(s) {
		list = append(list, ParseQName(field))
	}
	return list
}

func (l TypeNameList) String() string {
	names := make([]string, len(l))
	for i, name := range l {
		names[i] = name.String()
	}
	return strings.Join(names, " ")
}

func (l TypeNameList) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if len(l) == 0 {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: l.String()}, nil
}

func (l *TypeNameList) UnmarshalXMLAttr(attr xml.Attr) error {
	*l = ParseTypeNameList(attr.Value)
	return nil
}

// Node is an opaque XML element, used for feature payloads and property
// values whose schema is application defined. Content is the concatenated
// character data; decoded nodes re-encode their text and children in
// document order.
type Node struct {
	XMLName xml.Name
	Attrs   []xml.Attr
	Content string
	Nodes   []Node

	// parts records the order of text and children; a part >= 0 indexes
	// Nodes, -1 is the next chunk of texts.
	parts []int
	texts []string
}

func (n *Node) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	*n = Node{XMLName: start.Name, Attrs: ogc.PortableAttrs(start.Attr)}

	var content strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var child Node
			if err := child.UnmarshalXML(d, t); err != nil {
				return err
			}
			n.parts = append(n.parts, len(n.Nodes))
			n.Nodes = append(n.Nodes, child)
		case xml.CharData:
			content.Write(t)
			n.parts = append(n.parts, -1)
			n.texts = append(n.texts, string(t))
		case xml.EndElement:
			n.Content = content.String()
			return nil
		}
	}
}

func (n Node) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if n.XMLName.Local != "" {
		start.Name = n.XMLName
	}
	start.Attr = append(start.Attr, n.Attrs...)
	if start.Name.Space == "" {
		// Unqualified elements must not inherit the default namespace the
		// encoder declares on their parent.
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "xmlns"}, Value: ""})
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}

	if n.ordered() {
		texts := n.texts
		for _, part := range n.parts {
			if part < 0 {
				if err := e.EncodeToken(xml.CharData(texts[0])); err != nil {
					return err
				}
				texts = texts[1:]
				continue
			}
			if err := e.Encode(n.Nodes[part]); err != nil {
				return err
			}
		}
	} else {
		if n.Content != "" {
			if err := e.EncodeToken(xml.CharData(n.Content)); err != nil {
				return err
			}
		}
		for _, child := range n.Nodes {
			if err := e.Encode(child); err != nil {
				return err
			}
		}
	}
	return e.EncodeToken(start.End())
}

// ordered reports whether the recorded order still matches the node, which
// stops being the case once Content or Nodes are changed.
func (n *Node) ordered() bool {
	return len(n.parts) == len(n.Nodes)+len(n.texts) && strings.Join(n.texts, "") == n.Content
}

// Name returns the element name as a QName.
func (n *Node) Name() QName {
	return QName{Namespace: n.XMLName.Space, Local: n.XMLName.Local}
}

// Attr returns the value of the attribute with the given local name.
func (n *Node) Attr(local string) (string, bool) {
	for _, attr := range n.Attrs {
		name := attr.Name.Local
		if i := strings.IndexByte(name, ':'); i >= 0 && attr.Name.Space == "" {
			name = name[i+1:]
		}
		if name == local {
			return attr.Value, true
		}
	}
	return "", false
}
