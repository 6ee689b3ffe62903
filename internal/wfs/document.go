package wfs

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/delta10/wfs-filter-proxy/internal/ogc"
	"github.com/delta10/wfs-filter-proxy/internal/ows"
)

// Document is a WFS document: the root element plus the namespace
// declarations and schema locations found on it. Roots with simple
// content (LockId, PropertyName) have a nil Element and keep their text
// in Value.
type Document struct {
	Name           xml.Name
	Element        Element
	Value          string
	Namespaces     map[string]string
	SchemaLocation map[string]string
}

// NewDocument wraps e in a document with the usual prefixes declared.
func NewDocument(e Element) *Document {
	d := &Document{
		Element: e,
		Namespaces: map[string]string{
			"wfs":   Namespace,
			"ogc":   ogc.Namespace,
			"gml":   GMLNamespace,
			"ows":   ows.Namespace,
			"xlink": ows.XLinkNamespace,
		},
		SchemaLocation: map[string]string{},
	}
	if e != nil {
		if c := Schema().Class(e.Kind()); c != nil {
			d.Name = c.Element
		}
	}
	return d
}

func (*Document) Kind() Kind { return KindDocumentRoot }

// Request returns the root element if it is a request.
func (d *Document) Request() (Request, bool) {
	r, ok := d.Element.(Request)
	return r, ok
}

// Resolve fills in the namespace of q from the prefixes declared on the
// document root.
func (d *Document) Resolve(q QName) QName {
	if q.Namespace != "" {
		return q
	}
	if uri, ok := d.Namespaces[q.Prefix]; ok {
		q.Namespace = uri
	}
	return q
}

// Qualify fills in the prefix of q from the prefixes declared on the
// document root. It is the inverse of Resolve.
func (d *Document) Qualify(q QName) QName {
	if q.Prefix != "" || q.Namespace == "" {
		return q
	}
	if prefix, ok := d.Prefix(q.Namespace); ok {
		q.Prefix = prefix
	}
	return q
}

// Prefix returns a prefix declared for uri.
func (d *Document) Prefix(uri string) (string, bool) {
	prefixes := make([]string, 0, len(d.Namespaces))
	for prefix := range d.Namespaces {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		if d.Namespaces[prefix] == uri {
			return prefix, true
		}
	}
	return "", false
}

// Decode reads a WFS document. The root element decides which type is
// decoded; roots outside the WFS schema fail with ErrUnknownElement.
// Prefixes declared below the root are added to Namespaces when they are
// bound to one namespace throughout the document, so that verbatim content
// such as filters stays resolvable once the document is encoded again.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read document: %w", err)
	}
	dec := xml.NewDecoder(bytes.NewReader(data))

	var start xml.StartElement
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("could not decode document: no root element")
		}
		if err != nil {
			return nil, fmt.Errorf("could not decode document: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			start = se
			break
		}
	}

	doc := &Document{
		Name:           start.Name,
		Namespaces:     map[string]string{},
		SchemaLocation: map[string]string{},
	}
	for _, a := range start.Attr {
		switch {
		case a.Name.Space == "xmlns":
			doc.Namespaces[a.Name.Local] = a.Value
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			doc.Namespaces[""] = a.Value
		case a.Name.Space == XSINamespace && a.Name.Local == "schemaLocation":
			fields := strings.Fields(a.Value)
			for i := 0; i+1 < len(fields); i += 2 {
				doc.SchemaLocation[fields[i]] = fields[i+1]
			}
		}
	}

	kind, ok := Schema().KindOfElement(start.Name)
	if !ok {
		return nil, fmt.Errorf("%w: {%s}%s", ErrUnknownElement, start.Name.Space, start.Name.Local)
	}

	if kind == KindUnknown {
		if err := dec.DecodeElement(&doc.Value, &start); err != nil {
			return nil, fmt.Errorf("could not decode %s: %w", start.Name.Local, err)
		}
		return doc, nil
	}

	e, err := Create(kind)
	if err != nil {
		return nil, err
	}
	if err := dec.DecodeElement(e, &start); err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", start.Name.Local, err)
	}
	doc.Element = e
	doc.hoistNamespaces(data)
	return doc, nil
}

func (d *Document) hoistNamespaces(data []byte) {
	bindings := map[string]map[string]bool{}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.RawToken()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		for _, a := range se.Attr {
			if a.Name.Space != "xmlns" {
				continue
			}
			if bindings[a.Name.Local] == nil {
				bindings[a.Name.Local] = map[string]bool{}
			}
			bindings[a.Name.Local][a.Value] = true
		}
	}

	for prefix, uris := range bindings {
		if _, declared := d.Namespaces[prefix]; declared || len(uris) != 1 {
			continue
		}
		for uri := range uris {
			d.Namespaces[prefix] = uri
		}
	}
}

// Encode writes doc with an XML declaration. Namespace prefixes and schema
// locations of the document are declared on the root element.
func Encode(w io.Writer, doc *Document) error {
	if doc.Name.Local == "" {
		return fmt.Errorf("%w: document has no root element name", ErrUnknownElement)
	}

	start := xml.StartElement{Name: doc.Name}

	prefixes := make([]string, 0, len(doc.Namespaces))
	for prefix := range doc.Namespaces {
		if prefix != "" {
			prefixes = append(prefixes, prefix)
		}
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "xmlns:" + prefix}, Value: doc.Namespaces[prefix]})
	}

	if len(doc.SchemaLocation) > 0 {
		xsi, ok := doc.Prefix(XSINamespace)
		if !ok || xsi == "" {
			xsi = "xsi"
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "xmlns:xsi"}, Value: XSINamespace})
		}
		namespaces := make([]string, 0, len(doc.SchemaLocation))
		for ns := range doc.SchemaLocation {
			namespaces = append(namespaces, ns)
		}
		sort.Strings(namespaces)
		pairs := make([]string, 0, 2*len(namespaces))
		for _, ns := range namespaces {
			pairs = append(pairs, ns, doc.SchemaLocation[ns])
		}
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: xsi + ":schemaLocation"}, Value: strings.Join(pairs, " ")})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	// The root's own copies of the declarations written above are dropped.
	element := doc.Element
	if c, ok := element.(*FeatureCollection); ok {
		copied := *c
		copied.Attrs = withoutAttrs(c.Attrs, start.Attr)
		element = &copied
	}

	enc := xml.NewEncoder(w)
	var err error
	if element == nil {
		err = enc.EncodeElement(doc.Value, start)
	} else {
		err = enc.EncodeElement(element, start)
	}
	if err != nil {
		return fmt.Errorf("could not encode %s: %w", doc.Name.Local, err)
	}
	return enc.Flush()
}

func withoutAttrs(attrs, written []xml.Attr) []xml.Attr {
	names := map[string]bool{}
	for _, a := range written {
		names[a.Name.Local] = true
		if strings.HasSuffix(a.Name.Local, ":schemaLocation") {
			names["schemaLocation"] = true
		}
	}

	var kept []xml.Attr
	for _, a := range attrs {
		switch {
		case a.Name.Space == "" && names[a.Name.Local]:
		case a.Name.Space == "" && strings.HasSuffix(a.Name.Local, ":schemaLocation") && names["schemaLocation"]:
		case a.Name.Space == XSINamespace && a.Name.Local == "schemaLocation" && names["schemaLocation"]:
		default:
			kept = append(kept, a)
		}
	}
	return kept
}
