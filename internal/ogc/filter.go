package ogc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

const (
	Namespace    = "http://www.opengis.net/ogc"
	GMLNamespace = "http://www.opengis.net/gml"
)

// Filter is an ogc:Filter. The decoded content is kept verbatim so that
// filters are passed through unchanged; FeatureIDs and GmlObjectIDs are
// read-only views on identifier filters.
type Filter struct {
	Attrs        []xml.Attr
	Content      []byte
	FeatureIDs   []FeatureID
	GmlObjectIDs []GmlObjectID
}

type FeatureID struct {
	FID string `xml:"fid,attr"`
}

type GmlObjectID struct {
	ID string `xml:"http://www.opengis.net/gml id,attr"`
}

// NewFeatureIDFilter returns a filter selecting the given feature ids.
func NewFeatureIDFilter(fids ...string) *Filter {
	f := &Filter{}
	for _, fid := range fids {
		f.FeatureIDs = append(f.FeatureIDs, FeatureID{FID: fid})
	}
	return f
}

// NewBBoxFilter returns a filter selecting features whose default geometry
// intersects the envelope spanned by lower and upper.
func NewBBoxFilter(lower, upper [2]float64, srsName string) *Filter {
	var b bytes.Buffer
	b.WriteString("<ogc:BBOX><gml:Envelope")
	if srsName != "" {
		b.WriteString(` srsName="`)
		_ = xml.EscapeText(&b, []byte(srsName))
		b.WriteString(`"`)
	}
	fmt.Fprintf(&b, "><gml:lowerCorner>%s %s</gml:lowerCorner><gml:upperCorner>%s %s</gml:upperCorner></gml:Envelope></ogc:BBOX>",
		formatCoord(lower[0]), formatCoord(lower[1]), formatCoord(upper[0]), formatCoord(upper[1]))

	return &Filter{
		Attrs: []xml.Attr{
			{Name: xml.Name{Local: "xmlns:ogc"}, Value: Namespace},
			{Name: xml.Name{Local: "xmlns:gml"}, Value: GMLNamespace},
		},
		Content: b.Bytes(),
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseFilter decodes an encoded filter, as found in the FILTER parameter
// of a key-value-pair request.
func ParseFilter(s string) (*Filter, error) {
	f := &Filter{}
	if err := xml.Unmarshal([]byte(strings.TrimSpace(s)), f); err != nil {
		return nil, fmt.Errorf("could not parse filter: %w", err)
	}
	return f, nil
}

// IDs returns every feature and gml object id the filter selects.
func (f *Filter) IDs() []string {
	ids := make([]string, 0, len(f.FeatureIDs)+len(f.GmlObjectIDs))
	for _, id := range f.FeatureIDs {
		ids = append(ids, id.FID)
	}
	for _, id := range f.GmlObjectIDs {
		ids = append(ids, id.ID)
	}
	return ids
}

func (f *Filter) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var v struct {
		Content      []byte        `xml:",innerxml"`
		FeatureIDs   []FeatureID   `xml:"FeatureId"`
		GmlObjectIDs []GmlObjectID `xml:"GmlObjectId"`
	}
	if err := d.DecodeElement(&v, &start); err != nil {
		return err
	}

	f.Attrs = PortableAttrs(start.Attr)
	f.Content = v.Content
	f.FeatureIDs = v.FeatureIDs
	f.GmlObjectIDs = v.GmlObjectIDs
	return nil
}

func (f Filter) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if start.Name.Space == "" {
		start.Name = xml.Name{Space: Namespace, Local: "Filter"}
	}
	start.Attr = append(start.Attr, f.Attrs...)

	if len(f.Content) > 0 {
		return e.EncodeElement(struct {
			Content []byte `xml:",innerxml"`
		}{f.Content}, start)
	}

	return e.EncodeElement(struct {
		FeatureIDs   []FeatureID   `xml:"http://www.opengis.net/ogc FeatureId"`
		GmlObjectIDs []GmlObjectID `xml:"http://www.opengis.net/ogc GmlObjectId"`
	}{f.FeatureIDs, f.GmlObjectIDs}, start)
}

// Function is an ogc:Function used as a query property.
type Function struct {
	XMLName xml.Name `xml:"http://www.opengis.net/ogc Function"`
	Name    string   `xml:"name,attr"`
	Content []byte   `xml:",innerxml"`
}

// FilterCapabilities is the ogc:Filter_Capabilities section of a capabilities
// document, carried verbatim.
type FilterCapabilities struct {
	XMLName xml.Name `xml:"http://www.opengis.net/ogc Filter_Capabilities"`
	Content []byte   `xml:",innerxml"`
}

// PortableAttrs prepares decoded attributes for re-encoding. encoding/xml
// reports namespace declarations as ordinary attributes but cannot write them
// back, so they become literal xmlns:prefix attributes, and attributes in a
// namespace declared on the same element keep their original prefix. Default
// namespace declarations are dropped; the encoder writes its own.
func PortableAttrs(attrs []xml.Attr) []xml.Attr {
	prefixes := map[string]string{}
	for _, attr := range attrs {
		if attr.Name.Space == "xmlns" {
			prefixes[attr.Value] = attr.Name.Local
		}
	}

	var portable []xml.Attr
	for _, attr := range attrs {
		switch {
		case attr.Name.Space == "" && attr.Name.Local == "xmlns":
			continue
		case attr.Name.Space == "xmlns":
			attr.Name = xml.Name{Local: "xmlns:" + attr.Name.Local}
		case attr.Name.Space != "":
			if prefix, ok := prefixes[attr.Name.Space]; ok {
				attr.Name = xml.Name{Local: prefix + ":" + attr.Name.Local}
			}
		}
		portable = append(portable, attr)
	}
	return portable
}
