package wfs

import (
	"encoding/xml"

	"github.com/delta10/wfs-filter-proxy/internal/ogc"
)

// QueryProperty is one entry of the ordered property selection of a Query:
// a *PropertyName, an *XlinkPropertyName or a *Function.
type QueryProperty interface {
	queryProperty()
}

type Query struct {
	XMLName        xml.Name        `xml:"http://www.opengis.net/wfs Query"`
	Properties     []QueryProperty `xml:",any"`
	Filter         *ogc.Filter     `xml:"http://www.opengis.net/ogc Filter,omitempty"`
	SortBy         *ogc.SortBy     `xml:"http://www.opengis.net/ogc SortBy,omitempty"`
	FeatureVersion string          `xml:"featureVersion,attr,omitempty"`
	Handle         string          `xml:"handle,attr,omitempty"`
	SRSName        string          `xml:"srsName,attr,omitempty"`
	TypeName       TypeNameList    `xml:"typeName,attr"`
}

func NewQuery(typeNames ...QName) *Query {
	return &Query{TypeName: typeNames}
}

func (*Query) Kind() Kind { return KindQuery }

// PropertyNames returns the names of the plain and xlink property
// selections, in document order.
func (q *Query) PropertyNames() []string {
	var names []string
	for _, p := range q.Properties {
		switch v := p.(type) {
		case *PropertyName:
			names = append(names, v.Value)
		case *XlinkPropertyName:
			names = append(names, v.Value)
		}
	}
	return names
}

func (q *Query) AddPropertyName(name string) {
	q.Properties = append(q.Properties, &PropertyName{Value: name})
}

func (q *Query) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var v struct {
		Properties     []queryPropertyElement `xml:",any"`
		Filter         *ogc.Filter            `xml:"Filter"`
		SortBy         *ogc.SortBy            `xml:"SortBy"`
		FeatureVersion string                 `xml:"featureVersion,attr"`
		Handle         string                 `xml:"handle,attr"`
		SRSName        string                 `xml:"srsName,attr"`
		TypeName       TypeNameList           `xml:"typeName,attr"`
	}
	if err := d.DecodeElement(&v, &start); err != nil {
		return err
	}

	*q = Query{
		XMLName:        start.Name,
		Filter:         v.Filter,
		SortBy:         v.SortBy,
		FeatureVersion: v.FeatureVersion,
		Handle:         v.Handle,
		SRSName:        v.SRSName,
		TypeName:       v.TypeName,
	}
	for _, p := range v.Properties {
		if p.property != nil {
			q.Properties = append(q.Properties, p.property)
		}
	}
	return nil
}

type queryPropertyElement struct {
	property QueryProperty
}

func (e *queryPropertyElement) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	switch start.Name.Local {
	case "PropertyName":
		v := &PropertyName{}
		if err := d.DecodeElement(v, &start); err != nil {
			return err
		}
		e.property = v
	case "XlinkPropertyName":
		v := &XlinkPropertyName{}
		if err := d.DecodeElement(v, &start); err != nil {
			return err
		}
		e.property = v
	case "Function":
		v := &Function{}
		if err := d.DecodeElement(v, &start); err != nil {
			return err
		}
		e.property = v
	default:
		return d.Skip()
	}
	return nil
}

type PropertyName struct {
	XMLName xml.Name `xml:"http://www.opengis.net/wfs PropertyName"`
	Value   string   `xml:",chardata"`
}

type XlinkPropertyName struct {
	XMLName             xml.Name `xml:"http://www.opengis.net/wfs XlinkPropertyName"`
	Value               string   `xml:",chardata"`
	TraverseXlinkDepth  string   `xml:"traverseXlinkDepth,attr"`
	TraverseXlinkExpiry *uint64  `xml:"traverseXlinkExpiry,attr,omitempty"`
}

func (*XlinkPropertyName) Kind() Kind { return KindXlinkPropertyName }

// Function is an ogc:Function selected as a query property.
type Function struct {
	ogc.Function
}

func (*PropertyName) queryProperty()      {}
func (*XlinkPropertyName) queryProperty() {}
func (*Function) queryProperty()          {}
