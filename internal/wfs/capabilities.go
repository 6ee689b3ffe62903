package wfs

import (
	"encoding/xml"

	"github.com/delta10/wfs-filter-proxy/internal/ogc"
	"github.com/delta10/wfs-filter-proxy/internal/ows"
)

type WFSCapabilities struct {
	XMLName xml.Name `xml:"http://www.opengis.net/wfs WFS_Capabilities"`
	ows.CapabilitiesBase
	FeatureTypeList           *FeatureTypeList        `xml:"http://www.opengis.net/wfs FeatureTypeList,omitempty"`
	ServesGMLObjectTypeList   *GMLObjectTypeList      `xml:"http://www.opengis.net/wfs ServesGMLObjectTypeList,omitempty"`
	SupportsGMLObjectTypeList *GMLObjectTypeList      `xml:"http://www.opengis.net/wfs SupportsGMLObjectTypeList,omitempty"`
	FilterCapabilities        *ogc.FilterCapabilities `xml:"http://www.opengis.net/ogc Filter_Capabilities"`
}

func NewWFSCapabilities() *WFSCapabilities {
	return &WFSCapabilities{CapabilitiesBase: ows.CapabilitiesBase{Version: Version}}
}

func (*WFSCapabilities) Kind() Kind { return KindWFSCapabilities }

type FeatureTypeList struct {
	Operations   *Operations   `xml:"http://www.opengis.net/wfs Operations,omitempty"`
	FeatureTypes []FeatureType `xml:"http://www.opengis.net/wfs FeatureType"`
}

func (*FeatureTypeList) Kind() Kind { return KindFeatureTypeList }

// Retain drops every feature type for which keep returns false and reports
// how many were removed.
func (l *FeatureTypeList) Retain(keep func(FeatureType) bool) int {
	kept := l.FeatureTypes[:0]
	for _, ft := range l.FeatureTypes {
		if keep(ft) {
			kept = append(kept, ft)
		}
	}
	removed := len(l.FeatureTypes) - len(kept)
	l.FeatureTypes = kept
	return removed
}

// FeatureType describes one feature type offered by the service. A feature
// type either lists DefaultSRS and OtherSRS or carries NoSRS.
type FeatureType struct {
	Name             QName             `xml:"http://www.opengis.net/wfs Name"`
	Title            string            `xml:"http://www.opengis.net/wfs Title"`
	Abstract         string            `xml:"http://www.opengis.net/wfs Abstract,omitempty"`
	Keywords         []ows.Keywords    `xml:"http://www.opengis.net/ows Keywords"`
	DefaultSRS       string            `xml:"http://www.opengis.net/wfs DefaultSRS,omitempty"`
	OtherSRS         []string          `xml:"http://www.opengis.net/wfs OtherSRS"`
	NoSRS            *NoSRS            `xml:"http://www.opengis.net/wfs NoSRS,omitempty"`
	Operations       *Operations       `xml:"http://www.opengis.net/wfs Operations,omitempty"`
	OutputFormats    *OutputFormatList `xml:"http://www.opengis.net/wfs OutputFormats,omitempty"`
	WGS84BoundingBox []ows.BoundingBox `xml:"http://www.opengis.net/ows WGS84BoundingBox"`
	MetadataURL      []MetadataURL     `xml:"http://www.opengis.net/wfs MetadataURL"`
}

func (*FeatureType) Kind() Kind { return KindFeatureType }

type Operations struct {
	Operations []OperationType `xml:"http://www.opengis.net/wfs Operation"`
}

func (*Operations) Kind() Kind { return KindOperations }

func (o *Operations) Supports(op OperationType) bool {
	if o == nil {
		return false
	}
	for _, v := range o.Operations {
		if v == op {
			return true
		}
	}
	return false
}

type OutputFormatList struct {
	Formats []string `xml:"http://www.opengis.net/wfs Format"`
}

func (*OutputFormatList) Kind() Kind { return KindOutputFormatList }

// MetadataURL points at metadata of a feature type. Format is one of the
// FormatType literals and Type one of the TypeType literals.
type MetadataURL struct {
	Value  string `xml:",chardata"`
	Format string `xml:"format,attr"`
	Type   string `xml:"type,attr"`
}

func (*MetadataURL) Kind() Kind { return KindMetadataURL }

type NoSRS struct{}

func (*NoSRS) Kind() Kind { return KindNoSRS }

type GMLObjectTypeList struct {
	GMLObjectTypes []GMLObjectType `xml:"http://www.opengis.net/wfs GMLObjectType"`
}

func (*GMLObjectTypeList) Kind() Kind { return KindGMLObjectTypeList }

type GMLObjectType struct {
	Name          QName             `xml:"http://www.opengis.net/wfs Name"`
	Title         string            `xml:"http://www.opengis.net/wfs Title,omitempty"`
	Abstract      string            `xml:"http://www.opengis.net/wfs Abstract,omitempty"`
	Keywords      []ows.Keywords    `xml:"http://www.opengis.net/ows Keywords"`
	OutputFormats *OutputFormatList `xml:"http://www.opengis.net/wfs OutputFormats,omitempty"`
}

func (*GMLObjectType) Kind() Kind { return KindGMLObjectType }
