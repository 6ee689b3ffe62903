package wfs

import (
	"encoding/xml"

	"github.com/delta10/wfs-filter-proxy/internal/ogc"
	"github.com/delta10/wfs-filter-proxy/internal/ows"
)

const (
	Namespace    = "http://www.opengis.net/wfs"
	GMLNamespace = "http://www.opengis.net/gml"
	XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"

	Service = "WFS"
	Version = "1.1.0"

	DefaultOutputFormat                 = "text/xml; subtype=gml/3.1.1"
	DefaultGmlObjectOutputFormat        = "GML3"
	DefaultUpdateInputFormat            = "x-application/gml:3"
	DefaultExpiry                uint64 = 5
)

// Request is implemented by every WFS request type.
type Request interface {
	Element
	RequestName() string
	TypeNames() []QName
}

// BaseRequest carries the attributes shared by all WFS requests. BaseURL,
// ProvidedVersion and ExtendedProperties describe how the request reached
// the server and are never serialized.
type BaseRequest struct {
	Handle             string            `xml:"handle,attr,omitempty"`
	Service            Optional[string]  `xml:"service,attr"`
	Version            Optional[string]  `xml:"version,attr"`
	BaseURL            string            `xml:"-"`
	ProvidedVersion    string            `xml:"-"`
	ExtendedProperties map[string]string `xml:"-"`
}

func newBaseRequest() BaseRequest {
	return BaseRequest{
		Service: WithDefault(Service),
		Version: WithDefault(Version),
	}
}

func (b *BaseRequest) SetExtendedProperty(key, value string) {
	if b.ExtendedProperties == nil {
		b.ExtendedProperties = map[string]string{}
	}
	b.ExtendedProperties[key] = value
}

// GetCapabilities extends the OWS GetCapabilities request with the WFS
// service attribute.
type GetCapabilities struct {
	XMLName xml.Name `xml:"http://www.opengis.net/wfs GetCapabilities"`
	ows.GetCapabilities
	Service Optional[string] `xml:"service,attr"`
}

func NewGetCapabilities() *GetCapabilities {
	return &GetCapabilities{Service: WithDefault(Service)}
}

func (r *GetCapabilities) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain GetCapabilities
	v := (*plain)(NewGetCapabilities())
	if err := d.DecodeElement(v, &start); err != nil {
		return err
	}
	*r = GetCapabilities(*v)
	return nil
}

func (*GetCapabilities) Kind() Kind          { return KindGetCapabilities }
func (*GetCapabilities) RequestName() string { return "GetCapabilities" }
func (*GetCapabilities) TypeNames() []QName  { return nil }

type DescribeFeatureType struct {
	XMLName xml.Name `xml:"http://www.opengis.net/wfs DescribeFeatureType"`
	BaseRequest
	TypeName     []QName          `xml:"http://www.opengis.net/wfs TypeName"`
	OutputFormat Optional[string] `xml:"outputFormat,attr"`
}

func NewDescribeFeatureType() *DescribeFeatureType {
	return &DescribeFeatureType{
		BaseRequest:  newBaseRequest(),
		OutputFormat: WithDefault(DefaultOutputFormat),
	}
}

func (r *DescribeFeatureType) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain DescribeFeatureType
	v := (*plain)(NewDescribeFeatureType())
	if err := d.DecodeElement(v, &start); err != nil {
		return err
	}
	*r = DescribeFeatureType(*v)
	return nil
}

func (*DescribeFeatureType) Kind() Kind           { return KindDescribeFeatureType }
func (*DescribeFeatureType) RequestName() string  { return "DescribeFeatureType" }
func (r *DescribeFeatureType) TypeNames() []QName { return r.TypeName }

// FeatureRequest holds what GetFeature and GetFeatureWithLock share.
type FeatureRequest struct {
	BaseRequest
	Queries             []*Query             `xml:"http://www.opengis.net/wfs Query"`
	MaxFeatures         *uint64              `xml:"maxFeatures,attr,omitempty"`
	OutputFormat        Optional[string]     `xml:"outputFormat,attr"`
	ResultType          Optional[ResultType] `xml:"resultType,attr"`
	TraverseXlinkDepth  string               `xml:"traverseXlinkDepth,attr,omitempty"`
	TraverseXlinkExpiry *uint64              `xml:"traverseXlinkExpiry,attr,omitempty"`
	FormatOptions       map[string]string    `xml:"-"`
	Metadata            map[string]string    `xml:"-"`
}

func newFeatureRequest() FeatureRequest {
	return FeatureRequest{
		BaseRequest:  newBaseRequest(),
		OutputFormat: WithDefault(DefaultOutputFormat),
		ResultType:   WithDefault(ResultTypeResults),
	}
}

func (r *FeatureRequest) SetFormatOption(key, value string) {
	if r.FormatOptions == nil {
		r.FormatOptions = map[string]string{}
	}
	r.FormatOptions[key] = value
}

func (r *FeatureRequest) SetMetadata(key, value string) {
	if r.Metadata == nil {
		r.Metadata = map[string]string{}
	}
	r.Metadata[key] = value
}

func (r *FeatureRequest) TypeNames() []QName {
	var names []QName
	for _, q := range r.Queries {
		names = append(names, q.TypeName...)
	}
	return names
}

type GetFeature struct {
	XMLName xml.Name `xml:"http://www.opengis.net/wfs GetFeature"`
	FeatureRequest
}

func NewGetFeature() *GetFeature {
	return &GetFeature{FeatureRequest: newFeatureRequest()}
}

func (r *GetFeature) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain GetFeature
	v := (*plain)(NewGetFeature())
	if err := d.DecodeElement(v, &start); err != nil {
		return err
	}
	*r = GetFeature(*v)
	return nil
}

func (*GetFeature) Kind() Kind          { return KindGetFeature }
func (*GetFeature) RequestName() string { return "GetFeature" }

type GetFeatureWithLock struct {
	XMLName xml.Name `xml:"http://www.opengis.net/wfs GetFeatureWithLock"`
	FeatureRequest
	Expiry Optional[uint64] `xml:"expiry,attr"`
}

func NewGetFeatureWithLock() *GetFeatureWithLock {
	return &GetFeatureWithLock{
		FeatureRequest: newFeatureRequest(),
		Expiry:         WithDefault(DefaultExpiry),
	}
}

func (r *GetFeatureWithLock) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain GetFeatureWithLock
	v := (*plain)(NewGetFeatureWithLock())
	if err := d.DecodeElement(v, &start); err != nil {
		return err
	}
	*r = GetFeatureWithLock(*v)
	return nil
}

func (*GetFeatureWithLock) Kind() Kind          { return KindGetFeatureWithLock }
func (*GetFeatureWithLock) RequestName() string { return "GetFeatureWithLock" }

type GetGmlObject struct {
	XMLName xml.Name `xml:"http://www.opengis.net/wfs GetGmlObject"`
	BaseRequest
	GmlObjectID         ogc.GmlObjectID  `xml:"http://www.opengis.net/ogc GmlObjectId"`
	OutputFormat        Optional[string] `xml:"outputFormat,attr"`
	TraverseXlinkDepth  string           `xml:"traverseXlinkDepth,attr"`
	TraverseXlinkExpiry *uint64          `xml:"traverseXlinkExpiry,attr,omitempty"`
}

func NewGetGmlObject() *GetGmlObject {
	return &GetGmlObject{
		BaseRequest:  newBaseRequest(),
		OutputFormat: WithDefault(DefaultGmlObjectOutputFormat),
	}
}

func (r *GetGmlObject) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain GetGmlObject
	v := (*plain)(NewGetGmlObject())
	if err := d.DecodeElement(v, &start); err != nil {
		return err
	}
	*r = GetGmlObject(*v)
	return nil
}

func (*GetGmlObject) Kind() Kind          { return KindGetGmlObject }
func (*GetGmlObject) RequestName() string { return "GetGmlObject" }

// TypeNames derives the feature type from the prefix of the gml id, as in
// "roads.12". Ids without a prefix name no type.
func (r *GetGmlObject) TypeNames() []QName {
	if t := fidTypeName(r.GmlObjectID.ID); t != "" {
		return []QName{ParseQName(t)}
	}
	return nil
}

type LockFeature struct {
	XMLName xml.Name `xml:"http://www.opengis.net/wfs LockFeature"`
	BaseRequest
	Locks      []*Lock           `xml:"http://www.opengis.net/wfs Lock"`
	Expiry     Optional[uint64]  `xml:"expiry,attr"`
	LockAction Optional[AllSome] `xml:"lockAction,attr"`
}

func NewLockFeature() *LockFeature {
	return &LockFeature{
		BaseRequest: newBaseRequest(),
		Expiry:      WithDefault(DefaultExpiry),
		LockAction:  WithDefault(AllSomeAll),
	}
}

func (r *LockFeature) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain LockFeature
	v := (*plain)(NewLockFeature())
	if err := d.DecodeElement(v, &start); err != nil {
		return err
	}
	*r = LockFeature(*v)
	return nil
}

func (*LockFeature) Kind() Kind          { return KindLockFeature }
func (*LockFeature) RequestName() string { return "LockFeature" }

func (r *LockFeature) TypeNames() []QName {
	var names []QName
	for _, lock := range r.Locks {
		if !lock.TypeName.IsZero() {
			names = append(names, lock.TypeName)
		}
	}
	return names
}

type Lock struct {
	Filter   *ogc.Filter `xml:"http://www.opengis.net/ogc Filter,omitempty"`
	Handle   string      `xml:"handle,attr,omitempty"`
	TypeName QName       `xml:"typeName,attr"`
}

func (*Lock) Kind() Kind { return KindLock }
