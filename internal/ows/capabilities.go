package ows

import "encoding/xml"

const (
	Namespace      = "http://www.opengis.net/ows"
	XLinkNamespace = "http://www.w3.org/1999/xlink"
)

// CapabilitiesBase holds the sections every OWS 1.0 capabilities document
// starts with. Service specific capabilities embed it.
type CapabilitiesBase struct {
	Version               string                 `xml:"version,attr"`
	UpdateSequence        string                 `xml:"updateSequence,attr,omitempty"`
	ServiceIdentification *ServiceIdentification `xml:"http://www.opengis.net/ows ServiceIdentification,omitempty"`
	ServiceProvider       *ServiceProvider       `xml:"http://www.opengis.net/ows ServiceProvider,omitempty"`
	OperationsMetadata    *OperationsMetadata    `xml:"http://www.opengis.net/ows OperationsMetadata,omitempty"`
}

type ServiceIdentification struct {
	Title              string     `xml:"http://www.opengis.net/ows Title,omitempty"`
	Abstract           string     `xml:"http://www.opengis.net/ows Abstract,omitempty"`
	Keywords           []Keywords `xml:"http://www.opengis.net/ows Keywords"`
	ServiceType        Code       `xml:"http://www.opengis.net/ows ServiceType"`
	ServiceTypeVersion []string   `xml:"http://www.opengis.net/ows ServiceTypeVersion"`
	Fees               string     `xml:"http://www.opengis.net/ows Fees,omitempty"`
	AccessConstraints  []string   `xml:"http://www.opengis.net/ows AccessConstraints"`
}

type ServiceProvider struct {
	ProviderName   string           `xml:"http://www.opengis.net/ows ProviderName"`
	ProviderSite   *OnlineResource  `xml:"http://www.opengis.net/ows ProviderSite,omitempty"`
	ServiceContact ResponsibleParty `xml:"http://www.opengis.net/ows ServiceContact"`
}

type ResponsibleParty struct {
	IndividualName string   `xml:"http://www.opengis.net/ows IndividualName,omitempty"`
	PositionName   string   `xml:"http://www.opengis.net/ows PositionName,omitempty"`
	ContactInfo    *Contact `xml:"http://www.opengis.net/ows ContactInfo,omitempty"`
	Role           *Code    `xml:"http://www.opengis.net/ows Role,omitempty"`
}

type Contact struct {
	Phone               *Telephone      `xml:"http://www.opengis.net/ows Phone,omitempty"`
	Address             *Address        `xml:"http://www.opengis.net/ows Address,omitempty"`
	OnlineResource      *OnlineResource `xml:"http://www.opengis.net/ows OnlineResource,omitempty"`
	HoursOfService      string          `xml:"http://www.opengis.net/ows HoursOfService,omitempty"`
	ContactInstructions string          `xml:"http://www.opengis.net/ows ContactInstructions,omitempty"`
}

type Telephone struct {
	Voice     []string `xml:"http://www.opengis.net/ows Voice"`
	Facsimile []string `xml:"http://www.opengis.net/ows Facsimile"`
}

type Address struct {
	DeliveryPoint         []string `xml:"http://www.opengis.net/ows DeliveryPoint"`
	City                  string   `xml:"http://www.opengis.net/ows City,omitempty"`
	AdministrativeArea    string   `xml:"http://www.opengis.net/ows AdministrativeArea,omitempty"`
	PostalCode            string   `xml:"http://www.opengis.net/ows PostalCode,omitempty"`
	Country               string   `xml:"http://www.opengis.net/ows Country,omitempty"`
	ElectronicMailAddress []string `xml:"http://www.opengis.net/ows ElectronicMailAddress"`
}

type OnlineResource struct {
	Href string `xml:"http://www.w3.org/1999/xlink href,attr,omitempty"`
}

type OperationsMetadata struct {
	Operations           []Operation           `xml:"http://www.opengis.net/ows Operation"`
	Parameters           []Domain              `xml:"http://www.opengis.net/ows Parameter"`
	Constraints          []Domain              `xml:"http://www.opengis.net/ows Constraint"`
	ExtendedCapabilities *ExtendedCapabilities `xml:"http://www.opengis.net/ows ExtendedCapabilities,omitempty"`
}

// Operation returns the operation with the given name, or nil.
func (m *OperationsMetadata) Operation(name string) *Operation {
	for i := range m.Operations {
		if m.Operations[i].Name == name {
			return &m.Operations[i]
		}
	}
	return nil
}

type Operation struct {
	Name        string     `xml:"name,attr"`
	DCP         []DCP      `xml:"http://www.opengis.net/ows DCP"`
	Parameters  []Domain   `xml:"http://www.opengis.net/ows Parameter"`
	Constraints []Domain   `xml:"http://www.opengis.net/ows Constraint"`
	Metadata    []Metadata `xml:"http://www.opengis.net/ows Metadata"`
}

type DCP struct {
	HTTP HTTP `xml:"http://www.opengis.net/ows HTTP"`
}

type HTTP struct {
	Get  []RequestMethod `xml:"http://www.opengis.net/ows Get"`
	Post []RequestMethod `xml:"http://www.opengis.net/ows Post"`
}

type RequestMethod struct {
	Href        string   `xml:"http://www.w3.org/1999/xlink href,attr,omitempty"`
	Constraints []Domain `xml:"http://www.opengis.net/ows Constraint"`
}

type Domain struct {
	Name     string     `xml:"name,attr"`
	Values   []string   `xml:"http://www.opengis.net/ows Value"`
	Metadata []Metadata `xml:"http://www.opengis.net/ows Metadata"`
}

type Metadata struct {
	Href  string `xml:"http://www.w3.org/1999/xlink href,attr,omitempty"`
	About string `xml:"about,attr,omitempty"`
}

type ExtendedCapabilities struct {
	Content []byte `xml:",innerxml"`
}

type Keywords struct {
	Keywords []string `xml:"http://www.opengis.net/ows Keyword"`
	Type     *Code    `xml:"http://www.opengis.net/ows Type,omitempty"`
}

type Code struct {
	Value     string `xml:",chardata"`
	CodeSpace string `xml:"codeSpace,attr,omitempty"`
}

// BoundingBox is used for both ows:BoundingBox and ows:WGS84BoundingBox;
// corners are whitespace separated coordinate lists.
type BoundingBox struct {
	LowerCorner string  `xml:"http://www.opengis.net/ows LowerCorner"`
	UpperCorner string  `xml:"http://www.opengis.net/ows UpperCorner"`
	CRS         string  `xml:"crs,attr,omitempty"`
	Dimensions  *uint64 `xml:"dimensions,attr,omitempty"`
}

// GetCapabilities is the OWS 1.0 GetCapabilities request base.
type GetCapabilities struct {
	AcceptVersions     *AcceptVersions   `xml:"http://www.opengis.net/ows AcceptVersions,omitempty"`
	Sections           *Sections         `xml:"http://www.opengis.net/ows Sections,omitempty"`
	AcceptFormats      *AcceptFormats    `xml:"http://www.opengis.net/ows AcceptFormats,omitempty"`
	UpdateSequence     string            `xml:"updateSequence,attr,omitempty"`
	BaseURL            string            `xml:"-"`
	Namespace          string            `xml:"-"`
	ExtendedProperties map[string]string `xml:"-"`
}

type AcceptVersions struct {
	Versions []string `xml:"http://www.opengis.net/ows Version"`
}

type Sections struct {
	Sections []string `xml:"http://www.opengis.net/ows Section"`
}

type AcceptFormats struct {
	OutputFormats []string `xml:"http://www.opengis.net/ows OutputFormat"`
}

// Name returns the qualified name of an element in the OWS namespace.
func Name(local string) xml.Name {
	return xml.Name{Space: Namespace, Local: local}
}
