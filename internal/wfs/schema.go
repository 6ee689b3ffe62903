package wfs

import (
	"encoding/xml"
	"strings"
	"sync"

	"github.com/delta10/wfs-filter-proxy/internal/ogc"
	"github.com/delta10/wfs-filter-proxy/internal/ows"
)

// Unbounded is the upper bound of a feature without a maximum.
const Unbounded = -1

type FeatureKind int

const (
	AttributeFeature FeatureKind = iota
	ElementFeature
	// GroupFeature is an ordered choice of elements, kept as a tagged union.
	GroupFeature
	// TransientFeature is held in memory only and never serialized.
	TransientFeature
)

func (k FeatureKind) String() string {
	switch k {
	case AttributeFeature:
		return "attribute"
	case ElementFeature:
		return "element"
	case GroupFeature:
		return "group"
	case TransientFeature:
		return "transient"
	}
	return "unknown"
}

// Feature describes one attribute or element of a Class.
type Feature struct {
	Name        string
	XMLName     xml.Name
	Kind        FeatureKind
	Type        string
	Default     string
	Lower       int
	Upper       int
	Unsettable  bool
	Containment bool
}

func (f *Feature) Many() bool {
	return f.Upper == Unbounded || f.Upper > 1
}

func (f *Feature) Required() bool {
	return f.Lower > 0
}

// Class describes a complex type of the schema. Element is the document
// root element of the class, if it has one.
type Class struct {
	Kind     Kind
	Name     string
	Abstract bool
	Super    *Class
	// SuperName names a supertype defined outside this package.
	SuperName string
	Element   xml.Name
	Features  []*Feature
}

// AllFeatures returns the features of the class and its supertypes,
// supertype features first.
func (c *Class) AllFeatures() []*Feature {
	if c.Super == nil {
		return c.Features
	}
	return append(append([]*Feature{}, c.Super.AllFeatures()...), c.Features...)
}

func (c *Class) Feature(name string) *Feature {
	for _, f := range c.AllFeatures() {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Package is the static description of the WFS schema.
type Package struct {
	Name      string
	NsURI     string
	NsPrefix  string
	Classes   []*Class
	DataTypes []DataType

	byName    map[string]*Class
	byElement map[xml.Name]*Feature
}

var (
	schemaOnce sync.Once
	schema     *Package
)

// Schema returns the package description. It is built on first use and
// shared afterwards.
func Schema() *Package {
	schemaOnce.Do(func() {
		schema = buildSchema()
	})
	return schema
}

func (p *Package) Class(kind Kind) *Class {
	if kind <= KindUnknown || kind >= kindCount {
		return nil
	}
	return p.Classes[kind-1]
}

func (p *Package) ClassByName(name string) *Class {
	return p.byName[name]
}

// RootElement returns the document root feature for an element name.
func (p *Package) RootElement(name xml.Name) *Feature {
	return p.byElement[name]
}

// KindOfElement returns the class of a document root element. Elements
// with simple content, such as LockId, report KindUnknown and true.
func (p *Package) KindOfElement(name xml.Name) (Kind, bool) {
	f := p.byElement[name]
	if f == nil {
		return KindUnknown, false
	}
	if c := p.byName[f.Type]; c != nil {
		return c.Kind, true
	}
	return KindUnknown, true
}

func attr(name, typ string) *Feature {
	return &Feature{Name: name, XMLName: xml.Name{Local: name}, Kind: AttributeFeature, Type: typ, Upper: 1}
}

func elem(space, local, typ string, lower, upper int) *Feature {
	return &Feature{
		Name:    strings.ToLower(local[:1]) + local[1:],
		XMLName: xml.Name{Space: space, Local: local},
		Kind:    ElementFeature,
		Type:    typ,
		Lower:   lower,
		Upper:   upper,
	}
}

func group(name, typ string) *Feature {
	return &Feature{Name: name, Kind: GroupFeature, Type: typ, Upper: Unbounded, Containment: true}
}

func transient(name, typ string) *Feature {
	return &Feature{Name: name, Kind: TransientFeature, Type: typ, Upper: 1}
}

func (f *Feature) required() *Feature {
	f.Lower = 1
	return f
}

func (f *Feature) defaults(v string) *Feature {
	f.Default, f.Unsettable = v, true
	return f
}

func (f *Feature) unsettable() *Feature {
	f.Unsettable = true
	return f
}

func (f *Feature) contained() *Feature {
	f.Containment = true
	return f
}

func wfsElem(local, typ string, lower, upper int) *Feature {
	return elem(Namespace, local, typ, lower, upper)
}

func buildSchema() *Package {
	p := &Package{
		Name:     "wfs",
		NsURI:    Namespace,
		NsPrefix: "wfs",
		Classes:  make([]*Class, kindCount-1),
		DataTypes: []DataType{
			DataTypeAllSome, DataTypeResultType, DataTypeIdentifierGeneration, DataTypeOperationType,
			DataTypeServiceType, DataTypeFormatType, DataTypeTypeType, DataTypeQName,
			DataTypeTypeNameList, DataTypeURI, DataTypeCalendar,
		},
		byName:    map[string]*Class{},
		byElement: map[xml.Name]*Feature{},
	}

	class := func(kind Kind, features ...*Feature) *Class {
		c := &Class{Kind: kind, Name: kind.String(), Features: features}
		p.Classes[kind-1] = c
		p.byName[c.Name] = c
		return c
	}

	class(KindAction,
		wfsElem("Message", "string", 0, 1),
		attr("code", "string"),
		attr("locator", "string").required(),
	)
	base := class(KindBaseRequest,
		attr("handle", "string"),
		attr("service", "ServiceType").defaults(Service),
		attr("version", "string").defaults(Version),
		transient("baseUrl", "string"),
		transient("providedVersion", "string"),
		transient("extendedProperties", "Map"),
	)
	base.Abstract = true
	class(KindDelete,
		elem(ogc.Namespace, "Filter", "Filter", 1, 1),
		attr("handle", "string"),
		attr("typeName", "QName").required(),
	)
	class(KindDescribeFeatureType,
		wfsElem("TypeName", "QName", 0, Unbounded),
		attr("outputFormat", "string").defaults(DefaultOutputFormat),
	).Super = base
	class(KindFeatureCollection,
		elem(GMLNamespace, "featureMember", "FeatureCollection", 0, Unbounded),
		attr("lockId", "string"),
		attr("timeStamp", "Calendar"),
		attr("numberOfFeatures", "nonNegativeInteger"),
	).SuperName = "gml:AbstractFeatureCollectionType"
	class(KindFeatureTypeList,
		wfsElem("Operations", "OperationsType", 0, 1).contained(),
		wfsElem("FeatureType", "FeatureTypeType", 1, Unbounded).contained(),
	)
	class(KindFeatureType,
		wfsElem("Name", "QName", 1, 1),
		wfsElem("Title", "string", 1, 1),
		wfsElem("Abstract", "string", 0, 1),
		elem(ows.Namespace, "Keywords", "KeywordsType", 0, Unbounded).contained(),
		wfsElem("DefaultSRS", "URI", 0, 1),
		wfsElem("OtherSRS", "URI", 0, Unbounded),
		wfsElem("NoSRS", "NoSRSType", 0, 1).contained(),
		wfsElem("Operations", "OperationsType", 0, 1).contained(),
		wfsElem("OutputFormats", "OutputFormatListType", 0, 1).contained(),
		elem(ows.Namespace, "WGS84BoundingBox", "WGS84BoundingBoxType", 1, Unbounded).contained(),
		wfsElem("MetadataURL", "MetadataURLType", 0, Unbounded).contained(),
	)
	class(KindFeaturesLocked,
		elem(ogc.Namespace, "FeatureId", "FeatureId", 0, Unbounded),
	)
	class(KindFeaturesNotLocked,
		elem(ogc.Namespace, "FeatureId", "FeatureId", 0, Unbounded),
	)
	class(KindGMLObjectTypeList,
		wfsElem("GMLObjectType", "GMLObjectTypeType", 1, Unbounded).contained(),
	)
	class(KindGMLObjectType,
		wfsElem("Name", "QName", 1, 1),
		wfsElem("Title", "string", 0, 1),
		wfsElem("Abstract", "string", 0, 1),
		elem(ows.Namespace, "Keywords", "KeywordsType", 0, Unbounded).contained(),
		wfsElem("OutputFormats", "OutputFormatListType", 0, 1).contained(),
	)
	class(KindGetCapabilities,
		elem(ows.Namespace, "AcceptVersions", "AcceptVersionsType", 0, 1).contained(),
		elem(ows.Namespace, "Sections", "SectionsType", 0, 1).contained(),
		elem(ows.Namespace, "AcceptFormats", "AcceptFormatsType", 0, 1).contained(),
		attr("updateSequence", "string"),
		attr("service", "ServiceType").defaults(Service),
	).SuperName = "ows:GetCapabilitiesType"
	getFeature := class(KindGetFeature,
		wfsElem("Query", "QueryType", 1, Unbounded).contained(),
		attr("maxFeatures", "positiveInteger"),
		attr("outputFormat", "string").defaults(DefaultOutputFormat),
		attr("resultType", "ResultTypeType").defaults(string(ResultTypeResults)),
		attr("traverseXlinkDepth", "string"),
		attr("traverseXlinkExpiry", "positiveInteger"),
		transient("formatOptions", "Map"),
		transient("metadata", "Map"),
	)
	getFeature.Super = base
	class(KindGetFeatureWithLock,
		attr("expiry", "positiveInteger").defaults("5"),
	).Super = getFeature
	class(KindGetGmlObject,
		elem(ogc.Namespace, "GmlObjectId", "GmlObjectIdType", 1, 1),
		attr("outputFormat", "string").defaults(DefaultGmlObjectOutputFormat),
		attr("traverseXlinkDepth", "string").required(),
		attr("traverseXlinkExpiry", "positiveInteger"),
	).Super = base
	class(KindInsert,
		group("feature", "FeatureCollection"),
		attr("handle", "string"),
		attr("idgen", "IdentifierGenerationOptionType").defaults(string(IDGenGenerateNew)),
		attr("inputFormat", "string").defaults(DefaultOutputFormat),
		attr("srsName", "URI"),
	)
	class(KindInsertResults,
		wfsElem("Feature", "InsertedFeatureType", 1, Unbounded).contained(),
	)
	class(KindInsertedFeature,
		elem(ogc.Namespace, "FeatureId", "FeatureId", 1, Unbounded),
		attr("handle", "string"),
	)
	class(KindLockFeatureResponse,
		wfsElem("LockId", "string", 1, 1),
		wfsElem("FeaturesLocked", "FeaturesLockedType", 0, 1).contained(),
		wfsElem("FeaturesNotLocked", "FeaturesNotLockedType", 0, 1).contained(),
	)
	class(KindLockFeature,
		wfsElem("Lock", "LockType", 1, Unbounded).contained(),
		attr("expiry", "positiveInteger").defaults("5"),
		attr("lockAction", "AllSomeType").defaults(string(AllSomeAll)),
	).Super = base
	class(KindLock,
		elem(ogc.Namespace, "Filter", "Filter", 0, 1),
		attr("handle", "string"),
		attr("typeName", "QName").required(),
	)
	class(KindMetadataURL,
		transient("value", "string"),
		attr("format", "FormatType").required(),
		attr("type", "TypeType").required(),
	)
	class(KindNative,
		attr("safeToIgnore", "boolean").required().unsettable(),
		attr("vendorId", "string").required(),
	)
	class(KindNoSRS)
	class(KindOperations,
		wfsElem("Operation", "OperationType", 1, Unbounded),
	)
	class(KindOutputFormatList,
		wfsElem("Format", "string", 1, Unbounded),
	)
	class(KindProperty,
		wfsElem("Name", "QName", 1, 1),
		wfsElem("Value", "anyType", 0, 1).contained(),
	)
	class(KindQuery,
		group("group", "QueryProperty"),
		wfsElem("PropertyName", "string", 0, Unbounded),
		wfsElem("XlinkPropertyName", "XlinkPropertyNameType", 0, Unbounded).contained(),
		elem(ogc.Namespace, "Function", "Function", 0, Unbounded),
		elem(ogc.Namespace, "Filter", "Filter", 0, 1),
		elem(ogc.Namespace, "SortBy", "SortBy", 0, 1),
		attr("featureVersion", "string"),
		attr("handle", "string"),
		attr("srsName", "URI"),
		attr("typeName", "TypeNameListType").required(),
	)
	class(KindTransactionResponse,
		wfsElem("TransactionSummary", "TransactionSummaryType", 1, 1).contained(),
		wfsElem("TransactionResults", "TransactionResultsType", 0, 1).contained(),
		wfsElem("InsertResults", "InsertResultsType", 0, 1).contained(),
		attr("version", "string").defaults(Version).required(),
	)
	class(KindTransactionResults,
		wfsElem("Action", "ActionType", 0, Unbounded).contained(),
		attr("handle", "string"),
	)
	class(KindTransactionSummary,
		wfsElem("totalInserted", "nonNegativeInteger", 0, 1),
		wfsElem("totalUpdated", "nonNegativeInteger", 0, 1),
		wfsElem("totalDeleted", "nonNegativeInteger", 0, 1),
	)
	class(KindTransaction,
		wfsElem("LockId", "string", 0, 1),
		group("group", "TransactionAction"),
		wfsElem("Insert", "InsertElementType", 0, Unbounded).contained(),
		wfsElem("Update", "UpdateElementType", 0, Unbounded).contained(),
		wfsElem("Delete", "DeleteElementType", 0, Unbounded).contained(),
		wfsElem("Native", "NativeType", 0, Unbounded).contained(),
		attr("releaseAction", "AllSomeType").defaults(string(AllSomeAll)),
	).Super = base
	class(KindUpdate,
		wfsElem("Property", "PropertyType", 1, Unbounded).contained(),
		elem(ogc.Namespace, "Filter", "Filter", 0, 1),
		attr("handle", "string"),
		attr("inputFormat", "string").defaults(DefaultUpdateInputFormat),
		attr("srsName", "URI"),
		attr("typeName", "QName").required(),
	)
	class(KindWFSCapabilities,
		wfsElem("FeatureTypeList", "FeatureTypeListType", 0, 1).contained(),
		wfsElem("ServesGMLObjectTypeList", "GMLObjectTypeListType", 0, 1).contained(),
		wfsElem("SupportsGMLObjectTypeList", "GMLObjectTypeListType", 0, 1).contained(),
		elem(ogc.Namespace, "Filter_Capabilities", "FilterCapabilities", 1, 1),
	).SuperName = "ows:CapabilitiesBaseType"
	class(KindXlinkPropertyName,
		transient("value", "string"),
		attr("traverseXlinkDepth", "string").required(),
		attr("traverseXlinkExpiry", "positiveInteger"),
	)

	roots := []*Feature{
		wfsElem("Delete", "DeleteElementType", 0, 1),
		wfsElem("DescribeFeatureType", "DescribeFeatureTypeType", 0, 1),
		wfsElem("FeatureCollection", "FeatureCollectionType", 0, 1),
		wfsElem("FeatureTypeList", "FeatureTypeListType", 0, 1),
		wfsElem("GetCapabilities", "GetCapabilitiesType", 0, 1),
		wfsElem("GetFeature", "GetFeatureType", 0, 1),
		wfsElem("GetFeatureWithLock", "GetFeatureWithLockType", 0, 1),
		wfsElem("GetGmlObject", "GetGmlObjectType", 0, 1),
		wfsElem("Insert", "InsertElementType", 0, 1),
		wfsElem("LockFeature", "LockFeatureType", 0, 1),
		wfsElem("LockFeatureResponse", "LockFeatureResponseType", 0, 1),
		wfsElem("LockId", "string", 0, 1),
		wfsElem("Native", "NativeType", 0, 1),
		wfsElem("Property", "PropertyType", 0, 1),
		wfsElem("PropertyName", "string", 0, 1),
		wfsElem("Query", "QueryType", 0, 1),
		wfsElem("ServesGMLObjectTypeList", "GMLObjectTypeListType", 0, 1),
		wfsElem("SupportsGMLObjectTypeList", "GMLObjectTypeListType", 0, 1),
		wfsElem("Transaction", "TransactionType", 0, 1),
		wfsElem("TransactionResponse", "TransactionResponseType", 0, 1),
		wfsElem("Update", "UpdateElementType", 0, 1),
		wfsElem("WFS_Capabilities", "WFS_CapabilitiesType", 0, 1),
		wfsElem("XlinkPropertyName", "XlinkPropertyNameType", 0, 1),
	}
	for _, f := range roots {
		f.Containment = true
	}
	class(KindDocumentRoot, append([]*Feature{
		transient("xMLNSPrefixMap", "Map"),
		transient("xSISchemaLocation", "Map"),
	}, roots...)...)

	for _, f := range roots {
		p.byElement[f.XMLName] = f
		if c := p.byName[f.Type]; c != nil && c.Element.Local == "" {
			c.Element = f.XMLName
		}
	}
	return p
}
