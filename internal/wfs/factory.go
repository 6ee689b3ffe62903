package wfs

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	ErrInvalidClassifier = errors.New("invalid classifier")
	ErrInvalidLiteral    = errors.New("invalid literal")
	ErrUnknownElement    = errors.New("unknown element")
)

// Element is implemented by every type of the WFS model.
type Element interface {
	Kind() Kind
}

// Kind identifies a class of the WFS model.
type Kind int

const (
	KindUnknown Kind = iota
	KindAction
	KindBaseRequest
	KindDelete
	KindDescribeFeatureType
	KindDocumentRoot
	KindFeatureCollection
	KindFeatureTypeList
	KindFeatureType
	KindFeaturesLocked
	KindFeaturesNotLocked
	KindGMLObjectTypeList
	KindGMLObjectType
	KindGetCapabilities
	KindGetFeature
	KindGetFeatureWithLock
	KindGetGmlObject
	KindInsert
	KindInsertResults
	KindInsertedFeature
	KindLockFeatureResponse
	KindLockFeature
	KindLock
	KindMetadataURL
	KindNative
	KindNoSRS
	KindOperations
	KindOutputFormatList
	KindProperty
	KindQuery
	KindTransactionResponse
	KindTransactionResults
	KindTransactionSummary
	KindTransaction
	KindUpdate
	KindWFSCapabilities
	KindXlinkPropertyName

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:             "",
	KindAction:              "ActionType",
	KindBaseRequest:         "BaseRequestType",
	KindDelete:              "DeleteElementType",
	KindDescribeFeatureType: "DescribeFeatureTypeType",
	KindDocumentRoot:        "DocumentRoot",
	KindFeatureCollection:   "FeatureCollectionType",
	KindFeatureTypeList:     "FeatureTypeListType",
	KindFeatureType:         "FeatureTypeType",
	KindFeaturesLocked:      "FeaturesLockedType",
	KindFeaturesNotLocked:   "FeaturesNotLockedType",
	KindGMLObjectTypeList:   "GMLObjectTypeListType",
	KindGMLObjectType:       "GMLObjectTypeType",
	KindGetCapabilities:     "GetCapabilitiesType",
	KindGetFeature:          "GetFeatureType",
	KindGetFeatureWithLock:  "GetFeatureWithLockType",
	KindGetGmlObject:        "GetGmlObjectType",
	KindInsert:              "InsertElementType",
	KindInsertResults:       "InsertResultsType",
	KindInsertedFeature:     "InsertedFeatureType",
	KindLockFeatureResponse: "LockFeatureResponseType",
	KindLockFeature:         "LockFeatureType",
	KindLock:                "LockType",
	KindMetadataURL:         "MetadataURLType",
	KindNative:              "NativeType",
	KindNoSRS:               "NoSRSType",
	KindOperations:          "OperationsType",
	KindOutputFormatList:    "OutputFormatListType",
	KindProperty:            "PropertyType",
	KindQuery:               "QueryType",
	KindTransactionResponse: "TransactionResponseType",
	KindTransactionResults:  "TransactionResultsType",
	KindTransactionSummary:  "TransactionSummaryType",
	KindTransaction:         "TransactionType",
	KindUpdate:              "UpdateElementType",
	KindWFSCapabilities:     "WFS_CapabilitiesType",
	KindXlinkPropertyName:   "XlinkPropertyNameType",
}

func (k Kind) String() string {
	if k <= KindUnknown || k >= kindCount {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Create returns a new instance of the given class with its schema defaults
// applied. Abstract and unknown kinds are rejected.
func Create(kind Kind) (Element, error) {
	switch kind {
	case KindAction:
		return &Action{}, nil
	case KindDelete:
		return &Delete{}, nil
	case KindDescribeFeatureType:
		return NewDescribeFeatureType(), nil
	case KindDocumentRoot:
		return NewDocument(nil), nil
	case KindFeatureCollection:
		return &FeatureCollection{}, nil
	case KindFeatureTypeList:
		return &FeatureTypeList{}, nil
	case KindFeatureType:
		return &FeatureType{}, nil
	case KindFeaturesLocked:
		return &FeaturesLocked{}, nil
	case KindFeaturesNotLocked:
		return &FeaturesNotLocked{}, nil
	case KindGMLObjectTypeList:
		return &GMLObjectTypeList{}, nil
	case KindGMLObjectType:
		return &GMLObjectType{}, nil
	case KindGetCapabilities:
		return NewGetCapabilities(), nil
	case KindGetFeature:
		return NewGetFeature(), nil
	case KindGetFeatureWithLock:
		return NewGetFeatureWithLock(), nil
	case KindGetGmlObject:
		return NewGetGmlObject(), nil
	case KindInsert:
		return NewInsert(), nil
	case KindInsertResults:
		return &InsertResults{}, nil
	case KindInsertedFeature:
		return &InsertedFeature{}, nil
	case KindLockFeatureResponse:
		return &LockFeatureResponse{}, nil
	case KindLockFeature:
		return NewLockFeature(), nil
	case KindLock:
		return &Lock{}, nil
	case KindMetadataURL:
		return &MetadataURL{}, nil
	case KindNative:
		return &Native{}, nil
	case KindNoSRS:
		return &NoSRS{}, nil
	case KindOperations:
		return &Operations{}, nil
	case KindOutputFormatList:
		return &OutputFormatList{}, nil
	case KindProperty:
		return &Property{}, nil
	case KindQuery:
		return NewQuery(), nil
	case KindTransactionResponse:
		return NewTransactionResponse(), nil
	case KindTransactionResults:
		return &TransactionResults{}, nil
	case KindTransactionSummary:
		return &TransactionSummary{}, nil
	case KindTransaction:
		return NewTransaction(), nil
	case KindUpdate:
		return NewUpdate(), nil
	case KindWFSCapabilities:
		return NewWFSCapabilities(), nil
	case KindXlinkPropertyName:
		return &XlinkPropertyName{}, nil
	}
	return nil, fmt.Errorf("%w: %s is not a concrete class", ErrInvalidClassifier, kind)
}

// DataType identifies a simple type that has a string form.
type DataType int

const (
	DataTypeAllSome DataType = iota + 1
	DataTypeResultType
	DataTypeIdentifierGeneration
	DataTypeOperationType
	DataTypeServiceType
	DataTypeFormatType
	DataTypeTypeType
	DataTypeQName
	DataTypeTypeNameList
	DataTypeURI
	DataTypeCalendar
)

func (t DataType) String() string {
	switch t {
	case DataTypeAllSome:
		return "AllSomeType"
	case DataTypeResultType:
		return "ResultTypeType"
	case DataTypeIdentifierGeneration:
		return "IdentifierGenerationOptionType"
	case DataTypeOperationType:
		return "OperationType"
	case DataTypeServiceType:
		return "ServiceType"
	case DataTypeFormatType:
		return "FormatType"
	case DataTypeTypeType:
		return "TypeType"
	case DataTypeQName:
		return "QName"
	case DataTypeTypeNameList:
		return "TypeNameListType"
	case DataTypeURI:
		return "URI"
	case DataTypeCalendar:
		return "Calendar"
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// ParseDataType looks a data type up by its schema name.
func ParseDataType(name string) (DataType, error) {
	for t := DataTypeAllSome; t <= DataTypeCalendar; t++ {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown data type %q", ErrInvalidClassifier, name)
}

var (
	formatTypes   = []string{"text/xml", "text/html", "text/sgml", "text/plain"}
	metadataTypes = []string{"TC211", "FGDC", "19115", "19139"}
)

// CreateFromString converts the lexical form s into a value of the given
// data type.
func CreateFromString(dt DataType, s string) (any, error) {
	switch dt {
	case DataTypeAllSome:
		return ParseAllSome(s)
	case DataTypeResultType:
		return ParseResultType(s)
	case DataTypeIdentifierGeneration:
		return ParseIdentifierGeneration(s)
	case DataTypeOperationType:
		return ParseOperationType(s)
	case DataTypeServiceType:
		return s, nil
	case DataTypeFormatType:
		return oneOf(dt, s, formatTypes)
	case DataTypeTypeType:
		return oneOf(dt, s, metadataTypes)
	case DataTypeQName:
		q := ParseQName(s)
		if q.IsZero() || strings.ContainsAny(q.Local, ": \t\n") {
			return nil, fmt.Errorf("%w: %q is not a valid QName", ErrInvalidLiteral, s)
		}
		return q, nil
	case DataTypeTypeNameList:
		l := ParseTypeNameList(s)
		if len(l) == 0 {
			return nil, fmt.Errorf("%w: empty TypeNameListType", ErrInvalidLiteral)
		}
		return l, nil
	case DataTypeURI:
		u, err := url.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a valid URI", ErrInvalidLiteral, s)
		}
		return u, nil
	case DataTypeCalendar:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a valid dateTime", ErrInvalidLiteral, s)
		}
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s has no string form", ErrInvalidClassifier, dt)
}

// ConvertToString returns the lexical form of v, which must be a value of
// the given data type.
func ConvertToString(dt DataType, v any) (string, error) {
	var (
		s   string
		err error
		ok  bool
	)
	switch dt {
	case DataTypeAllSome:
		var x AllSome
		if x, ok = v.(AllSome); ok {
			var b []byte
			b, err = x.MarshalText()
			s = string(b)
		}
	case DataTypeResultType:
		var x ResultType
		if x, ok = v.(ResultType); ok {
			var b []byte
			b, err = x.MarshalText()
			s = string(b)
		}
	case DataTypeIdentifierGeneration:
		var x IdentifierGeneration
		if x, ok = v.(IdentifierGeneration); ok {
			var b []byte
			b, err = x.MarshalText()
			s = string(b)
		}
	case DataTypeOperationType:
		var x OperationType
		if x, ok = v.(OperationType); ok {
			var b []byte
			b, err = x.MarshalText()
			s = string(b)
		}
	case DataTypeServiceType, DataTypeFormatType, DataTypeTypeType:
		s, ok = v.(string)
	case DataTypeQName:
		var x QName
		if x, ok = v.(QName); ok {
			s = x.String()
		}
	case DataTypeTypeNameList:
		var x TypeNameList
		if x, ok = v.(TypeNameList); ok {
			s = x.String()
		}
	case DataTypeURI:
		var x *url.URL
		if x, ok = v.(*url.URL); ok && x != nil {
			s = x.String()
		}
	case DataTypeCalendar:
		var x time.Time
		if x, ok = v.(time.Time); ok {
			s = x.Format(time.RFC3339Nano)
		}
	default:
		return "", fmt.Errorf("%w: %s has no string form", ErrInvalidClassifier, dt)
	}
	if !ok {
		return "", fmt.Errorf("%w: %T is not a %s", ErrInvalidLiteral, v, dt)
	}
	return s, err
}

func oneOf(dt DataType, s string, literals []string) (string, error) {
	for _, l := range literals {
		if s == l {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not a valid %s", ErrInvalidLiteral, s, dt)
}
