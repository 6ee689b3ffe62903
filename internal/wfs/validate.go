package wfs

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/delta10/wfs-filter-proxy/internal/ogc"
)

type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Path + ": " + e.Message
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the cardinality and value constraints of the schema that
// decoding does not enforce. It also reports values contained by more than
// one parent. The result is nil or a ValidationErrors.
func Validate(e Element) error {
	if isNil(e) {
		return ValidationErrors{{Path: "Element", Message: "is nil"}}
	}
	v := &validator{seen: map[any]string{}}
	v.element(e.Kind().String(), e)
	if len(v.errs) == 0 {
		return nil
	}
	return v.errs
}

type validator struct {
	errs ValidationErrors
	seen map[any]string
}

func (v *validator) fail(path, format string, args ...interface{}) {
	v.errs = append(v.errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// contain records p as contained at path and reports false if it already
// was contained elsewhere.
func (v *validator) contain(path string, p any) bool {
	if other, ok := v.seen[p]; ok {
		v.fail(path, "shared with %s", other)
		return false
	}
	v.seen[p] = path
	return true
}

func (v *validator) positive(path, name string, n *uint64) {
	if n != nil && *n == 0 {
		v.fail(path, "%s must be a positive integer", name)
	}
}

func (v *validator) required(path, name string, missing bool) {
	if missing {
		v.fail(path, "%s is required", name)
	}
}

func (v *validator) filter(path string, f *ogc.Filter) {
	if f != nil {
		v.contain(path+"/Filter", f)
	}
}

func (v *validator) element(path string, e Element) {
	if isNil(e) {
		v.fail(path, "is nil")
		return
	}
	switch x := e.(type) {
	case *Document:
		if x.Element != nil {
			v.element(x.Name.Local, x.Element)
		}
	case *GetCapabilities, *DescribeFeatureType, *FeatureCollection, *NoSRS:
	case *GetFeature:
		v.featureRequest(path, &x.FeatureRequest)
	case *GetFeatureWithLock:
		v.featureRequest(path, &x.FeatureRequest)
		if x.Expiry.IsSet() && x.Expiry.Get() == 0 {
			v.fail(path, "expiry must be a positive integer")
		}
	case *GetGmlObject:
		v.required(path, "GmlObjectId", x.GmlObjectID.ID == "")
		v.required(path, "traverseXlinkDepth", x.TraverseXlinkDepth == "")
		v.positive(path, "traverseXlinkExpiry", x.TraverseXlinkExpiry)
	case *Query:
		v.query(path, x)
	case *XlinkPropertyName:
		v.required(path, "traverseXlinkDepth", x.TraverseXlinkDepth == "")
		v.positive(path, "traverseXlinkExpiry", x.TraverseXlinkExpiry)
	case *LockFeature:
		if len(x.Locks) == 0 {
			v.fail(path, "at least one Lock is required")
		}
		if x.Expiry.IsSet() && x.Expiry.Get() == 0 {
			v.fail(path, "expiry must be a positive integer")
		}
		for i, lock := range x.Locks {
			p := fmt.Sprintf("%s/Lock[%d]", path, i)
			if lock == nil {
				v.fail(p, "is nil")
				continue
			}
			if v.contain(p, lock) {
				v.element(p, lock)
			}
		}
	case *Lock:
		v.required(path, "typeName", x.TypeName.IsZero())
		v.filter(path, x.Filter)
	case *Transaction:
		for i, action := range x.Actions {
			p := fmt.Sprintf("%s/%s[%d]", path, actionName(action), i)
			if isNil(action) {
				v.fail(p, "is nil")
				continue
			}
			if v.contain(p, action) {
				v.element(p, action)
			}
		}
	case *Insert:
	case *Update:
		if len(x.Properties) == 0 {
			v.fail(path, "at least one Property is required")
		}
		v.required(path, "typeName", x.TypeName.IsZero())
		v.filter(path, x.Filter)
		for i := range x.Properties {
			v.element(fmt.Sprintf("%s/Property[%d]", path, i), &x.Properties[i])
		}
	case *Property:
		v.required(path, "Name", x.Name.IsZero())
		if x.Value != nil {
			v.contain(path+"/Value", x.Value)
		}
	case *Delete:
		v.required(path, "Filter", x.Filter == nil)
		v.required(path, "typeName", x.TypeName.IsZero())
		v.filter(path, x.Filter)
	case *Native:
		v.required(path, "safeToIgnore", !x.SafeToIgnore.IsSet())
		v.required(path, "vendorId", x.VendorID == "")
	case *LockFeatureResponse:
		v.required(path, "LockId", x.LockID == "")
	case *FeaturesLocked, *FeaturesNotLocked:
	case *TransactionResponse:
		if x.Results != nil {
			v.element(path+"/TransactionResults", x.Results)
		}
		if x.InsertResults != nil {
			v.element(path+"/InsertResults", x.InsertResults)
		}
	case *TransactionSummary:
	case *TransactionResults:
		for i := range x.Actions {
			v.element(fmt.Sprintf("%s/Action[%d]", path, i), &x.Actions[i])
		}
	case *Action:
		v.required(path, "locator", x.Locator == "")
	case *InsertResults:
		if len(x.Features) == 0 {
			v.fail(path, "at least one Feature is required")
		}
		for i := range x.Features {
			v.element(fmt.Sprintf("%s/Feature[%d]", path, i), &x.Features[i])
		}
	case *InsertedFeature:
		if len(x.FeatureIDs) == 0 {
			v.fail(path, "at least one FeatureId is required")
		}
	case *WFSCapabilities:
		v.required(path, "Filter_Capabilities", x.FilterCapabilities == nil)
		if x.FeatureTypeList != nil {
			v.element(path+"/FeatureTypeList", x.FeatureTypeList)
		}
		if x.ServesGMLObjectTypeList != nil {
			v.element(path+"/ServesGMLObjectTypeList", x.ServesGMLObjectTypeList)
		}
		if x.SupportsGMLObjectTypeList != nil {
			v.element(path+"/SupportsGMLObjectTypeList", x.SupportsGMLObjectTypeList)
		}
	case *FeatureTypeList:
		if len(x.FeatureTypes) == 0 {
			v.fail(path, "at least one FeatureType is required")
		}
		if x.Operations != nil {
			v.element(path+"/Operations", x.Operations)
		}
		for i := range x.FeatureTypes {
			v.element(fmt.Sprintf("%s/FeatureType[%d]", path, i), &x.FeatureTypes[i])
		}
	case *FeatureType:
		v.required(path, "Name", x.Name.IsZero())
		v.required(path, "Title", x.Title == "")
		if len(x.WGS84BoundingBox) == 0 {
			v.fail(path, "at least one WGS84BoundingBox is required")
		}
		if x.NoSRS != nil && (x.DefaultSRS != "" || len(x.OtherSRS) > 0) {
			v.fail(path, "NoSRS excludes DefaultSRS and OtherSRS")
		}
		if x.NoSRS == nil && x.DefaultSRS == "" {
			v.fail(path, "one of DefaultSRS or NoSRS is required")
		}
		if x.Operations != nil {
			v.element(path+"/Operations", x.Operations)
		}
		if x.OutputFormats != nil {
			v.element(path+"/OutputFormats", x.OutputFormats)
		}
		for i := range x.MetadataURL {
			v.element(fmt.Sprintf("%s/MetadataURL[%d]", path, i), &x.MetadataURL[i])
		}
	case *Operations:
		if len(x.Operations) == 0 {
			v.fail(path, "at least one Operation is required")
		}
		for _, op := range x.Operations {
			if _, err := ParseOperationType(string(op)); err != nil {
				v.fail(path, "%v", err)
			}
		}
	case *OutputFormatList:
		if len(x.Formats) == 0 {
			v.fail(path, "at least one Format is required")
		}
	case *MetadataURL:
		if _, err := CreateFromString(DataTypeFormatType, x.Format); err != nil {
			v.fail(path, "format: %v", err)
		}
		if _, err := CreateFromString(DataTypeTypeType, x.Type); err != nil {
			v.fail(path, "type: %v", err)
		}
	case *GMLObjectTypeList:
		if len(x.GMLObjectTypes) == 0 {
			v.fail(path, "at least one GMLObjectType is required")
		}
		for i := range x.GMLObjectTypes {
			v.element(fmt.Sprintf("%s/GMLObjectType[%d]", path, i), &x.GMLObjectTypes[i])
		}
	case *GMLObjectType:
		v.required(path, "Name", x.Name.IsZero())
		if x.OutputFormats != nil {
			v.element(path+"/OutputFormats", x.OutputFormats)
		}
	default:
		v.fail(path, "unsupported element %T", e)
	}
}

func (v *validator) featureRequest(path string, r *FeatureRequest) {
	if len(r.Queries) == 0 {
		v.fail(path, "at least one Query is required")
	}
	v.positive(path, "maxFeatures", r.MaxFeatures)
	v.positive(path, "traverseXlinkExpiry", r.TraverseXlinkExpiry)
	for i, q := range r.Queries {
		p := fmt.Sprintf("%s/Query[%d]", path, i)
		if q == nil {
			v.fail(p, "is nil")
			continue
		}
		if v.contain(p, q) {
			v.query(p, q)
		}
	}
}

func (v *validator) query(path string, q *Query) {
	if len(q.TypeName) == 0 {
		v.fail(path, "typeName is required")
	}
	v.filter(path, q.Filter)
	for i, prop := range q.Properties {
		if x, ok := prop.(*XlinkPropertyName); ok {
			p := fmt.Sprintf("%s/XlinkPropertyName[%d]", path, i)
			if v.contain(p, x) {
				v.element(p, x)
			}
		}
	}
}

// isNil reports whether v is nil or a nil pointer in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func actionName(a TransactionAction) string {
	switch a.(type) {
	case *Insert:
		return "Insert"
	case *Update:
		return "Update"
	case *Delete:
		return "Delete"
	case *Native:
		return "Native"
	}
	return "Action"
}
