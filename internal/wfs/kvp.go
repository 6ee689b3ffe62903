package wfs

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/delta10/wfs-filter-proxy/internal/ogc"
	"github.com/delta10/wfs-filter-proxy/internal/ows"
)

// kvp holds the parameters of a key-value-pair request with upper case
// keys.
type kvp map[string]string

var knownKeys = map[string]bool{
	"SERVICE": true, "REQUEST": true, "VERSION": true, "HANDLE": true,
	"ACCEPTVERSIONS": true, "SECTIONS": true, "ACCEPTFORMATS": true, "UPDATESEQUENCE": true,
	"TYPENAME": true, "TYPENAMES": true, "OUTPUTFORMAT": true, "PROPERTYNAME": true,
	"FEATUREID": true, "FEATUREVERSION": true, "MAXFEATURES": true, "RESULTTYPE": true,
	"SRSNAME": true, "SORTBY": true, "FILTER": true, "BBOX": true, "EXPIRY": true,
	"LOCKACTION": true, "TRAVERSEXLINKDEPTH": true, "TRAVERSEXLINKEXPIRY": true,
	"GMLOBJECTID": true, "FORMAT_OPTIONS": true,
}

// ParseKVP decodes a key-value-pair encoded WFS request. Keys are matched
// case-insensitively and may appear only once. Failures are returned as
// *ows.Exception.
func ParseKVP(values url.Values) (Request, error) {
	params := kvp{}
	for key, v := range values {
		upper := strings.ToUpper(key)
		if _, seen := params[upper]; seen || len(v) > 1 {
			return nil, ows.NewException(ows.InvalidParameterValue, strings.ToLower(key), "parameter %s is given more than once", upper)
		}
		if len(v) > 0 {
			params[upper] = v[0]
		}
	}

	name, ok := params.get("REQUEST")
	if !ok {
		return nil, ows.NewException(ows.MissingParameterValue, "request", "missing REQUEST parameter")
	}
	if service, ok := params.get("SERVICE"); ok && !strings.EqualFold(service, Service) {
		return nil, ows.NewException(ows.InvalidParameterValue, "service", "unsupported service %q", service)
	}

	switch strings.ToLower(name) {
	case "getcapabilities":
		return params.getCapabilities(), nil
	case "describefeaturetype":
		r, err := params.describeFeatureType()
		if err != nil {
			return nil, err
		}
		return r, nil
	case "getfeature":
		r := NewGetFeature()
		if err := params.featureRequest(&r.FeatureRequest); err != nil {
			return nil, err
		}
		return r, nil
	case "getfeaturewithlock":
		r := NewGetFeatureWithLock()
		if err := params.featureRequest(&r.FeatureRequest); err != nil {
			return nil, err
		}
		if err := params.positive("EXPIRY", &r.Expiry); err != nil {
			return nil, err
		}
		return r, nil
	case "lockfeature":
		r, err := params.lockFeature()
		if err != nil {
			return nil, err
		}
		return r, nil
	case "getgmlobject":
		r, err := params.getGmlObject()
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, ows.NewException(ows.OperationNotSupported, "request", "request %q is not supported", name)
}

func (p kvp) get(key string) (string, bool) {
	v, ok := p[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (p kvp) base(b *BaseRequest) {
	if v, ok := p.get("SERVICE"); ok {
		b.Service.Set(strings.ToUpper(v))
	}
	if v, ok := p.get("VERSION"); ok {
		b.Version.Set(v)
		b.ProvidedVersion = v
	}
	if v, ok := p.get("HANDLE"); ok {
		b.Handle = v
	}
	for key, v := range p {
		if !knownKeys[key] {
			b.SetExtendedProperty(key, v)
		}
	}
}

func (p kvp) getCapabilities() *GetCapabilities {
	r := NewGetCapabilities()
	if v, ok := p.get("SERVICE"); ok {
		r.Service.Set(strings.ToUpper(v))
	}
	if v, ok := p.get("ACCEPTVERSIONS"); ok {
		r.AcceptVersions = &ows.AcceptVersions{Versions: splitList(v)}
	}
	if v, ok := p.get("SECTIONS"); ok {
		r.Sections = &ows.Sections{Sections: splitList(v)}
	}
	if v, ok := p.get("ACCEPTFORMATS"); ok {
		r.AcceptFormats = &ows.AcceptFormats{OutputFormats: splitList(v)}
	}
	if v, ok := p.get("UPDATESEQUENCE"); ok {
		r.UpdateSequence = v
	}
	return r
}

func (p kvp) describeFeatureType() (*DescribeFeatureType, error) {
	r := NewDescribeFeatureType()
	p.base(&r.BaseRequest)
	if v, ok := p.typeNames(); ok {
		names, err := parseQNames(splitList(v))
		if err != nil {
			return nil, err
		}
		r.TypeName = names
	}
	if v, ok := p.get("OUTPUTFORMAT"); ok {
		r.OutputFormat.Set(v)
	}
	return r, nil
}

func (p kvp) featureRequest(r *FeatureRequest) error {
	p.base(&r.BaseRequest)

	queries, err := p.queries()
	if err != nil {
		return err
	}
	r.Queries = queries

	if v, ok := p.get("OUTPUTFORMAT"); ok {
		r.OutputFormat.Set(v)
	}
	if v, ok := p.get("RESULTTYPE"); ok {
		resultType, err := ParseResultType(v)
		if err != nil {
			return ows.NewException(ows.InvalidParameterValue, "resultType", "%v", err)
		}
		r.ResultType.Set(resultType)
	}
	if r.MaxFeatures, err = p.positivePointer("MAXFEATURES"); err != nil {
		return err
	}
	if r.TraverseXlinkExpiry, err = p.positivePointer("TRAVERSEXLINKEXPIRY"); err != nil {
		return err
	}
	if v, ok := p.get("TRAVERSEXLINKDEPTH"); ok {
		r.TraverseXlinkDepth = v
	}
	if v, ok := p.get("FORMAT_OPTIONS"); ok {
		for _, option := range strings.Split(v, ";") {
			key, value, _ := strings.Cut(option, ":")
			if key = strings.TrimSpace(key); key != "" {
				r.SetFormatOption(strings.ToUpper(key), strings.TrimSpace(value))
			}
		}
	}
	return nil
}

// queries builds the queries of a GetFeature request from TYPENAME,
// FEATUREID, FILTER, BBOX, PROPERTYNAME, SRSNAME, SORTBY and FEATUREVERSION.
func (p kvp) queries() ([]*Query, error) {
	typeNames, hasTypeNames := p.typeNames()
	featureIDs, hasFeatureIDs := p.get("FEATUREID")
	filters, hasFilter := p.get("FILTER")
	bbox, hasBBox := p.get("BBOX")

	exclusive := 0
	for _, has := range []bool{hasFeatureIDs, hasFilter, hasBBox} {
		if has {
			exclusive++
		}
	}
	if exclusive > 1 {
		return nil, ows.NewException(ows.InvalidParameterValue, "filter", "FEATUREID, FILTER and BBOX are mutually exclusive")
	}

	var queries []*Query
	switch {
	case hasTypeNames:
		groups := splitGroups(typeNames)
		if len(groups) == 1 && !strings.HasPrefix(typeNames, "(") {
			groups = nil
			for _, name := range splitList(typeNames) {
				groups = append(groups, []string{name})
			}
		}
		for _, group := range groups {
			names, err := parseQNames(group)
			if err != nil {
				return nil, err
			}
			if len(names) == 0 {
				return nil, ows.NewException(ows.InvalidParameterValue, "typeName", "empty type name list in %q", typeNames)
			}
			queries = append(queries, NewQuery(names...))
		}
	case hasFeatureIDs:
		for _, fid := range splitList(featureIDs) {
			typeName := fidTypeName(fid)
			if typeName == "" {
				return nil, ows.NewException(ows.InvalidParameterValue, "featureId", "cannot derive a type name from feature id %q", fid)
			}
			if findQuery(queries, typeName) == nil {
				queries = append(queries, NewQuery(ParseQName(typeName)))
			}
		}
	default:
		return nil, ows.NewException(ows.MissingParameterValue, "typeName", "missing TYPENAME parameter")
	}

	switch {
	case hasFeatureIDs:
		fids := splitList(featureIDs)
		for _, q := range queries {
			var selected []string
			for _, fid := range fids {
				if t := fidTypeName(fid); t == "" || t == q.TypeName[0].Local || t == q.TypeName[0].String() {
					selected = append(selected, fid)
				}
			}
			if len(selected) == 0 {
				selected = fids
			}
			q.Filter = ogc.NewFeatureIDFilter(selected...)
		}
	case hasFilter:
		groups := splitFilters(filters)
		if len(groups) != 1 && len(groups) != len(queries) {
			return nil, ows.NewException(ows.InvalidParameterValue, "filter", "%d filters given for %d queries", len(groups), len(queries))
		}
		for i, q := range queries {
			s := groups[0]
			if len(groups) > 1 {
				s = groups[i]
			}
			f, err := ogc.ParseFilter(s)
			if err != nil {
				return nil, ows.NewException(ows.InvalidParameterValue, "filter", "%v", err)
			}
			q.Filter = f
		}
	case hasBBox:
		f, err := parseBBox(bbox)
		if err != nil {
			return nil, err
		}
		for _, q := range queries {
			filter := *f
			q.Filter = &filter
		}
	}

	if v, ok := p.get("PROPERTYNAME"); ok {
		groups := splitGroups(v)
		if len(groups) != 1 && len(groups) != len(queries) {
			return nil, ows.NewException(ows.InvalidParameterValue, "propertyName", "%d property lists given for %d queries", len(groups), len(queries))
		}
		for i, q := range queries {
			group := groups[0]
			if len(groups) > 1 {
				group = groups[i]
			}
			for _, name := range group {
				q.AddPropertyName(name)
			}
		}
	}

	var sortBy *ogc.SortBy
	if v, ok := p.get("SORTBY"); ok {
		var err error
		if sortBy, err = ogc.ParseSortBy(v); err != nil {
			return nil, ows.NewException(ows.InvalidParameterValue, "sortBy", "%v", err)
		}
	}
	srsName, _ := p.get("SRSNAME")
	featureVersion, _ := p.get("FEATUREVERSION")
	for _, q := range queries {
		q.SRSName = srsName
		q.FeatureVersion = featureVersion
		q.SortBy = sortBy
	}
	return queries, nil
}

func (p kvp) lockFeature() (*LockFeature, error) {
	r := NewLockFeature()
	p.base(&r.BaseRequest)

	queries, err := p.queries()
	if err != nil {
		return nil, err
	}
	for _, q := range queries {
		for _, name := range q.TypeName {
			lock := &Lock{TypeName: name}
			if q.Filter != nil {
				filter := *q.Filter
				lock.Filter = &filter
			}
			r.Locks = append(r.Locks, lock)
		}
	}

	if err := p.positive("EXPIRY", &r.Expiry); err != nil {
		return nil, err
	}
	if v, ok := p.get("LOCKACTION"); ok {
		action, err := ParseAllSome(strings.ToUpper(v))
		if err != nil {
			return nil, ows.NewException(ows.InvalidParameterValue, "lockAction", "%v", err)
		}
		r.LockAction.Set(action)
	}
	return r, nil
}

func (p kvp) getGmlObject() (*GetGmlObject, error) {
	r := NewGetGmlObject()
	p.base(&r.BaseRequest)

	id, ok := p.get("GMLOBJECTID")
	if !ok {
		return nil, ows.NewException(ows.MissingParameterValue, "gmlObjectId", "missing GMLOBJECTID parameter")
	}
	r.GmlObjectID = ogc.GmlObjectID{ID: id}

	depth, ok := p.get("TRAVERSEXLINKDEPTH")
	if !ok {
		return nil, ows.NewException(ows.MissingParameterValue, "traverseXlinkDepth", "missing TRAVERSEXLINKDEPTH parameter")
	}
	r.TraverseXlinkDepth = depth

	var err error
	if r.TraverseXlinkExpiry, err = p.positivePointer("TRAVERSEXLINKEXPIRY"); err != nil {
		return nil, err
	}
	if v, ok := p.get("OUTPUTFORMAT"); ok {
		r.OutputFormat.Set(v)
	}
	return r, nil
}

func (p kvp) typeNames() (string, bool) {
	if v, ok := p.get("TYPENAME"); ok {
		return v, true
	}
	return p.get("TYPENAMES")
}

func (p kvp) positive(key string, dst *Optional[uint64]) error {
	n, err := p.positivePointer(key)
	if err != nil {
		return err
	}
	if n != nil {
		dst.Set(*n)
	}
	return nil
}

func (p kvp) positivePointer(key string) (*uint64, error) {
	v, ok := p.get(key)
	if !ok {
		return nil, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil || n == 0 {
		return nil, ows.NewException(ows.InvalidParameterValue, strings.ToLower(key), "%s must be a positive integer, got %q", key, v)
	}
	return &n, nil
}

func parseQNames(names []string) ([]QName, error) {
	qnames := make([]QName, 0, len(names))
	for _, name := range names {
		v, err := CreateFromString(DataTypeQName, name)
		if err != nil {
			return nil, ows.NewException(ows.InvalidParameterValue, "typeName", "%v", err)
		}
		qnames = append(qnames, v.(QName))
	}
	return qnames, nil
}

func parseBBox(s string) (*ogc.Filter, error) {
	fields := splitList(s)
	if len(fields) != 4 && len(fields) != 5 {
		return nil, ows.NewException(ows.InvalidParameterValue, "bbox", "BBOX needs four coordinates and an optional CRS, got %q", s)
	}
	var coords [4]float64
	for i := range coords {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, ows.NewException(ows.InvalidParameterValue, "bbox", "invalid coordinate %q", fields[i])
		}
		coords[i] = v
	}
	var srsName string
	if len(fields) == 5 {
		srsName = fields[4]
	}
	return ogc.NewBBoxFilter([2]float64{coords[0], coords[1]}, [2]float64{coords[2], coords[3]}, srsName), nil
}

// fidTypeName returns the type name prefix of a feature id such as
// "roads.12".
func fidTypeName(fid string) string {
	if i := strings.LastIndexByte(fid, '.'); i > 0 {
		return fid[:i]
	}
	return ""
}

func findQuery(queries []*Query, typeName string) *Query {
	for _, q := range queries {
		if q.TypeName.String() == typeName {
			return q
		}
	}
	return nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// splitGroups parses "(a,b)(c)" into [[a b] [c]]. A value without
// parentheses is a single group.
func splitGroups(s string) [][]string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") {
		return [][]string{splitList(s)}
	}
	var groups [][]string
	for _, group := range strings.Split(strings.TrimSuffix(strings.TrimPrefix(s, "("), ")"), ")(") {
		groups = append(groups, splitList(group))
	}
	return groups
}

func splitFilters(s string) []string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") {
		return []string{s}
	}
	return strings.Split(strings.TrimSuffix(strings.TrimPrefix(s, "("), ")"), ")(")
}
