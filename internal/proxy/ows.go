package proxy

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/delta10/wfs-filter-proxy/internal/ows"
	"github.com/delta10/wfs-filter-proxy/internal/utils"
	"github.com/delta10/wfs-filter-proxy/internal/wfs"
)

const maxRequestBody = 10 << 20

// owsRequest is what the proxy learned about an OGC web service request.
// WFS is set for WFS requests only; Document only for XML encoded ones.
type owsRequest struct {
	Service  string
	Request  string
	Params   url.Values
	WFS      wfs.Request
	Document *wfs.Document
	Body     []byte
}

// TypeNames returns the qualified feature type names of a WFS request.
func (o *owsRequest) TypeNames() []string {
	if o.WFS == nil {
		return nil
	}

	var names []string
	for _, name := range o.WFS.TypeNames() {
		if o.Document != nil {
			name = o.Document.Qualify(name)
		}
		if s := name.String(); !utils.StringInSlice(s, names) {
			names = append(names, s)
		}
	}
	return names
}

// Writes reports whether the request changes or locks features.
func (o *owsRequest) Writes() bool {
	switch o.WFS.(type) {
	case *wfs.Transaction, *wfs.LockFeature, *wfs.GetFeatureWithLock:
		return true
	}
	return false
}

// inspectOWS reads the request the way an OGC server would: key-value pairs
// from the query string or a form body, or an XML document in the body. The
// body is restored so it can be sent to the backend.
func inspectOWS(r *http.Request) (*owsRequest, error) {
	o := &owsRequest{Params: r.URL.Query()}

	if r.Method == http.MethodPost && r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		r.Body.Close()
		if err != nil {
			return nil, ows.NewException(ows.NoApplicableCode, "", "could not read request body: %s", err)
		}
		o.Body = body
		r.Body = io.NopCloser(bytes.NewReader(body))

		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
			form, err := url.ParseQuery(string(body))
			if err != nil {
				return nil, ows.NewException(ows.InvalidParameterValue, "", "could not parse form body: %s", err)
			}
			for key, values := range form {
				o.Params[key] = append(o.Params[key], values...)
			}
		} else if len(bytes.TrimSpace(body)) > 0 {
			return o, o.decodeDocument()
		}
	}

	if utils.QueryParamsContainMultipleKeys(o.Params) {
		return nil, ows.NewException(ows.InvalidParameterValue, "", "request parameters must not be given more than once")
	}

	params := utils.QueryParamsToLower(o.Params)
	o.Service = strings.ToUpper(params.Get("service"))
	o.Request = params.Get("request")

	if o.Service != wfs.Service {
		return o, nil
	}

	request, err := wfs.ParseKVP(o.Params)
	if err != nil {
		return nil, err
	}
	o.WFS = request
	o.Request = request.RequestName()
	return o, nil
}

func (o *owsRequest) decodeDocument() error {
	doc, err := wfs.Decode(bytes.NewReader(o.Body))
	if errors.Is(err, wfs.ErrUnknownElement) {
		return ows.NewException(ows.OperationNotSupported, "request", "%s", err)
	}
	if err != nil {
		return ows.NewException(ows.InvalidParameterValue, "request", "could not parse request body: %s", err)
	}

	request, ok := doc.Request()
	if !ok {
		return ows.NewException(ows.OperationNotSupported, "request", "%s is not a request", doc.Name.Local)
	}
	if err := wfs.Validate(request); err != nil {
		return ows.NewException(ows.InvalidParameterValue, "request", "%s", err)
	}

	o.Service = wfs.Service
	o.Request = request.RequestName()
	o.WFS = request
	o.Document = doc
	return nil
}

// authorizationParams describes the request to the authorization service.
func (o *owsRequest) authorizationParams(body map[string]any) bool {
	params := utils.QueryParamsToLower(o.Params)
	body["service"] = o.Service
	body["request"] = o.Request

	switch o.Service {
	case "WMS":
		body["resource"] = params.Get("layers") + params.Get("layer")
		body["params"] = map[string]any{
			"service":    o.Service,
			"request":    o.Request,
			"cql_filter": params.Get("cql_filter"),
		}
	case wfs.Service:
		typeNames := o.TypeNames()
		body["resource"] = strings.Join(typeNames, ",")
		body["params"] = map[string]any{
			"service":    o.Service,
			"request":    o.Request,
			"cql_filter": params.Get("cql_filter"),
			"type_names": typeNames,
		}
	default:
		return false
	}
	return true
}

// pruneCapabilities removes the feature types the client may not see from a
// WFS capabilities document. The remaining bytes are passed through as they
// are. It returns nil when body is not a capabilities document.
func pruneCapabilities(body []byte, keep func(name string) bool) ([]byte, int, error) {
	doc, err := wfs.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}

	capabilities, ok := doc.Element.(*wfs.WFSCapabilities)
	if !ok || capabilities.FeatureTypeList == nil {
		return nil, 0, nil
	}

	hidden := map[string]bool{}
	removed := capabilities.FeatureTypeList.Retain(func(ft wfs.FeatureType) bool {
		name := doc.Qualify(ft.Name).String()
		if keep(name) {
			return true
		}
		hidden[name] = true
		return false
	})
	if removed == 0 {
		return body, 0, nil
	}

	featureType := xml.Name{Space: wfs.Namespace, Local: "FeatureType"}

	var out bytes.Buffer
	var last int64
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name != featureType {
			continue
		}
		var ft wfs.FeatureType
		if err := dec.DecodeElement(&ft, &start); err != nil {
			return nil, 0, err
		}
		if hidden[doc.Qualify(ft.Name).String()] {
			out.Write(body[last:offset])
			last = dec.InputOffset()
		}
	}
	out.Write(body[last:])

	return out.Bytes(), removed, nil
}
