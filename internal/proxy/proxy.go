package proxy

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/itchyny/gojq"
	log "github.com/sirupsen/logrus"

	"github.com/delta10/wfs-filter-proxy/internal/authorization"
	"github.com/delta10/wfs-filter-proxy/internal/config"
	"github.com/delta10/wfs-filter-proxy/internal/logs"
	"github.com/delta10/wfs-filter-proxy/internal/ows"
	"github.com/delta10/wfs-filter-proxy/internal/route"
	"github.com/delta10/wfs-filter-proxy/internal/utils"
	"github.com/delta10/wfs-filter-proxy/internal/wfs"
)

const RequestIDHeader = "X-Request-Id"

// Proxy forwards the configured paths to their backends after asking the
// authorization service.
type Proxy struct {
	Config      *config.Config
	Authorizer  *authorization.Client
	LogBackends map[string]*logs.LogBackend
}

// New builds a proxy for cfg. When cfg names a JWKS URL, bearer tokens are
// verified against it for as long as ctx lives.
func New(ctx context.Context, cfg *config.Config) (*Proxy, error) {
	p := &Proxy{
		Config:      cfg,
		LogBackends: map[string]*logs.LogBackend{},
	}

	if cfg.AuthorizationServiceURL != "" {
		p.Authorizer = authorization.NewClient(cfg.AuthorizationServiceURL)
		if cfg.JwksURL != "" {
			if err := p.Authorizer.WithJWKS(ctx, cfg.JwksURL); err != nil {
				return nil, fmt.Errorf("could not load JWKS from %s: %w", cfg.JwksURL, err)
			}
		}
	}

	for slug, backend := range cfg.LogBackends {
		p.LogBackends[slug] = logs.NewLogBackend(backend)
	}

	return p, nil
}

func (p *Proxy) Router() (*mux.Router, error) {
	router := mux.NewRouter()
	for _, path := range p.Config.Paths {
		backend, ok := p.Config.Backends[path.Backend.Slug]
		if !ok {
			return nil, fmt.Errorf("could not find backend associated with path %s: %s", path.Path, path.Backend.Slug)
		}

		backendRoute, err := route.NewRouteRegexp(path.Backend.Path)
		if err != nil {
			return nil, fmt.Errorf("path %s: %w", path.Path, err)
		}

		router.Handle(path.Path, &handler{
			proxy:        p,
			path:         path,
			backend:      backend,
			backendRoute: backendRoute,
		})
	}
	return router, nil
}

type handler struct {
	proxy        *Proxy
	path         config.Path
	backend      config.Backend
	backendRoute *route.RouteRegexp
}

// exchange holds the state of one proxied request.
type exchange struct {
	w            http.ResponseWriter
	r            *http.Request
	logger       *log.Entry
	ows          *owsRequest
	filterParams map[string]any
	auth         *authorization.Response
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(RequestIDHeader)
	if _, err := uuid.Parse(requestID); err != nil {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)

	logger := log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       h.path.Path,
		"backend":    h.path.Backend.Slug,
	})
	x := &exchange{w: w, r: r, logger: logger}

	utils.DelHopHeaders(r.Header)

	if !utils.StringInSlice(r.Method, h.path.Methods()) {
		h.fail(x, http.StatusMethodNotAllowed, ows.NewException(ows.OperationNotSupported, "", "request method is not allowed"))
		return
	}

	if h.backend.IsOWS() {
		inspected, err := inspectOWS(r)
		if err != nil {
			h.fail(x, http.StatusBadRequest, err)
			return
		}
		x.ows = inspected
		x.logger = x.logger.WithFields(log.Fields{"service": inspected.Service, "request": inspected.Request})

		if h.path.ReadOnly && inspected.Writes() {
			h.fail(x, http.StatusForbidden, ows.NewException(ows.OperationNotSupported, "request", "%s is not allowed on this path", inspected.Request))
			return
		}
	} else if h.path.RequestRewrite != "" {
		filterParams, err := rewriteRequest(r, h.path.RequestRewrite)
		if err != nil {
			h.fail(x, http.StatusInternalServerError, err)
			return
		}
		x.filterParams = filterParams
	}

	if !h.authorize(x) {
		return
	}

	backendRequest, err := h.backendRequest(x)
	if err != nil {
		h.fail(x, http.StatusInternalServerError, err)
		return
	}

	client, err := h.client()
	if err != nil {
		h.fail(x, http.StatusInternalServerError, err)
		return
	}

	proxyResp, err := client.Do(backendRequest)
	if err != nil {
		h.fail(x, http.StatusBadGateway, fmt.Errorf("could not fetch backend response: %w", err))
		return
	}
	defer proxyResp.Body.Close()

	h.audit(x, proxyResp)
	h.respond(x, proxyResp)
}

func (h *handler) authorize(x *exchange) bool {
	if h.path.AllowAlways {
		return true
	}

	if h.proxy.Authorizer == nil {
		x.logger.Error("returned unauthenticated as there is no authorization service URL configured")
		h.fail(x, http.StatusInternalServerError, errors.New("unauthorized request"))
		return false
	}

	if utils.QueryParamsContainMultipleKeys(x.r.URL.Query()) {
		x.logger.Info("rejected request as query parameters contain multiple keys")
		h.fail(x, http.StatusBadRequest, errors.New("unauthorized request"))
		return false
	}

	body := map[string]any{
		"source":     h.path.Backend.Slug,
		"user_agent": x.r.Header.Get("User-Agent"),
		"ip":         utils.ReadUserIP(x.r),
	}

	switch h.backend.Type {
	case config.BackendTypeOWS:
		if !x.ows.authorizationParams(body) {
			x.logger.Infof("unauthorized service type: %s", x.ows.Service)
			h.fail(x, http.StatusUnauthorized, ows.NewException(ows.InvalidParameterValue, "service", "unauthorized service type: %s", x.ows.Service))
			return false
		}
	case config.BackendTypeWMTS:
		queryParams := utils.QueryParamsToLower(x.r.URL.Query())
		body["service"] = queryParams.Get("service")
		body["request"] = queryParams.Get("request")
		body["resource"] = queryParams.Get("layer")
		body["params"] = map[string]any{
			"service": queryParams.Get("service"),
			"request": queryParams.Get("request"),
		}
	case config.BackendTypeREST:
		body["resource"] = h.path.Backend.Path
		params := map[string]any{}
		for k, v := range x.r.URL.Query() {
			params[k] = v
		}
		for k, v := range x.filterParams {
			params[k] = v
		}
		body["params"] = params
	}

	status, response := h.proxy.Authorizer.Authorize(x.r.Context(), x.r, body)
	if status != http.StatusOK {
		h.fail(x, status, errors.New("unauthorized request"))
		return false
	}
	if !response.Result {
		h.fail(x, http.StatusUnauthorized, errors.New("result field is not true"))
		return false
	}

	if x.ows != nil && x.ows.WFS != nil {
		typeNames := x.ows.TypeNames()
		for _, name := range typeNames {
			if !response.AllowsTypeName(name) {
				x.logger.WithField("type_name", name).Info("rejected request for feature type")
				h.fail(x, http.StatusForbidden, ows.NewException(ows.InvalidParameterValue, "typeName", "access to feature type %s is not allowed", name))
				return false
			}
		}

		// Capabilities are pruned instead; any other request must name its types.
		_, capabilities := x.ows.WFS.(*wfs.GetCapabilities)
		if response.AllowedTypeNames != nil && len(typeNames) == 0 && !capabilities {
			x.logger.Info("rejected request without feature type")
			h.fail(x, http.StatusForbidden, ows.NewException(ows.MissingParameterValue, "typeName", "%s must name the feature types it accesses", x.ows.Request))
			return false
		}
	}

	x.auth = response
	return true
}

func (h *handler) backendRequest(x *exchange) (*http.Request, error) {
	parsedRequestPath, err := h.backendRoute.URL(mux.Vars(x.r))
	if err != nil {
		return nil, fmt.Errorf("could not parse request URL: %w", err)
	}

	backendBaseURL, err := url.Parse(h.backend.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse backend URL: %w", err)
	}

	fullBackendURL := backendBaseURL.JoinPath(parsedRequestPath)
	fullBackendURL.RawQuery = x.r.URL.Query().Encode()

	var body io.Reader
	contentType := ""
	switch {
	case len(x.filterParams) > 0:
		backendRequestBody, err := json.MarshalIndent(x.filterParams, "", "    ")
		if err != nil {
			return nil, fmt.Errorf("could not marshal json: %w", err)
		}
		body, contentType = bytes.NewReader(backendRequestBody), "application/json"
	case x.ows != nil && x.ows.Body != nil:
		body, contentType = bytes.NewReader(x.ows.Body), x.r.Header.Get("Content-Type")
	case x.r.Method != http.MethodGet && x.r.Method != http.MethodHead:
		body, contentType = x.r.Body, x.r.Header.Get("Content-Type")
	}

	backendRequest, err := http.NewRequestWithContext(x.r.Context(), x.r.Method, fullBackendURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("could not construct backend request: %w", err)
	}
	if contentType != "" {
		backendRequest.Header.Set("Content-Type", contentType)
	}

	if h.backend.Auth.Basic.Username != "" && h.backend.Auth.Basic.Password != "" {
		backendRequest.SetBasicAuth(h.backend.Auth.Basic.Username, utils.EnvSubst(h.backend.Auth.Basic.Password))
	}

	for headerKey, headerValue := range h.backend.Auth.Header {
		backendRequest.Header.Set(headerKey, utils.EnvSubst(headerValue))
	}

	return backendRequest, nil
}

func (h *handler) client() (*http.Client, error) {
	tlsConfig := &tls.Config{}
	if h.backend.Auth.TLS.RootCertificates != "" {
		rootCertificates, err := os.ReadFile(h.backend.Auth.TLS.RootCertificates)
		if err != nil {
			return nil, fmt.Errorf("could not retrieve root certs for backend: %w", err)
		}

		roots := x509.NewCertPool()
		if !roots.AppendCertsFromPEM(rootCertificates) {
			return nil, errors.New("could not load root certs for backend")
		}
		tlsConfig.RootCAs = roots
	}

	if h.backend.Auth.TLS.Certificate != "" && h.backend.Auth.TLS.Key != "" {
		cert, err := tls.LoadX509KeyPair(h.backend.Auth.TLS.Certificate, h.backend.Auth.TLS.Key)
		if err != nil {
			return nil, fmt.Errorf("could not load TLS keypair for backend: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return &http.Client{
		Timeout:   25 * time.Second,
		Transport: &http.Transport{TLSClientConfig: tlsConfig},
	}, nil
}

// audit pushes successful WFS transactions to the log backend of the path.
func (h *handler) audit(x *exchange, resp *http.Response) {
	if x.ows == nil || resp.StatusCode != http.StatusOK || h.path.LogBackend == "" {
		return
	}
	transaction, ok := x.ows.WFS.(*wfs.Transaction)
	if !ok {
		return
	}

	logBackend, ok := h.proxy.LogBackends[h.path.LogBackend]
	if !ok {
		x.logger.Errorf("could not find log backend %s", h.path.LogBackend)
		return
	}

	line := utils.GetTransactionMetadata(x.ows.Document, transaction).Line()
	line["ip"] = utils.ReadUserIP(x.r)
	line["request_id"] = x.w.Header().Get(RequestIDHeader)

	labels := map[string]string{
		"source":  h.path.Backend.Slug,
		"service": wfs.Service,
		"request": transaction.RequestName(),
	}

	if err := logBackend.WriteLog(x.r.Context(), labels, line); err != nil {
		x.logger.WithError(err).Error("could not write transaction log")
	}
}

func (h *handler) respond(x *exchange, proxyResp *http.Response) {
	if proxyResp.StatusCode == http.StatusOK && x.ows != nil && x.auth != nil && x.auth.AllowedTypeNames != nil {
		if _, ok := x.ows.WFS.(*wfs.GetCapabilities); ok {
			h.respondCapabilities(x, proxyResp)
			return
		}
	}

	responseRewrite := h.path.ResponseRewrite
	if x.auth != nil && x.auth.ResponseFilter != "" {
		responseRewrite = x.auth.ResponseFilter
	}

	if proxyResp.StatusCode == http.StatusOK && x.ows == nil && responseRewrite != "" {
		h.respondRewritten(x, proxyResp, responseRewrite)
		return
	}

	utils.DelHopHeaders(proxyResp.Header)
	utils.CopyHeader(x.w.Header(), proxyResp.Header)
	x.w.WriteHeader(proxyResp.StatusCode)
	io.Copy(x.w, proxyResp.Body)
}

func (h *handler) respondCapabilities(x *exchange, proxyResp *http.Response) {
	body, err := io.ReadAll(proxyResp.Body)
	if err != nil {
		h.fail(x, http.StatusBadGateway, fmt.Errorf("could not read backend response: %w", err))
		return
	}

	pruned, removed, err := pruneCapabilities(body, x.auth.AllowsTypeName)
	if err != nil {
		h.fail(x, http.StatusBadGateway, fmt.Errorf("could not parse capabilities: %w", err))
		return
	}
	if pruned == nil {
		pruned = body
	}
	x.logger.WithField("removed", removed).Debug("filtered feature types from capabilities")

	utils.DelHopHeaders(proxyResp.Header)
	proxyResp.Header.Del("Content-Length")
	utils.CopyHeader(x.w.Header(), proxyResp.Header)
	x.w.WriteHeader(http.StatusOK)
	x.w.Write(pruned)
}

func (h *handler) respondRewritten(x *exchange, proxyResp *http.Response, filter string) {
	body, err := io.ReadAll(proxyResp.Body)
	if err != nil {
		h.fail(x, http.StatusBadGateway, fmt.Errorf("could not read backend response: %w", err))
		return
	}

	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		h.fail(x, http.StatusBadGateway, fmt.Errorf("could not parse backend response: %w", err))
		return
	}

	values, err := runQuery(filter, result)
	if err != nil {
		h.fail(x, http.StatusInternalServerError, err)
		return
	}

	x.w.Header().Set("Content-Type", "application/json")
	for _, v := range values {
		response, err := json.MarshalIndent(v, "", "    ")
		if err != nil {
			h.fail(x, http.StatusInternalServerError, errors.New("could not marshal json"))
			return
		}
		x.w.Write(response)
	}
}

// rewriteRequest runs the request rewrite of a path over the JSON body of r.
// The last object the query produces becomes the backend request body.
func rewriteRequest(r *http.Request, filter string) (map[string]any, error) {
	var result map[string]any
	if r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			return nil, fmt.Errorf("could not read request body: %w", err)
		}
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &result); err != nil {
				return nil, fmt.Errorf("could not parse request body: %w", err)
			}
		}
	}

	values, err := runQuery(filter, result)
	if err != nil {
		return nil, err
	}

	var filterParams map[string]any
	for _, v := range values {
		if m, ok := v.(map[string]any); ok {
			filterParams = m
		}
	}
	return filterParams, nil
}

// runQuery evaluates a jq filter and returns every value it produces.
// Evaluation errors are skipped.
func runQuery(filter string, input any) ([]any, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("could not parse filter: %w", err)
	}

	var values []any
	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if _, ok := v.(error); ok {
			continue
		}
		values = append(values, v)
	}
	return values, nil
}

// fail writes an ows:ExceptionReport for OWS backends and a JSON message
// otherwise.
func (h *handler) fail(x *exchange, statusCode int, err error) {
	x.logger.WithField("status", statusCode).WithError(err).Info("request failed")

	if h.backend.IsOWS() {
		var exception *ows.Exception
		if !errors.As(err, &exception) {
			exception = ows.NewException(ows.NoApplicableCode, "", "%s", err)
		}
		x.w.Header().Set("Content-Type", "application/xml")
		x.w.WriteHeader(statusCode)
		if err := ows.WriteExceptionReport(x.w, exception); err != nil {
			x.logger.WithError(err).Error("could not write exception report")
		}
		return
	}

	writeError(x.w, statusCode, err.Error())
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	jsonResp, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		log.WithError(err).Error("could not marshal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(jsonResp)
}
