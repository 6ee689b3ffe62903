package authorization

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"

	"github.com/delta10/wfs-filter-proxy/internal/utils"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

type ClaimsWithGroups struct {
	jwt.RegisteredClaims
	Groups []string `json:"groups"`
}

// Response is the answer of the authorization service. AllowedTypeNames is
// nil when the service does not restrict WFS feature types.
type Response struct {
	Result           bool     `json:"result"`
	ResponseFilter   string   `json:"response_filter"`
	AllowedTypeNames []string `json:"allowed_type_names"`
}

// AllowsTypeName reports whether the response grants access to the given
// qualified type name.
func (r *Response) AllowsTypeName(name string) bool {
	if r == nil || r.AllowedTypeNames == nil {
		return true
	}
	return utils.StringInSlice(name, r.AllowedTypeNames)
}

// Client asks an external authorization service whether a request may
// be proxied.
type Client struct {
	URL        string
	HTTPClient *http.Client
	// Keyfunc verifies bearer tokens; tokens are forwarded unverified when
	// it is nil.
	Keyfunc jwt.Keyfunc
}

func NewClient(serviceURL string) *Client {
	return &Client{
		URL:        serviceURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithJWKS makes the client verify bearer tokens against the key set
// published at jwksURL. The key set is refreshed in the background until
// ctx is done.
func (c *Client) WithJWKS(ctx context.Context, jwksURL string) error {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.WithError(err).WithField("url", jwksURL).Error("could not refresh JWKS")
		},
	})
	if err != nil {
		return err
	}

	c.Keyfunc = jwks.Keyfunc
	return nil
}

// VerifyToken parses and verifies the bearer token of r.
func (c *Client) VerifyToken(r *http.Request) (*ClaimsWithGroups, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, ErrMissingToken
	}

	claims := &ClaimsWithGroups{}
	if _, err := jwt.ParseWithClaims(token, claims, c.Keyfunc); err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	return claims, nil
}

// Authorize sends body to the authorization service, forwarding the
// credentials of r. It returns the status code of the service together with
// its decoded answer.
func (c *Client) Authorize(ctx context.Context, r *http.Request, body map[string]any) (int, *Response) {
	logger := log.WithField("url", c.URL)

	if c.Keyfunc != nil {
		claims, err := c.VerifyToken(r)
		switch {
		case errors.Is(err, ErrMissingToken):
		case err != nil:
			logger.WithError(err).Info("rejected request with invalid token")
			return http.StatusUnauthorized, nil
		default:
			body["subject"] = claims.Subject
			body["groups"] = claims.Groups
		}
	}

	marshalledBody, err := json.Marshal(body)
	if err != nil {
		logger.WithError(err).Error("could not marshal authorization body")
		return http.StatusInternalServerError, nil
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, bytes.NewReader(marshalledBody))
	if err != nil {
		logger.WithError(err).Error("could not construct authorization request")
		return http.StatusInternalServerError, nil
	}

	if r.Header.Get("Cookie") != "" {
		request.Header.Set("Cookie", r.Header.Get("Cookie"))
	}
	if r.Header.Get("Authorization") != "" {
		request.Header.Set("Authorization", r.Header.Get("Authorization"))
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("X-Forwarded-For", utils.ReadUserIP(r))

	resp, err := c.HTTPClient.Do(request)
	if err != nil {
		logger.WithError(err).Error("could not fetch authorization response")
		return http.StatusInternalServerError, nil
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.WithError(err).Error("could not read authorization response")
		return http.StatusInternalServerError, nil
	}

	responseData := &Response{}
	if err := json.Unmarshal(responseBody, responseData); err != nil {
		logger.WithError(err).Error("could not unmarshal authorization response")
		return http.StatusInternalServerError, nil
	}

	if resp.StatusCode != http.StatusOK {
		logger.WithField("status", resp.StatusCode).Infof("received an authorization error: %s", responseBody)
	}

	return resp.StatusCode, responseData
}
