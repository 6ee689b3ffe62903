package authorization

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func signedToken(t *testing.T, kid string, claims ClaimsWithGroups) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func verifyingClient(url string) *Client {
	client := NewClient(url)
	client.Keyfunc = keyfunc.NewGiven(map[string]keyfunc.GivenKey{
		"k1": keyfunc.NewGivenHMAC(secret),
	}).Keyfunc
	return client
}

func validClaims() ClaimsWithGroups {
	return ClaimsWithGroups{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Groups: []string{"editors"},
	}
}

func TestVerifyToken(t *testing.T) {
	client := verifyingClient("")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := client.VerifyToken(r)
	assert.ErrorIs(t, err, ErrMissingToken)

	r.Header.Set("Authorization", "Bearer "+signedToken(t, "k1", validClaims()))
	claims, err := client.VerifyToken(r)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, []string{"editors"}, claims.Groups)

	r.Header.Set("Authorization", "Bearer "+signedToken(t, "unknown", validClaims()))
	_, err = client.VerifyToken(r)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	r.Header.Set("Authorization", "Bearer "+signedToken(t, "k1", expired))
	_, err = client.VerifyToken(r)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthorize(t *testing.T) {
	var received map[string]any
	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10.1.1.1", r.Header.Get("X-Forwarded-For"))
		assert.Equal(t, "session=abc", r.Header.Get("Cookie"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`{"result": true, "allowed_type_names": ["topp:roads"]}`))
	}))
	defer service.Close()

	r := httptest.NewRequest(http.MethodGet, "/wfs", nil)
	r.Header.Set("Cookie", "session=abc")
	r.Header.Set("X-Forwarded-For", "10.1.1.1")
	r.Header.Set("Authorization", "Bearer "+signedToken(t, "k1", validClaims()))

	status, response := verifyingClient(service.URL).Authorize(context.Background(), r, map[string]any{"source": "geoserver"})
	assert.Equal(t, http.StatusOK, status)
	require.NotNil(t, response)
	assert.True(t, response.Result)
	assert.True(t, response.AllowsTypeName("topp:roads"))
	assert.False(t, response.AllowsTypeName("topp:rivers"))

	assert.Equal(t, "geoserver", received["source"])
	assert.Equal(t, "alice", received["subject"])
	assert.Equal(t, []any{"editors"}, received["groups"])
}

func TestAuthorizeRejectsInvalidToken(t *testing.T) {
	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("authorization service must not be called")
	}))
	defer service.Close()

	r := httptest.NewRequest(http.MethodGet, "/wfs", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")

	status, response := verifyingClient(service.URL).Authorize(context.Background(), r, map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Nil(t, response)
}

func TestAuthorizeServiceErrors(t *testing.T) {
	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"result": false}`))
	}))
	defer service.Close()

	r := httptest.NewRequest(http.MethodGet, "/wfs", nil)
	status, response := NewClient(service.URL).Authorize(context.Background(), r, map[string]any{})
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, response)
	assert.False(t, response.Result)

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html/>"))
	}))
	defer garbage.Close()

	status, response = NewClient(garbage.URL).Authorize(context.Background(), r, map[string]any{})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Nil(t, response)

	var nilResponse *Response
	assert.True(t, nilResponse.AllowsTypeName("anything"))
}
