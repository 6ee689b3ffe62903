package utils

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delta10/wfs-filter-proxy/internal/wfs"
)

func TestQueryParams(t *testing.T) {
	values := url.Values{"SERVICE": {"WFS"}, "typeName": {"topp:roads"}}
	lower := QueryParamsToLower(values)
	assert.Equal(t, "WFS", lower.Get("service"))
	assert.Equal(t, "topp:roads", lower.Get("typename"))
	assert.False(t, QueryParamsContainMultipleKeys(values))

	values.Set("TYPENAME", "topp:rivers")
	assert.True(t, QueryParamsContainMultipleKeys(values))
	assert.True(t, QueryParamsContainMultipleKeys(url.Values{"a": {"1", "2"}}))
}

func TestEnvSubst(t *testing.T) {
	t.Setenv("FILTER_PROXY_SECRET", "s3cret")
	assert.Equal(t, "Bearer s3cret", EnvSubst("Bearer ${FILTER_PROXY_SECRET}"))
	assert.Equal(t, "x--y", EnvSubst("x-${FILTER_PROXY_UNSET_VARIABLE}-y"))
}

func TestReadUserIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", ReadUserIP(r))

	r.Header.Set("X-Forwarded-For", "192.168.1.5, 10.0.0.2")
	assert.Equal(t, "192.168.1.5", ReadUserIP(r))
}

func TestHeaders(t *testing.T) {
	src := http.Header{"Connection": {"close"}, "Content-Type": {"text/xml"}}
	DelHopHeaders(src)
	dst := http.Header{}
	CopyHeader(dst, src)
	assert.Equal(t, http.Header{"Content-Type": {"text/xml"}}, dst)

	assert.Equal(t, "Basic dTpw", GenerateBasicAuthHeader("u", "p"))
	assert.True(t, StringInSlice("POST", []string{"GET", "POST"}))
}

func TestGetTransactionMetadata(t *testing.T) {
	doc, err := wfs.Decode(strings.NewReader(`<wfs:Transaction handle="tx-1"
    xmlns:wfs="http://www.opengis.net/wfs"
    xmlns:ogc="http://www.opengis.net/ogc"
    xmlns:topp="http://www.openplans.org/topp">
  <wfs:LockId>lock-1</wfs:LockId>
  <wfs:Insert>
    <topp:roads><topp:name>A1</topp:name></topp:roads>
    <topp:roads><topp:name>A2</topp:name></topp:roads>
  </wfs:Insert>
  <wfs:Update typeName="topp:roads">
    <wfs:Property><wfs:Name>name</wfs:Name><wfs:Value>A3</wfs:Value></wfs:Property>
    <ogc:Filter><ogc:FeatureId fid="roads.1"/></ogc:Filter>
  </wfs:Update>
  <wfs:Delete typeName="topp:rivers">
    <ogc:Filter><ogc:FeatureId fid="rivers.1"/></ogc:Filter>
  </wfs:Delete>
</wfs:Transaction>`))
	require.NoError(t, err)

	tx, ok := doc.Element.(*wfs.Transaction)
	require.True(t, ok)

	metadata := GetTransactionMetadata(doc, tx)
	assert.Equal(t, TransactionMetadata{
		Handle:    "tx-1",
		LockID:    "lock-1",
		TypeNames: []string{"topp:roads", "topp:rivers"},
		Inserts:   2,
		Updates:   1,
		Deletes:   1,
	}, metadata)

	line := metadata.Line()
	assert.Equal(t, "tx-1", line["handle"])
	assert.Equal(t, 2, line["inserts"])
	assert.NotContains(t, line, "natives")

	assert.Equal(t, []string{"roads"}, GetTransactionMetadata(nil, tx).TypeNames[:1])
}
