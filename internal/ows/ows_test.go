package ows

import (
	"bytes"
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExceptionError(t *testing.T) {
	err := NewException(MissingParameterValue, "request", "parameter %s is required", "REQUEST")
	assert.Equal(t, "MissingParameterValue (request): parameter REQUEST is required", err.Error())

	err = &Exception{Code: NoApplicableCode}
	assert.Equal(t, "NoApplicableCode", err.Error())
}

func TestWriteExceptionReport(t *testing.T) {
	var buf bytes.Buffer
	err := WriteExceptionReport(&buf, NewException(InvalidParameterValue, "resultType", "unknown result type"))
	require.NoError(t, err)

	var report ExceptionReport
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &report))

	assert.Equal(t, ExceptionReportVersion, report.Version)
	require.Len(t, report.Exceptions, 1)
	assert.Equal(t, InvalidParameterValue, report.Exceptions[0].Code)
	assert.Equal(t, "resultType", report.Exceptions[0].Locator)
	assert.Equal(t, []string{"unknown result type"}, report.Exceptions[0].Texts)
}

func TestCapabilitiesBaseDecode(t *testing.T) {
	doc := `<Capabilities xmlns="http://www.opengis.net/ows" xmlns:xlink="http://www.w3.org/1999/xlink" version="1.1.0">
  <ServiceIdentification>
    <Title>Demo</Title>
    <Keywords><Keyword>roads</Keyword><Keyword>rivers</Keyword></Keywords>
    <ServiceType>WFS</ServiceType>
    <ServiceTypeVersion>1.1.0</ServiceTypeVersion>
  </ServiceIdentification>
  <OperationsMetadata>
    <Operation name="GetFeature">
      <DCP><HTTP><Get xlink:href="http://example.com/wfs?"/><Post xlink:href="http://example.com/wfs"/></HTTP></DCP>
      <Parameter name="resultType"><Value>results</Value><Value>hits</Value></Parameter>
    </Operation>
  </OperationsMetadata>
</Capabilities>`

	var caps CapabilitiesBase
	require.NoError(t, xml.Unmarshal([]byte(doc), &caps))

	assert.Equal(t, "1.1.0", caps.Version)
	require.NotNil(t, caps.ServiceIdentification)
	assert.Equal(t, "WFS", caps.ServiceIdentification.ServiceType.Value)
	assert.Equal(t, []string{"roads", "rivers"}, caps.ServiceIdentification.Keywords[0].Keywords)

	require.NotNil(t, caps.OperationsMetadata)
	op := caps.OperationsMetadata.Operation("GetFeature")
	require.NotNil(t, op)
	assert.Equal(t, "http://example.com/wfs?", op.DCP[0].HTTP.Get[0].Href)
	assert.Equal(t, "http://example.com/wfs", op.DCP[0].HTTP.Post[0].Href)
	assert.Equal(t, []string{"results", "hits"}, op.Parameters[0].Values)
	assert.Nil(t, caps.OperationsMetadata.Operation("Transaction"))
}
