package wfs

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toppNamespace = "http://www.openplans.org/topp"

const transactionXML = `<?xml version="1.0" encoding="UTF-8"?>
<wfs:Transaction service="WFS" version="1.1.0" releaseAction="SOME"
    xmlns:wfs="http://www.opengis.net/wfs"
    xmlns:ogc="http://www.opengis.net/ogc"
    xmlns:gml="http://www.opengis.net/gml"
    xmlns:topp="http://www.openplans.org/topp"
    xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
    xsi:schemaLocation="http://www.opengis.net/wfs http://schemas.opengis.net/wfs/1.1.0/wfs.xsd">
  <wfs:Insert handle="ins">
    <topp:roads><topp:name>A1</topp:name></topp:roads>
  </wfs:Insert>
  <wfs:Update typeName="topp:roads">
    <wfs:Property>
      <wfs:Name>name</wfs:Name>
      <wfs:Value>A2</wfs:Value>
    </wfs:Property>
    <ogc:Filter><ogc:FeatureId fid="roads.1"/></ogc:Filter>
  </wfs:Update>
  <wfs:Delete typeName="topp:roads">
    <ogc:Filter><ogc:FeatureId fid="roads.2"/></ogc:Filter>
  </wfs:Delete>
  <wfs:Native vendorId="acme" safeToIgnore="true"><acme:vacuum xmlns:acme="urn:acme"/></wfs:Native>
</wfs:Transaction>`

const getFeatureXML = `<wfs:GetFeature service="WFS" version="1.1.0" maxFeatures="10" resultType="hits"
    xmlns:wfs="http://www.opengis.net/wfs"
    xmlns:ogc="http://www.opengis.net/ogc"
    xmlns:topp="http://www.openplans.org/topp">
  <wfs:Query typeName="topp:states topp:roads" srsName="EPSG:4326">
    <wfs:PropertyName>topp:STATE_NAME</wfs:PropertyName>
    <ogc:Function name="area"><ogc:PropertyName>the_geom</ogc:PropertyName></ogc:Function>
    <wfs:XlinkPropertyName traverseXlinkDepth="1">topp:link</wfs:XlinkPropertyName>
    <ogc:Filter>
      <ogc:PropertyIsEqualTo><ogc:PropertyName>STATE_NAME</ogc:PropertyName><ogc:Literal>Utah</ogc:Literal></ogc:PropertyIsEqualTo>
    </ogc:Filter>
    <ogc:SortBy>
      <ogc:SortProperty><ogc:PropertyName>STATE_NAME</ogc:PropertyName><ogc:SortOrder>DESC</ogc:SortOrder></ogc:SortProperty>
    </ogc:SortBy>
  </wfs:Query>
</wfs:GetFeature>`

func TestDecodeTransaction(t *testing.T) {
	doc, err := Decode(strings.NewReader(transactionXML))
	require.NoError(t, err)

	assert.Equal(t, toppNamespace, doc.Namespaces["topp"])
	assert.Equal(t, "http://schemas.opengis.net/wfs/1.1.0/wfs.xsd", doc.SchemaLocation[Namespace])

	tx, ok := doc.Element.(*Transaction)
	require.True(t, ok)
	assert.True(t, tx.ReleaseAction.IsSet())
	assert.Equal(t, AllSomeSome, tx.ReleaseAction.Get())
	assert.Equal(t, Version, tx.Version.Get())

	require.Len(t, tx.Actions, 4)
	require.IsType(t, &Insert{}, tx.Actions[0])
	require.IsType(t, &Update{}, tx.Actions[1])
	require.IsType(t, &Delete{}, tx.Actions[2])
	require.IsType(t, &Native{}, tx.Actions[3])

	insert := tx.Inserts()[0]
	assert.Equal(t, "ins", insert.ActionHandle())
	assert.False(t, insert.IDGen.IsSet())
	assert.Equal(t, IDGenGenerateNew, insert.IDGen.Get())
	require.Len(t, insert.Features, 1)
	assert.Equal(t, QName{Namespace: toppNamespace, Local: "roads"}, insert.Features[0].Name())

	update := tx.Updates()[0]
	assert.Equal(t, QName{Prefix: "topp", Local: "roads"}, update.TypeName)
	assert.Equal(t, toppNamespace, doc.Resolve(update.TypeName).Namespace)
	require.Len(t, update.Properties, 1)
	assert.Equal(t, "name", update.Properties[0].Name.Local)
	require.NotNil(t, update.Properties[0].Value)
	assert.Equal(t, "A2", update.Properties[0].Value.Content)
	assert.Equal(t, []string{"roads.1"}, update.Filter.IDs())

	assert.Equal(t, []string{"roads.2"}, tx.Deletes()[0].Filter.IDs())

	native := tx.Natives()[0]
	assert.True(t, native.SafeToIgnore.Get())
	assert.Equal(t, "acme", native.VendorID)
	assert.Contains(t, string(native.Content), "acme:vacuum")

	assert.Len(t, tx.TypeNames(), 3)

	r, ok := doc.Request()
	require.True(t, ok)
	assert.Equal(t, "Transaction", r.RequestName())

	assert.NoError(t, Validate(doc))
}

func TestTransactionRoundTrip(t *testing.T) {
	doc, err := Decode(strings.NewReader(transactionXML))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	assert.True(t, strings.HasPrefix(buf.String(), `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, buf.String(), `xmlns:topp="http://www.openplans.org/topp"`)
	assert.Contains(t, buf.String(), `xsi:schemaLocation="http://www.opengis.net/wfs http://schemas.opengis.net/wfs/1.1.0/wfs.xsd"`)

	again, err := Decode(&buf)
	require.NoError(t, err)

	tx := again.Element.(*Transaction)
	require.Len(t, tx.Actions, 4)
	assert.Equal(t, AllSomeSome, tx.ReleaseAction.Get())
	assert.Equal(t, "ins", tx.Inserts()[0].Handle)
	assert.Equal(t, "A1", tx.Inserts()[0].Features[0].Nodes[0].Content)
	assert.Equal(t, []string{"roads.1"}, tx.Updates()[0].Filter.IDs())
	assert.Equal(t, "A2", tx.Updates()[0].Properties[0].Value.Content)
	assert.Equal(t, "acme", tx.Natives()[0].VendorID)
	assert.False(t, tx.Inserts()[0].IDGen.IsSet())
	assertWellFormed(t, buf.Bytes())
}

func TestDecodeGetFeature(t *testing.T) {
	doc, err := Decode(strings.NewReader(getFeatureXML))
	require.NoError(t, err)

	r, ok := doc.Element.(*GetFeature)
	require.True(t, ok)
	require.NotNil(t, r.MaxFeatures)
	assert.Equal(t, uint64(10), *r.MaxFeatures)
	assert.Equal(t, ResultTypeHits, r.ResultType.Get())
	assert.False(t, r.OutputFormat.IsSet())

	require.Len(t, r.Queries, 1)
	q := r.Queries[0]
	assert.Equal(t, "topp:states topp:roads", q.TypeName.String())
	assert.Equal(t, "EPSG:4326", q.SRSName)
	assert.Equal(t, []string{"topp:STATE_NAME", "topp:link"}, q.PropertyNames())

	require.Len(t, q.Properties, 3)
	assert.IsType(t, &PropertyName{}, q.Properties[0])
	assert.IsType(t, &Function{}, q.Properties[1])
	assert.IsType(t, &XlinkPropertyName{}, q.Properties[2])
	assert.Equal(t, "area", q.Properties[1].(*Function).Name)
	assert.Equal(t, "1", q.Properties[2].(*XlinkPropertyName).TraverseXlinkDepth)

	require.NotNil(t, q.Filter)
	assert.Contains(t, string(q.Filter.Content), "Utah")
	require.NotNil(t, q.SortBy)
	assert.Equal(t, "STATE_NAME DESC", q.SortBy.String())

	assert.Len(t, r.TypeNames(), 2)
}

func TestGetFeatureRoundTripKeepsPropertyOrder(t *testing.T) {
	doc, err := Decode(strings.NewReader(getFeatureXML))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))

	again, err := Decode(&buf)
	require.NoError(t, err)

	q := again.Element.(*GetFeature).Queries[0]
	require.Len(t, q.Properties, 3)
	assert.IsType(t, &PropertyName{}, q.Properties[0])
	assert.IsType(t, &Function{}, q.Properties[1])
	assert.IsType(t, &XlinkPropertyName{}, q.Properties[2])
	assert.Contains(t, string(q.Filter.Content), "Utah")
}

func TestDecodeSimpleContentRoot(t *testing.T) {
	doc, err := Decode(strings.NewReader(`<LockId xmlns="http://www.opengis.net/wfs">lock-1</LockId>`))
	require.NoError(t, err)

	assert.Nil(t, doc.Element)
	assert.Equal(t, "LockId", doc.Name.Local)
	assert.Equal(t, "lock-1", doc.Value)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	assert.Contains(t, buf.String(), ">lock-1</LockId>")
}

func TestDecodeUnknownElement(t *testing.T) {
	_, err := Decode(strings.NewReader(`<GetMap xmlns="http://www.opengis.net/wms"/>`))
	assert.ErrorIs(t, err, ErrUnknownElement)

	_, err = Decode(strings.NewReader(``))
	assert.Error(t, err)
}

func TestEncodeTransactionResponse(t *testing.T) {
	resp := NewTransactionResponse()
	resp.AddInserted("ins", "roads.9")

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, NewDocument(resp)))
	assert.Contains(t, buf.String(), `version="1.1.0"`)
	assert.Contains(t, buf.String(), `>1</totalInserted>`)
	assert.Contains(t, buf.String(), `fid="roads.9"`)

	doc, err := Decode(&buf)
	require.NoError(t, err)

	decoded := doc.Element.(*TransactionResponse)
	assert.True(t, decoded.Version.IsSet())
	require.NotNil(t, decoded.Summary.TotalInserted)
	assert.Equal(t, uint64(1), *decoded.Summary.TotalInserted)
	require.NotNil(t, decoded.InsertResults)
	assert.Equal(t, "ins", decoded.InsertResults.Features[0].Handle)
	assert.Nil(t, decoded.Summary.TotalDeleted)
}

func TestCapabilitiesRetain(t *testing.T) {
	const caps = `<wfs:WFS_Capabilities version="1.1.0"
    xmlns:wfs="http://www.opengis.net/wfs" xmlns:ows="http://www.opengis.net/ows"
    xmlns:ogc="http://www.opengis.net/ogc" xmlns:topp="http://www.openplans.org/topp">
  <ows:ServiceIdentification><ows:Title>demo</ows:Title><ows:ServiceType>WFS</ows:ServiceType></ows:ServiceIdentification>
  <wfs:FeatureTypeList>
    <wfs:Operations><wfs:Operation>Query</wfs:Operation></wfs:Operations>
    <wfs:FeatureType>
      <wfs:Name>topp:states</wfs:Name><wfs:Title>States</wfs:Title><wfs:DefaultSRS>EPSG:4326</wfs:DefaultSRS>
      <ows:WGS84BoundingBox><ows:LowerCorner>-180 -90</ows:LowerCorner><ows:UpperCorner>180 90</ows:UpperCorner></ows:WGS84BoundingBox>
    </wfs:FeatureType>
    <wfs:FeatureType>
      <wfs:Name>topp:roads</wfs:Name><wfs:Title>Roads</wfs:Title><wfs:NoSRS/>
      <ows:WGS84BoundingBox><ows:LowerCorner>0 0</ows:LowerCorner><ows:UpperCorner>1 1</ows:UpperCorner></ows:WGS84BoundingBox>
    </wfs:FeatureType>
  </wfs:FeatureTypeList>
  <ogc:Filter_Capabilities><ogc:Spatial_Capabilities/></ogc:Filter_Capabilities>
</wfs:WFS_Capabilities>`

	doc, err := Decode(strings.NewReader(caps))
	require.NoError(t, err)

	c := doc.Element.(*WFSCapabilities)
	assert.Equal(t, "demo", c.ServiceIdentification.Title)
	assert.True(t, c.FeatureTypeList.Operations.Supports(OperationQuery))
	assert.False(t, c.FeatureTypeList.Operations.Supports(OperationInsert))
	require.Len(t, c.FeatureTypeList.FeatureTypes, 2)
	assert.NotNil(t, c.FeatureTypeList.FeatureTypes[1].NoSRS)
	assert.NoError(t, Validate(c))

	removed := c.FeatureTypeList.Retain(func(ft FeatureType) bool {
		return ft.Name.Local == "roads"
	})
	assert.Equal(t, 1, removed)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	assert.NotContains(t, buf.String(), "topp:states")
	assert.Contains(t, buf.String(), "topp:roads")
	assert.Contains(t, buf.String(), "Spatial_Capabilities")
}

func TestDocumentQualify(t *testing.T) {
	doc, err := Decode(strings.NewReader(transactionXML))
	require.NoError(t, err)

	insert := doc.Element.(*Transaction).Inserts()[0]
	name := insert.Features[0].Name()
	assert.Equal(t, "roads", name.String())
	assert.Equal(t, "topp:roads", doc.Qualify(name).String())
	assert.Equal(t, QName{Namespace: toppNamespace, Prefix: "topp", Local: "roads"}, doc.Resolve(ParseQName("topp:roads")))

	unknown := QName{Namespace: "urn:unknown", Local: "x"}
	assert.Equal(t, unknown, doc.Qualify(unknown))
}

// assertWellFormed fails on duplicate attributes and on element, attribute
// or typeName prefixes that are not declared in scope, which encoding/xml
// accepts when decoding.
func assertWellFormed(t *testing.T, data []byte) {
	t.Helper()

	scopes := []map[string]bool{{"xml": true, "xmlns": true}}
	bound := func(prefix string) bool {
		for i := len(scopes) - 1; i >= 0; i-- {
			if scopes[i][prefix] {
				return true
			}
		}
		return false
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err)

		switch tok := tok.(type) {
		case xml.StartElement:
			scope := map[string]bool{}
			seen := map[xml.Name]bool{}
			for _, a := range tok.Attr {
				require.False(t, seen[a.Name], "duplicate attribute %s:%s on %s", a.Name.Space, a.Name.Local, tok.Name.Local)
				seen[a.Name] = true
				if a.Name.Space == "xmlns" {
					scope[a.Name.Local] = true
				}
			}
			scopes = append(scopes, scope)

			if tok.Name.Space != "" {
				assert.True(t, bound(tok.Name.Space), "unbound prefix %s on element %s", tok.Name.Space, tok.Name.Local)
			}
			for _, a := range tok.Attr {
				if a.Name.Space != "" && a.Name.Space != "xmlns" {
					assert.True(t, bound(a.Name.Space), "unbound prefix %s on attribute %s", a.Name.Space, a.Name.Local)
				}
				if a.Name.Local == "typeName" {
					for _, name := range strings.Fields(a.Value) {
						if q := ParseQName(name); q.Prefix != "" {
							assert.True(t, bound(q.Prefix), "unbound prefix %s in typeName", q.Prefix)
						}
					}
				}
			}
		case xml.EndElement:
			scopes = scopes[:len(scopes)-1]
		}
	}
}

func TestFeatureCollectionRoundTrip(t *testing.T) {
	const collection = `<wfs:FeatureCollection numberOfFeatures="1" timeStamp="2024-01-02T03:04:05Z"
    xmlns:wfs="http://www.opengis.net/wfs"
    xmlns:gml="http://www.opengis.net/gml"
    xmlns:topp="http://www.openplans.org/topp"
    xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
    xsi:schemaLocation="http://www.openplans.org/topp http://example.com/topp.xsd">
  <gml:featureMember>
    <topp:roads gml:id="roads.1">
      <topp:name>A1</topp:name>
      <label>north</label>
      <topp:note>before<topp:b>bold</topp:b>after</topp:note>
    </topp:roads>
  </gml:featureMember>
</wfs:FeatureCollection>`

	doc, err := Decode(strings.NewReader(collection))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	assertWellFormed(t, buf.Bytes())
	assert.Equal(t, 1, strings.Count(buf.String(), `xmlns:wfs=`))
	assert.Equal(t, 1, strings.Count(buf.String(), `schemaLocation=`))
	assert.Contains(t, buf.String(), `before<b xmlns="http://www.openplans.org/topp">bold</b>after`)
	assert.Contains(t, buf.String(), `<label xmlns="">north</label>`)

	again, err := Decode(&buf)
	require.NoError(t, err)

	c := again.Element.(*FeatureCollection)
	require.NotNil(t, c.NumberOfFeatures)
	assert.Equal(t, uint64(1), *c.NumberOfFeatures)
	require.Len(t, c.Members, 1)

	road := c.Members[0].Nodes[0]
	assert.Equal(t, QName{Namespace: toppNamespace, Local: "roads"}, road.Name())
	id, ok := road.Attr("id")
	assert.True(t, ok)
	assert.Equal(t, "roads.1", id)

	require.Len(t, road.Nodes, 3)
	assert.Equal(t, QName{Local: "label"}, road.Nodes[1].Name())
	assert.Equal(t, "north", road.Nodes[1].Content)
	assert.Equal(t, "beforeafter", road.Nodes[2].Content)
	assert.Equal(t, "http://example.com/topp.xsd", again.SchemaLocation[toppNamespace])
}

func TestRoundTripKeepsNestedDeclarations(t *testing.T) {
	const request = `<wfs:GetFeature xmlns:wfs="http://www.opengis.net/wfs">
  <wfs:Query typeName="topp:roads"
      xmlns:topp="http://www.openplans.org/topp"
      xmlns:ogc="http://www.opengis.net/ogc">
    <ogc:Function name="length"><ogc:PropertyName>topp:the_geom</ogc:PropertyName></ogc:Function>
    <ogc:Filter>
      <ogc:PropertyIsEqualTo><ogc:PropertyName>name</ogc:PropertyName><ogc:Literal>A1</ogc:Literal></ogc:PropertyIsEqualTo>
    </ogc:Filter>
  </wfs:Query>
</wfs:GetFeature>`

	doc, err := Decode(strings.NewReader(request))
	require.NoError(t, err)
	assert.Equal(t, toppNamespace, doc.Namespaces["topp"])
	assert.Equal(t, "http://www.opengis.net/ogc", doc.Namespaces["ogc"])

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	assertWellFormed(t, buf.Bytes())

	again, err := Decode(&buf)
	require.NoError(t, err)
	q := again.Element.(*GetFeature).Queries[0]
	assert.Equal(t, toppNamespace, again.Resolve(q.TypeName[0]).Namespace)
	assert.Contains(t, string(q.Filter.Content), "ogc:PropertyIsEqualTo")
}

func TestDecodeKeepsConflictingPrefixesLocal(t *testing.T) {
	const request = `<wfs:Transaction xmlns:wfs="http://www.opengis.net/wfs">
  <wfs:Insert><a:road xmlns:a="urn:one"/></wfs:Insert>
  <wfs:Insert><a:road xmlns:a="urn:two"/></wfs:Insert>
</wfs:Transaction>`

	doc, err := Decode(strings.NewReader(request))
	require.NoError(t, err)
	assert.NotContains(t, doc.Namespaces, "a")

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	assertWellFormed(t, buf.Bytes())
}
