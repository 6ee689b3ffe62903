package wfs

import (
	"encoding/xml"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaIsBuiltOnce(t *testing.T) {
	var wg sync.WaitGroup
	packages := make([]*Package, 16)
	for i := range packages {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			packages[i] = Schema()
		}(i)
	}
	wg.Wait()

	for _, p := range packages {
		assert.Same(t, Schema(), p)
	}
}

func TestSchemaDescribesEveryClass(t *testing.T) {
	p := Schema()
	assert.Equal(t, Namespace, p.NsURI)
	assert.Equal(t, "wfs", p.NsPrefix)

	for k := KindAction; k < kindCount; k++ {
		c := p.Class(k)
		require.NotNil(t, c, k.String())
		assert.Equal(t, k, c.Kind)
		assert.Equal(t, k.String(), c.Name)
		assert.Same(t, c, p.ClassByName(c.Name))
	}

	assert.Nil(t, p.Class(KindUnknown))
	assert.Nil(t, p.ClassByName("FooType"))
	assert.True(t, p.Class(KindBaseRequest).Abstract)
}

func TestSchemaInheritance(t *testing.T) {
	c := Schema().Class(KindGetFeatureWithLock)
	require.NotNil(t, c.Super)
	assert.Equal(t, KindGetFeature, c.Super.Kind)
	assert.Equal(t, KindBaseRequest, c.Super.Super.Kind)

	expiry := c.Feature("expiry")
	require.NotNil(t, expiry)
	assert.Equal(t, "5", expiry.Default)
	assert.True(t, expiry.Unsettable)
	assert.Equal(t, AttributeFeature, expiry.Kind)

	query := c.Feature("query")
	require.NotNil(t, query)
	assert.True(t, query.Required())
	assert.True(t, query.Many())
	assert.True(t, query.Containment)
	assert.Equal(t, xml.Name{Space: Namespace, Local: "Query"}, query.XMLName)

	service := c.Feature("service")
	require.NotNil(t, service)
	assert.Equal(t, Service, service.Default)

	baseURL := c.Feature("baseUrl")
	require.NotNil(t, baseURL)
	assert.Equal(t, TransientFeature, baseURL.Kind)

	features := c.AllFeatures()
	assert.Equal(t, "handle", features[0].Name)
	assert.Equal(t, "expiry", features[len(features)-1].Name)
}

func TestSchemaRootElements(t *testing.T) {
	p := Schema()

	kind, ok := p.KindOfElement(xml.Name{Space: Namespace, Local: "Transaction"})
	assert.True(t, ok)
	assert.Equal(t, KindTransaction, kind)

	kind, ok = p.KindOfElement(xml.Name{Space: Namespace, Local: "WFS_Capabilities"})
	assert.True(t, ok)
	assert.Equal(t, KindWFSCapabilities, kind)

	kind, ok = p.KindOfElement(xml.Name{Space: Namespace, Local: "LockId"})
	assert.True(t, ok)
	assert.Equal(t, KindUnknown, kind)

	_, ok = p.KindOfElement(xml.Name{Space: "http://www.opengis.net/wms", Local: "Transaction"})
	assert.False(t, ok)

	assert.Equal(t, xml.Name{Space: Namespace, Local: "Insert"}, p.Class(KindInsert).Element)
	assert.Equal(t, xml.Name{Space: Namespace, Local: "ServesGMLObjectTypeList"}, p.Class(KindGMLObjectTypeList).Element)
	assert.Equal(t, "", p.Class(KindAction).Element.Local)
}
