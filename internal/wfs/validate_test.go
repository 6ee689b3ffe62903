package wfs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delta10/wfs-filter-proxy/internal/ogc"
)

func validationErrors(t *testing.T, err error) ValidationErrors {
	t.Helper()
	var errs ValidationErrors
	require.True(t, errors.As(err, &errs), "%v", err)
	return errs
}

func TestValidateRequiredQueries(t *testing.T) {
	errs := validationErrors(t, Validate(NewGetFeature()))
	assert.Equal(t, ValidationErrors{{Path: "GetFeatureType", Message: "at least one Query is required"}}, errs)

	r := NewGetFeature()
	r.Queries = append(r.Queries, NewQuery(QName{Local: "roads"}))
	assert.NoError(t, Validate(r))
}

func TestValidateSharedQuery(t *testing.T) {
	q := NewQuery(QName{Local: "roads"})
	r := NewGetFeature()
	r.Queries = []*Query{q, q}

	errs := validationErrors(t, Validate(r))
	require.Len(t, errs, 1)
	assert.Equal(t, "GetFeatureType/Query[1]", errs[0].Path)
	assert.Equal(t, "shared with GetFeatureType/Query[0]", errs[0].Message)
}

func TestValidateSharedFilter(t *testing.T) {
	f := ogc.NewFeatureIDFilter("roads.1")
	tx := NewTransaction()
	tx.Actions = []TransactionAction{
		&Delete{TypeName: QName{Local: "roads"}, Filter: f},
		&Delete{TypeName: QName{Local: "roads"}, Filter: f},
	}

	errs := validationErrors(t, Validate(tx))
	require.Len(t, errs, 1)
	assert.Equal(t, "TransactionType/Delete[1]/Filter", errs[0].Path)
}

func TestValidateTransactionActions(t *testing.T) {
	tx := NewTransaction()
	tx.Actions = []TransactionAction{
		NewInsert(),
		NewUpdate(),
		&Delete{},
		&Native{},
	}

	errs := validationErrors(t, Validate(tx))
	var messages []string
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	assert.Equal(t, []string{
		"TransactionType/Update[1]: at least one Property is required",
		"TransactionType/Update[1]: typeName is required",
		"TransactionType/Delete[2]: Filter is required",
		"TransactionType/Delete[2]: typeName is required",
		"TransactionType/Native[3]: safeToIgnore is required",
		"TransactionType/Native[3]: vendorId is required",
	}, messages)

	native := &Native{VendorID: "acme"}
	native.SafeToIgnore.Set(false)
	tx.Actions = []TransactionAction{native}
	assert.NoError(t, Validate(tx))
}

func TestValidatePositiveIntegers(t *testing.T) {
	zero := uint64(0)
	r := NewGetFeatureWithLock()
	r.Queries = []*Query{NewQuery(QName{Local: "roads"})}
	r.MaxFeatures = &zero
	r.Expiry.Set(0)

	errs := validationErrors(t, Validate(r))
	assert.Len(t, errs, 2)
	assert.Contains(t, errs.Error(), "maxFeatures must be a positive integer")
	assert.Contains(t, errs.Error(), "expiry must be a positive integer")
}

func TestValidateCapabilities(t *testing.T) {
	c := NewWFSCapabilities()
	c.FeatureTypeList = &FeatureTypeList{
		FeatureTypes: []FeatureType{{
			Name:       QName{Prefix: "topp", Local: "roads"},
			Title:      "Roads",
			DefaultSRS: "EPSG:4326",
			NoSRS:      &NoSRS{},
			MetadataURL: []MetadataURL{
				{Value: "http://example.com/roads.xml", Format: "text/json", Type: "FGDC"},
			},
		}},
	}

	errs := validationErrors(t, Validate(c))
	var messages []string
	for _, err := range errs {
		messages = append(messages, err.Message)
	}
	assert.Contains(t, messages, "Filter_Capabilities is required")
	assert.Contains(t, messages, "at least one WGS84BoundingBox is required")
	assert.Contains(t, messages, "NoSRS excludes DefaultSRS and OtherSRS")
	assert.Len(t, messages, 4)
}

func TestValidateLockFeatureResponse(t *testing.T) {
	errs := validationErrors(t, Validate(&LockFeatureResponse{}))
	assert.Equal(t, "LockId is required", errs[0].Message)

	assert.NoError(t, Validate(&LockFeatureResponse{LockID: "lock-1"}))
}

func TestValidateNil(t *testing.T) {
	errs := validationErrors(t, Validate(nil))
	assert.Equal(t, ValidationErrors{{Path: "Element", Message: "is nil"}}, errs)

	errs = validationErrors(t, Validate((*GetFeature)(nil)))
	assert.Equal(t, "is nil", errs[0].Message)

	tx := NewTransaction()
	tx.Actions = []TransactionAction{(*Update)(nil), nil}
	errs = validationErrors(t, Validate(tx))
	require.Len(t, errs, 2)
	assert.Equal(t, ValidationError{Path: "TransactionType/Update[0]", Message: "is nil"}, errs[0])
	assert.Equal(t, ValidationError{Path: "TransactionType/Action[1]", Message: "is nil"}, errs[1])
}
