package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delta10/wfs-filter-proxy/internal/wfs"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSchemaCommand(t *testing.T) {
	out, err := run(t, "", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "TransactionType")
	assert.Contains(t, out, "BaseRequestType")
	assert.Contains(t, out, "abstract")

	out, err = run(t, "", "schema", "GetFeatureWithLockType")
	require.NoError(t, err)
	assert.Contains(t, out, "GetFeatureWithLockType extends GetFeatureType")
	assert.Contains(t, out, "expiry")
	assert.Contains(t, out, "1..*")

	_, err = run(t, "", "schema", "FooType")
	assert.ErrorIs(t, err, wfs.ErrInvalidClassifier)
}

func TestKVPCommand(t *testing.T) {
	out, err := run(t, "", "kvp", "?service=WFS&request=GetFeature&typeName=topp:roads&maxFeatures=3")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, "GetFeature")
	assert.Contains(t, out, `typeName="topp:roads"`)
	assert.Contains(t, out, `maxFeatures="3"`)

	_, err = run(t, "", "kvp", "service=WFS")
	assert.Error(t, err)
}

func TestLockCommand(t *testing.T) {
	out, err := run(t, "", "lock", "topp:roads", "topp:rivers", "--expiry", "10", "--lock-action", "some", "--feature-id", "roads.1")
	require.NoError(t, err)
	assert.Contains(t, out, "LockFeature")
	assert.Contains(t, out, `expiry="10"`)
	assert.Contains(t, out, `lockAction="SOME"`)
	assert.Contains(t, out, `handle="`)
	assert.Contains(t, out, "roads.1")
	assert.Contains(t, out, `typeName="topp:rivers"`)

	_, err = run(t, "", "lock", "topp:roads", "--lock-action", "none")
	assert.ErrorIs(t, err, wfs.ErrInvalidLiteral)

	_, err = run(t, "", "lock", "topp:roads", "--expiry", "0")
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, `<wfs:GetFeature xmlns:wfs="http://www.opengis.net/wfs"/>`, "validate")
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Contains(t, out, "GetFeature: at least one Query is required")

	valid := `<wfs:GetFeature xmlns:wfs="http://www.opengis.net/wfs"><wfs:Query typeName="roads"/></wfs:GetFeature>`
	out, err = run(t, valid, "validate")
	require.NoError(t, err)
	assert.Equal(t, "GetFeature is valid\n", out)
}

func TestDecodeCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "delete.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<wfs:Transaction
    xmlns:wfs="http://www.opengis.net/wfs"
    xmlns:ogc="http://www.opengis.net/ogc">
  <wfs:Delete typeName="roads"><ogc:Filter><ogc:FeatureId fid="roads.1"/></ogc:Filter></wfs:Delete>
</wfs:Transaction>`), 0o600))

	out, err := run(t, "", "decode", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Transaction")
	assert.Contains(t, out, `typeName="roads"`)
	assert.Contains(t, out, "roads.1")

	_, err = run(t, "<html/>", "decode")
	assert.ErrorIs(t, err, wfs.ErrUnknownElement)
}
