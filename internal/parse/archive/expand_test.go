package archive

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExpand_OK(t *testing.T) {
	content := buildZip(t, map[string]string{
		"daily_oil_20240101.xlsx": "oil-data",
		"daily_gas_20240101.xlsx": "gas-data",
		"__MACOSX/._junk":         "junk",
		".DS_Store":               "junk",
	})

	files, err := Expand(content, 0)
	require.NoError(t, err)
	require.Len(t, files, 2)

	names := map[string]string{}
	for _, f := range files {
		names[f.Name] = string(f.Content)
	}
	assert.Equal(t, "oil-data", names["daily_oil_20240101.xlsx"])
	assert.Equal(t, "gas-data", names["daily_gas_20240101.xlsx"])
}

func TestExpand_PathTraversalRejected(t *testing.T) {
	content := buildZip(t, map[string]string{
		"../../etc/passwd": "evil",
	})
	_, err := Expand(content, 0)
	assert.Error(t, err)
}

func TestExpand_SizeCapEnforced(t *testing.T) {
	content := buildZip(t, map[string]string{
		"big.xlsx": strings.Repeat("a", 1024),
	})
	_, err := Expand(content, 16)
	assert.Error(t, err)
}
