package format

import (
	"bytes"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
)

func sampleDocument() Document {
	return NewDocument("gen_1", []types.InstanceView{
		{ID: "a", Name: "Alpha", Group: "Modded", Type: types.TypeOneSix, Dir: "/i/a", IconKey: "default"},
		{ID: "b", Name: "Bravo", Type: types.TypeLegacy, Dir: "/i/b", IconKey: "default", Notes: "hi"},
	})
}

func TestWriteFormats(t *testing.T) {
	doc := sampleDocument()

	decoders := map[string]func([]byte, interface{}) error{
		JSON: sonic.Unmarshal,
		YAML: yaml.Unmarshal,
		TOML: toml.Unmarshal,
	}

	for name, decode := range decoders {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, name, doc))

			var got Document
			require.NoError(t, decode(buf.Bytes(), &got))
			assert.Equal(t, doc, got)
		})
	}
}

func TestWriteUnsupported(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, "xml", sampleDocument())

	assert.ErrorContains(t, err, "unsupported format")
	assert.Zero(t, buf.Len())
}

func TestNewDocumentNeverNil(t *testing.T) {
	data, err := Marshal(JSON, NewDocument("g", nil))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"instances": []`)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json; charset=utf-8", ContentType(""))
	assert.Equal(t, "application/json; charset=utf-8", ContentType(JSON))
	assert.Equal(t, "application/yaml; charset=utf-8", ContentType("YML"))
	assert.Equal(t, "application/toml; charset=utf-8", ContentType(TOML))
}
