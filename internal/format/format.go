// Package format renders instance views as json, yaml or toml.
package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
)

// Supported output formats
const (
	JSON = "json"
	YAML = "yaml"
	TOML = "toml"
)

// Names lists the supported formats
var Names = []string{JSON, YAML, TOML}

// Document is the rendered shape of an instance listing
type Document struct {
	Generation string               `json:"generation" yaml:"generation" toml:"generation"`
	Count      int                  `json:"count" yaml:"count" toml:"count"`
	Instances  []types.InstanceView `json:"instances" yaml:"instances" toml:"instances"`
}

// NewDocument wraps views in a Document
func NewDocument(generation string, views []types.InstanceView) Document {
	if views == nil {
		views = []types.InstanceView{}
	}
	return Document{Generation: generation, Count: len(views), Instances: views}
}

// Write renders doc to w in the named format
func Write(w io.Writer, name string, doc Document) error {
	data, err := Marshal(name, doc)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Marshal renders v in the named format
func Marshal(name string, v interface{}) ([]byte, error) {
	switch strings.ToLower(name) {
	case JSON, "":
		data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	case YAML, "yml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return data, nil
	case TOML:
		data, err := toml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode toml: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported format %q (want one of %s)", name, strings.Join(Names, ", "))
	}
}

// ContentType returns the MIME type for the named format
func ContentType(name string) string {
	switch strings.ToLower(name) {
	case YAML, "yml":
		return "application/yaml; charset=utf-8"
	case TOML:
		return "application/toml; charset=utf-8"
	default:
		return "application/json; charset=utf-8"
	}
}
