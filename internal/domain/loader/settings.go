package loader

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// Settings holds the key/value pairs of an instance.cfg file
type Settings map[string]string

// Get returns the value for key or def when the key is absent or empty
func (s Settings) Get(key, def string) string {
	if v, ok := s[key]; ok && v != "" {
		return v
	}
	return def
}

var valueEscapes = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\t`, "\t", `\r`, "\r")

// instance.cfg values are unquoted free text that may contain '#', ';' or a
// trailing backslash, so only whole-line comments are honoured.
var settingsOptions = ini.LoadOptions{
	IgnoreInlineComment:     true,
	IgnoreContinuation:      true,
	SkipUnrecognizableLines: true,
	KeyValueDelimiters:      "=",
}

// ParseSettings parses an instance.cfg file. Keys from every section are
// merged; later keys override earlier ones. Lines without '=' are ignored.
func ParseSettings(data []byte) (Settings, error) {
	file, err := ini.LoadSources(settingsOptions, data)
	if err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	settings := make(Settings)
	for _, section := range file.Sections() {
		for _, key := range section.Keys() {
			settings[key.Name()] = valueEscapes.Replace(key.Value())
		}
	}
	return settings, nil
}
