package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/instance"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/paths"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
)

// Keys read from instance.cfg
const (
	KeyType    = "InstanceType"
	KeyName    = "name"
	KeyIconKey = "iconKey"
	KeyNotes   = "notes"
)

// DefaultKnownTypes lists the instance types loaded by default
var DefaultKnownTypes = []string{types.TypeLegacy, types.TypeOneSix, types.TypeNostalgia}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CfgLoader loads instances described by an instance.cfg settings file
type CfgLoader struct {
	marker     string
	knownTypes map[string]struct{}
	policy     *bluemonday.Policy
	logger     *zap.Logger
}

// NewCfgLoader creates a loader accepting the given instance types.
// With no types, DefaultKnownTypes is used.
func NewCfgLoader(logger *zap.Logger, knownTypes ...string) *CfgLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(knownTypes) == 0 {
		knownTypes = DefaultKnownTypes
	}

	known := make(map[string]struct{}, len(knownTypes))
	for _, t := range knownTypes {
		known[t] = struct{}{}
	}

	return &CfgLoader{
		marker:     paths.MarkerFile,
		knownTypes: known,
		policy:     bluemonday.StrictPolicy(),
		logger:     logger,
	}
}

// WithMarker changes the settings file name
func (l *CfgLoader) WithMarker(name string) *CfgLoader {
	if name != "" {
		l.marker = name
	}
	return l
}

// Load reads dir's settings file and builds the instance.
// The instance id is the directory's base name.
func (l *CfgLoader) Load(ctx context.Context, dir string) instance.LoadResult {
	if err := ctx.Err(); err != nil {
		return instance.Failed(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, l.marker))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return instance.NotAnInstance(err)
		}
		return instance.Failed(fmt.Errorf("read %s: %w", l.marker, err))
	}

	text, err := l.decode(data)
	if err != nil {
		return instance.Failed(fmt.Errorf("decode %s: %w", l.marker, err))
	}
	settings, err := ParseSettings([]byte(text))
	if err != nil {
		return instance.Failed(fmt.Errorf("read %s: %w", l.marker, err))
	}

	instType := settings.Get(KeyType, types.TypeLegacy)
	if _, ok := l.knownTypes[instType]; !ok {
		return instance.NotAnInstance(fmt.Errorf("unknown instance type %q", instType))
	}

	id := filepath.Base(dir)
	inst := types.NewInstance(id, dir, types.InstanceMeta{
		Name:    strings.TrimSpace(settings.Get(KeyName, id)),
		Type:    instType,
		IconKey: settings.Get(KeyIconKey, types.DefaultIconKey),
		Notes:   l.sanitize(settings[KeyNotes]),
	})

	return instance.Loaded(inst)
}

// decode returns data as UTF-8 text. Legacy files written in a single-byte
// Latin charset are converted; other encodings are rejected.
func (l *CfgLoader) decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}

	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil {
		return "", err
	}
	if !isLatin(result.Charset) {
		return "", fmt.Errorf("unsupported encoding %s", result.Charset)
	}

	l.logger.Debug("Converting legacy settings encoding", zap.String("charset", result.Charset))
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes), nil
}

func isLatin(charset string) bool {
	charset = strings.ToUpper(charset)
	return strings.HasPrefix(charset, "ISO-8859") || strings.HasPrefix(charset, "WINDOWS-125")
}

// sanitize strips markup from user notes and returns plain text
func (l *CfgLoader) sanitize(notes string) string {
	if notes == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(l.policy.Sanitize(notes)))
}
