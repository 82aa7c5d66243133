package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"timedesk/internal/ics"
	"timedesk/internal/model"
)

// ErrUnsupportedFormat is returned for payloads that are neither JSON,
// YAML nor ICS.
var ErrUnsupportedFormat = errors.New("source: unsupported format")

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatICS  Format = "ics"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".ics", ".ical":
		return FormatICS, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
}

// FormatFromContentType maps an HTTP content type onto a format.
func FormatFromContentType(ct string) (Format, bool) {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "json"):
		return FormatJSON, true
	case strings.Contains(ct, "yaml"):
		return FormatYAML, true
	case strings.Contains(ct, "calendar"):
		return FormatICS, true
	}
	return "", false
}

// DecodeOptions are needed for ICS, whose absolute dates are folded onto
// the season of BaseYear.
type DecodeOptions struct {
	BaseYear int
	Location *time.Location
}

// envelope is the object form: {"letters": [...]} or {"events": [...]}.
type envelope struct {
	Letters []model.Record `json:"letters" yaml:"letters"`
	Events  []model.Record `json:"events" yaml:"events"`
}

func (e envelope) records() []model.Record {
	if len(e.Letters) > 0 {
		return e.Letters
	}
	return e.Events
}

// Decode reads records from body.
func Decode(format Format, body []byte, opts DecodeOptions) ([]model.Record, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(body)
	case FormatYAML:
		return decodeYAML(body)
	case FormatICS:
		return decodeICS(body, opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func decodeJSON(body []byte) ([]model.Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var records []model.Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("source: decode json list: %w", err)
		}
		return records, nil
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("source: decode json object: %w", err)
	}
	return env.records(), nil
}

func decodeYAML(body []byte) ([]model.Record, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(body, &node); err != nil {
		return nil, fmt.Errorf("source: decode yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var records []model.Record
		if err := root.Decode(&records); err != nil {
			return nil, fmt.Errorf("source: decode yaml list: %w", err)
		}
		return records, nil
	}
	var env envelope
	if err := root.Decode(&env); err != nil {
		return nil, fmt.Errorf("source: decode yaml object: %w", err)
	}
	return env.records(), nil
}

func decodeICS(body []byte, opts DecodeOptions) ([]model.Record, error) {
	events, err := ics.Parse("events", body)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	start, end := ics.SeasonWindow(opts.BaseYear, opts.Location)
	res, err := ics.Expand(events, ics.ExpandConfig{
		Location:   opts.Location,
		RangeStart: start,
		RangeEnd:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	return ics.ToRecords(res.Occurrences), nil
}
