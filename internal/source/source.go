package source

import (
	"context"
	"fmt"
	"os"

	appLog "timedesk/internal/log"
	"timedesk/internal/model"
)

// Loader delivers the current event collection.
type Loader interface {
	Load(ctx context.Context, opts DecodeOptions) ([]model.Record, error)
	Name() string
}

// File reads records from a local JSON, YAML or ICS file.
type File struct {
	Path   string
	Format Format
}

// NewFile derives the format from the extension.
func NewFile(path string) (*File, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	return &File{Path: path, Format: format}, nil
}

func (f *File) Name() string { return f.Path }

func (f *File) Load(ctx context.Context, opts DecodeOptions) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", f.Path, err)
	}
	records, err := Decode(f.Format, body, opts)
	if err != nil {
		return nil, err
	}
	appLog.Info("events loaded", "source", f.Path, "format", string(f.Format), "records", len(records))
	return records, nil
}
