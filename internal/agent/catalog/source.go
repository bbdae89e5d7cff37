package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chative-salesdesk/server/internal/agent/model"
)

// Format is the encoding of a catalog document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Source yields a whole catalog document; catalogs are loaded wholesale, never streamed.
type Source interface {
	Name() string
	Read(ctx context.Context) ([]byte, Format, error)
}

// FileSource reads a JSON or YAML document from disk, picking the format by extension.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return s.Path }

// Read returns the file contents and the format implied by its extension.
func (s FileSource) Read(ctx context.Context) ([]byte, Format, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, "", fmt.Errorf("read catalog: %w", err)
	}
	return raw, FormatFromPath(s.Path), nil
}

// BytesSource serves an in-memory document.
type BytesSource struct {
	Label  string
	Data   []byte
	Format Format
}

func (s BytesSource) Name() string {
	if s.Label == "" {
		return "memory"
	}
	return s.Label
}

func (s BytesSource) Read(context.Context) ([]byte, Format, error) {
	return s.Data, s.Format, nil
}

// FormatFromPath maps .yaml/.yml to YAML and everything else to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

type document struct {
	Categories []categoryDoc `json:"categories" yaml:"categories"`
}

type categoryDoc struct {
	Name  string    `json:"name" yaml:"name"`
	Items []itemDoc `json:"items" yaml:"items"`
}

type itemDoc struct {
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description" yaml:"description"`
	Brand       string            `json:"brand" yaml:"brand"`
	Model       string            `json:"model" yaml:"model"`
	Price       *float64          `json:"price" yaml:"price"`
	Prices      []model.PriceTier `json:"prices" yaml:"prices"`
	Available   *bool             `json:"available" yaml:"available"`
	URL         string            `json:"url" yaml:"url"`
	Keywords    []string          `json:"keywords" yaml:"keywords"`
	Tags        []string          `json:"tags" yaml:"tags"`
}

func decode(raw []byte, format Format) (*document, error) {
	var doc document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml catalog: %w", err)
		}
	default:
		// fields beyond the ones read here (sku, image, stock...) are ignored
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode json catalog: %w", err)
		}
	}
	return &doc, nil
}
