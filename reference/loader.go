// Package reference loads the formulary and the toxidrome database, either
// from a data directory or from the defaults compiled into the binary.
package reference

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tlgayhan/pedi-mvp/logging"
	"github.com/tlgayhan/pedi-mvp/reference/entities"
)

//go:embed content/*.json
var content embed.FS

// SourceEmbedded marks datasets read from the compiled-in defaults
const SourceEmbedded = "embedded"

// Dataset file base names, tried with each of Extensions in order
const (
	DrugsFile      = "drugs"
	ToxidromesFile = "toxidromes"
)

var Extensions = []string{".json", ".yaml", ".yml"}

// Datasets is one raw, not yet validated, load of both reference files
type Datasets struct {
	Drugs       entities.DrugsDb
	Tox         entities.ToxDb
	DrugsSource string
	ToxSource   string
}

// Source describes where both datasets came from
func (d *Datasets) Source() string {
	if d.DrugsSource == d.ToxSource {
		return d.DrugsSource
	}
	return d.DrugsSource + "," + d.ToxSource
}

// Loader reads the reference datasets. A dataset missing from the data
// directory falls back to its embedded default.
type Loader struct {
	dir string
}

// NewLoader creates a loader over dir; an empty dir uses the embedded data only
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Dir returns the data directory, empty when only embedded data is used
func (l *Loader) Dir() string {
	return l.dir
}

// Load reads and decodes both datasets
func (l *Loader) Load(ctx context.Context) (*Datasets, error) {
	ds := &Datasets{}

	src, err := l.load(ctx, DrugsFile, &ds.Drugs)
	if err != nil {
		return nil, fmt.Errorf("loading formulary: %w", err)
	}
	ds.DrugsSource = src

	src, err = l.load(ctx, ToxidromesFile, &ds.Tox)
	if err != nil {
		return nil, fmt.Errorf("loading toxidrome database: %w", err)
	}
	ds.ToxSource = src

	return ds, nil
}

func (l *Loader) load(ctx context.Context, base string, v any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if l.dir != "" {
		path, err := FindDatasetFile(l.dir, base)
		switch {
		case err == nil:
			raw, err := os.ReadFile(path)
			if err != nil {
				return "", err
			}
			if err := decode(path, raw, v); err != nil {
				return "", err
			}
			return path, nil
		case errors.Is(err, fs.ErrNotExist):
			logging.Info("Dataset not found in data directory, using embedded default", "dataset", base, "dir", l.dir)
		default:
			return "", err
		}
	}

	name := "content/" + base + ".json"
	raw, err := content.ReadFile(name)
	if err != nil {
		return "", err
	}
	if err := decode(name, raw, v); err != nil {
		return "", err
	}
	return SourceEmbedded, nil
}

// FindDatasetFile returns the first existing base+extension file in dir
func FindDatasetFile(dir, base string) (string, error) {
	for _, ext := range Extensions {
		path := filepath.Join(dir, base+ext)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("%s not found in %s: %w", base, dir, fs.ErrNotExist)
}

// IsDatasetFile reports whether name is one of the files Load reads
func IsDatasetFile(name string) bool {
	base := filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem != DrugsFile && stem != ToxidromesFile {
		return false
	}
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// decode picks the codec from the file extension. Unknown fields are
// rejected so a misspelled key does not silently become a zero limit.
func decode(name string, raw []byte, v any) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("decoding %s: %w", name, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("decoding %s: %w", name, err)
		}
	}
	return nil
}
