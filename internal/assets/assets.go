// Package assets loads the tracked asset universe from a YAML file.
package assets

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

type file struct {
	Assets []model.Asset `yaml:"assets"`
}

// Registry is the immutable set of tracked assets, kept in file order.
type Registry struct {
	assets []model.Asset
	byName map[string]model.Asset
}

// LoadRegistry reads and validates the asset file at path.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read assets file: %w", err)
	}
	return ParseRegistry(bytes.NewReader(data))
}

// ParseRegistry decodes a registry document. Unknown keys are rejected so typos
// in the file surface at startup.
func ParseRegistry(r io.Reader) (*Registry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidAssetsFile, err)
	}
	return NewRegistry(f.Assets...)
}

// NewRegistry validates assets and builds a registry. Names and tickers are
// trimmed; a missing mode defaults to multiplicative.
func NewRegistry(list ...model.Asset) (*Registry, error) {
	reg := &Registry{
		assets: make([]model.Asset, 0, len(list)),
		byName: make(map[string]model.Asset, len(list)),
	}

	for i, a := range list {
		a.Name = strings.TrimSpace(a.Name)
		a.Ticker = strings.TrimSpace(a.Ticker)
		a.SecondaryTicker = strings.TrimSpace(a.SecondaryTicker)

		if a.Name == "" {
			return nil, fmt.Errorf("%w: entry %d has no name", apperrors.ErrInvalidAssetsFile, i)
		}
		if a.Ticker == "" {
			return nil, fmt.Errorf("%w: asset %q has no ticker", apperrors.ErrInvalidAssetsFile, a.Name)
		}
		switch a.Mode {
		case "":
			a.Mode = model.ReindexMultiplicative
		case model.ReindexMultiplicative, model.ReindexAdditive:
		default:
			return nil, fmt.Errorf("%w: asset %q has unknown mode %q", apperrors.ErrInvalidAssetsFile, a.Name, a.Mode)
		}
		if _, dup := reg.byName[a.Name]; dup {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrDuplicateAsset, a.Name)
		}

		reg.byName[a.Name] = a
		reg.assets = append(reg.assets, a)
	}
	return reg, nil
}

// Get returns the asset named name.
func (r *Registry) Get(name string) (model.Asset, error) {
	a, ok := r.byName[name]
	if !ok {
		return model.Asset{}, apperrors.ErrAssetNotFound
	}
	return a, nil
}

// All returns every asset in file order.
func (r *Registry) All() []model.Asset {
	out := make([]model.Asset, len(r.assets))
	copy(out, r.assets)
	return out
}

// Names returns every asset name in file order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.assets))
	for i, a := range r.assets {
		out[i] = a.Name
	}
	return out
}

// SortedNames returns the asset names in lexical order.
func (r *Registry) SortedNames() []string {
	out := r.Names()
	sort.Strings(out)
	return out
}

// Len returns the number of assets.
func (r *Registry) Len() int {
	return len(r.assets)
}
