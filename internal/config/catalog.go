// README: Optional YAML file that relabels or extends the surcharge catalog.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"lanepricing/internal/modules/pricing"
)

type catalogFile struct {
	Surcharges []pricing.Definition `yaml:"surcharges"`
}

// LoadCatalog returns the built-in catalog with the file's definitions
// applied. An empty path or a missing file means no overrides.
func LoadCatalog(path string) (*pricing.Catalog, error) {
	base := pricing.DefaultCatalog()
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	for _, d := range f.Surcharges {
		if d.Key == "" {
			return nil, fmt.Errorf("catalog %s: surcharge without key", path)
		}
		if _, known := base.Lookup(d.Key); !known && d.Kind == "" {
			return nil, fmt.Errorf("catalog %s: new surcharge %s needs a kind", path, d.Key)
		}
		if d.Kind != "" && !d.Kind.Valid() {
			return nil, fmt.Errorf("catalog %s: surcharge %s has unknown kind %q", path, d.Key, d.Kind)
		}
	}
	return base.WithOverrides(f.Surcharges), nil
}
