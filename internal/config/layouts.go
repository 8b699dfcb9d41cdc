package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"jordanella.com/noruhunter-go/internal/cv"
)

// LayoutsFileName is the optional override file for capture layouts
const LayoutsFileName = "layouts.yaml"

//go:embed default_layouts.yaml
var defaultLayouts []byte

// Layouts holds the capture geometry of every extractor
type Layouts struct {
	Circle cv.LayoutSet `yaml:"circle"`
	Dust   cv.LayoutSet `yaml:"dust"`
}

// DefaultLayouts returns the built-in layouts
func DefaultLayouts() Layouts {
	var l Layouts
	if err := yaml.Unmarshal(defaultLayouts, &l); err != nil {
		panic(fmt.Sprintf("embedded layouts are invalid: %v", err))
	}
	return l
}

// LoadLayouts returns the built-in layouts overlaid with any values set in path.
// A missing file is not an error.
func LoadLayouts(path string) (Layouts, error) {
	layouts := DefaultLayouts()
	if path == "" {
		return layouts, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return layouts, nil
	}
	if err != nil {
		return layouts, fmt.Errorf("failed to read layouts: %w", err)
	}
	if err := yaml.Unmarshal(data, &layouts); err != nil {
		return DefaultLayouts(), fmt.Errorf("failed to parse layouts %s: %w", path, err)
	}
	if err := layouts.Validate(); err != nil {
		return DefaultLayouts(), fmt.Errorf("invalid layouts in %s: %w", path, err)
	}
	return layouts, nil
}

// Validate checks that every band leaves a non-empty capture region
func (l Layouts) Validate() error {
	sets := map[string]cv.LayoutSet{"circle": l.Circle, "dust": l.Dust}
	for name, set := range sets {
		for kind, layout := range map[string]cv.Layout{"ultrawide": set.Ultrawide, "normal": set.Normal} {
			if layout.Left < 0 || layout.Right < 0 || layout.Top < 0 || layout.Bottom < 0 || layout.Profile < 0 {
				return fmt.Errorf("%s.%s: ratios must not be negative", name, kind)
			}
			if layout.Left+layout.Right >= 1 {
				return fmt.Errorf("%s.%s: left and right margins cover the whole width", name, kind)
			}
		}
	}
	return nil
}
