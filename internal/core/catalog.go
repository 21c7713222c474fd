package core

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog holds the enumerations a device is validated against. The same
// catalog feeds the row validator, the import template drop-downs and the
// dashboard, so a template-conformant file is always importable.
type Catalog struct {
	Sites       []string `yaml:"sites"`
	Areas       []string `yaml:"areas"`
	DefaultSite string   `yaml:"defaultSite"`

	// DeviceTypes is fixed to MOVIL, LAPTOP and PC; it is not read from file.
	DeviceTypes []string `yaml:"-"`
}

// NewCatalog builds a catalog from explicit lists. Entries are trimmed and
// empty entries dropped.
func NewCatalog(sites, areas []string, defaultSite string) (*Catalog, error) {
	c := &Catalog{
		Sites:       cleanList(sites, false),
		Areas:       cleanList(areas, true),
		DefaultSite: strings.TrimSpace(defaultSite),
		DeviceTypes: slices.Clone(DeviceTypes),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadCatalog reads a catalog from a YAML file:
//
//	sites: ["Bonanza 1", "Bonanza 2"]
//	areas: [CONTROL, SEGURIDAD]
//	defaultSite: Bonanza 1
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var raw Catalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(raw.Sites, raw.Areas, raw.DefaultSite)
}

// Validate checks the catalog is usable.
func (c *Catalog) Validate() error {
	var errs []error
	if len(c.Sites) == 0 {
		errs = append(errs, errors.New("catalog needs at least one site"))
	}
	if len(c.Areas) == 0 {
		errs = append(errs, errors.New("catalog needs at least one area"))
	}
	if dup := firstDuplicate(c.Sites); dup != "" {
		errs = append(errs, fmt.Errorf("site %q listed twice", dup))
	}
	if c.DefaultSite != "" && !c.HasSite(c.DefaultSite) {
		errs = append(errs, fmt.Errorf("default site %q is not a listed site", c.DefaultSite))
	}
	return errors.Join(errs...)
}

// HasSite reports whether name is a configured site. Site names match exactly.
func (c *Catalog) HasSite(name string) bool {
	return slices.Contains(c.Sites, name)
}

// HasArea reports whether area (already upper-cased) is configured.
func (c *Catalog) HasArea(area string) bool {
	return slices.Contains(c.Areas, area)
}

// HasDeviceType reports whether t (already upper-cased) is an accepted class.
func (c *Catalog) HasDeviceType(t string) bool {
	return slices.Contains(c.deviceTypes(), t)
}

// DefaultTemplateSite returns the site pre-filled in the import template.
func (c *Catalog) DefaultTemplateSite() string {
	if c.DefaultSite != "" {
		return c.DefaultSite
	}
	return c.Sites[0]
}

func (c *Catalog) deviceTypes() []string {
	if len(c.DeviceTypes) > 0 {
		return c.DeviceTypes
	}
	return DeviceTypes
}

func cleanList(in []string, upper bool) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if upper {
			s = strings.ToUpper(s)
		}
		out = append(out, s)
	}
	return out
}

func firstDuplicate(list []string) string {
	seen := make(map[string]struct{}, len(list))
	for _, s := range list {
		if _, ok := seen[s]; ok {
			return s
		}
		seen[s] = struct{}{}
	}
	return ""
}
