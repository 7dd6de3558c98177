// Package catalog holds the fixed set of products release notes are published for.
package catalog

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Entry describes one product in the catalog.
type Entry struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Catalog is an ordered, slug-unique product list.
type Catalog struct {
	entries []Entry
	bySlug  map[string]Entry
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// New validates entries and builds a Catalog.
func New(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog must contain at least one product")
	}
	c := &Catalog{bySlug: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if !slugPattern.MatchString(e.Slug) {
			return nil, fmt.Errorf("invalid product slug %q", e.Slug)
		}
		if e.Name == "" {
			return nil, fmt.Errorf("product %q has no name", e.Slug)
		}
		if _, dup := c.bySlug[e.Slug]; dup {
			return nil, fmt.Errorf("duplicate product slug %q", e.Slug)
		}
		c.bySlug[e.Slug] = e
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// Default returns the built-in product catalog.
func Default() *Catalog {
	c, err := New(defaultEntries)
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads a catalog from a YAML file of the form:
//
//	products:
//	  - slug: marcom
//	    name: Marcom
//	    description: ...
//
// An empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read product catalog %s: %w", path, err)
	}
	var doc struct {
		Products []Entry `yaml:"products"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse product catalog %s: %w", path, err)
	}
	return New(doc.Products)
}

// Entries returns the products in catalog order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Slugs returns every product slug in catalog order.
func (c *Catalog) Slugs() []string {
	slugs := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		slugs = append(slugs, e.Slug)
	}
	return slugs
}

// Has reports whether slug names a catalog product.
func (c *Catalog) Has(slug string) bool {
	_, ok := c.bySlug[slug]
	return ok
}

var defaultEntries = []Entry{
	{
		Slug:        "marcom",
		Name:        "Marcom",
		Description: "Unified digital platform that streamlines campaign planning, resource management, real-time collaboration, and analytics for enhanced marketing efficiency.",
	},
	{
		Slug:        "collaborate",
		Name:        "Collaborate",
		Description: "Streamlines the approval and annotation process by enabling real-time collaboration, comprehensive comparison, and efficient change tracking.",
	},
	{
		Slug:        "lam",
		Name:        "Lam",
		Description: "Localized marketing platform that enables efficient content creation and deployment through template-based systems, advanced targeting, and performance analytics to boost brand consistency and impact.",
	},
}
