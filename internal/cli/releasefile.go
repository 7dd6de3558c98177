package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/Suhaibinator/SRelease/internal/api"
	"github.com/Suhaibinator/SRelease/internal/models"
	"gopkg.in/yaml.v3"
)

// ReleaseFile is the YAML document read by publish:
//
//	product: lam
//	version: 1.2.0
//	date: 2024-03-01
//	features:
//	  - title: Faster sync
//	    content: <p>Sync is now twice as fast.</p>
type ReleaseFile struct {
	Product  string           `yaml:"product"`
	Version  string           `yaml:"version"`
	Date     string           `yaml:"date"`
	Features []ReleaseFeature `yaml:"features"`
}

// ReleaseFeature is one feature of a ReleaseFile.
type ReleaseFeature struct {
	Title   string  `yaml:"title"`
	Content *string `yaml:"content"`
}

// LoadReleaseFile reads and checks a release file.
func LoadReleaseFile(path string) (*ReleaseFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read release file: %w", err)
	}
	return ParseReleaseFile(data)
}

// ParseReleaseFile decodes a release file, rejecting unknown keys.
func ParseReleaseFile(data []byte) (*ReleaseFile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f ReleaseFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("release file is empty")
		}
		return nil, fmt.Errorf("parse release file: %w", err)
	}
	if err := f.check(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *ReleaseFile) check() error {
	if f.Product == "" {
		return fmt.Errorf("release file: product is required")
	}
	v, err := semver.StrictNewVersion(f.Version)
	if err != nil || v.Prerelease() != "" || v.Metadata() != "" {
		return fmt.Errorf("release file: version %q must be in x.y.z format", f.Version)
	}
	if _, err := models.ParseDate(f.Date); err != nil {
		return fmt.Errorf("release file: date %q must be YYYY-MM-DD", f.Date)
	}
	for i, feat := range f.Features {
		if feat.Title == "" {
			return fmt.Errorf("release file: features[%d]: title is required", i)
		}
	}
	return nil
}

func (f *ReleaseFile) features() []api.FeatureRequest {
	out := make([]api.FeatureRequest, 0, len(f.Features))
	for _, feat := range f.Features {
		out = append(out, api.FeatureRequest{Title: feat.Title, Content: feat.Content})
	}
	return out
}

// CreateRequest is the POST /releases body for this file.
func (f *ReleaseFile) CreateRequest() api.CreateReleaseRequest {
	return api.CreateReleaseRequest{Product: f.Product, Version: f.Version, Date: f.Date, Features: f.features()}
}

// UpdateRequest is the PUT body for this file.
func (f *ReleaseFile) UpdateRequest() api.UpdateReleaseRequest {
	return api.UpdateReleaseRequest{Date: f.Date, Features: f.features()}
}
