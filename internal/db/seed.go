package db

import (
	"context"
	"fmt"

	"github.com/Suhaibinator/SRelease/internal/catalog"
	"github.com/Suhaibinator/SRelease/internal/models"
	"go.uber.org/zap"
)

// SampleRelease is a release inserted on first start when sample seeding is enabled.
type SampleRelease struct {
	ProductSlug string
	Version     string
	ReleaseDate string
	Features    []SampleFeature
}

// SampleFeature is one feature of a SampleRelease.
type SampleFeature struct {
	Title   string
	Content string
}

// Seed inserts catalog products that are missing and, when samples is true and
// no release exists yet, the sample releases. It is safe to run on every start.
func (s *Store) Seed(ctx context.Context, cat *catalog.Catalog, samples bool, log *zap.Logger) error {
	for _, entry := range cat.Entries() {
		product := models.Product{Slug: entry.Slug}
		result := s.conn(ctx).
			Where(models.Product{Slug: entry.Slug}).
			Attrs(models.Product{Name: entry.Name, Description: entry.Description}).
			FirstOrCreate(&product)
		if result.Error != nil {
			return storeErr(fmt.Sprintf("seed product %q", entry.Slug), result.Error)
		}
		log.Debug("Product ready", zap.String("slug", entry.Slug), zap.Uint("id", product.ID))
	}

	if !samples {
		return nil
	}
	n, err := s.CountReleases(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Debug("Releases present, skipping sample data", zap.Int64("releases", n))
		return nil
	}

	for _, sample := range SampleReleases {
		if !cat.Has(sample.ProductSlug) {
			continue
		}
		if err := s.seedRelease(ctx, sample); err != nil {
			return err
		}
		log.Info("Seeded sample release",
			zap.String("product", sample.ProductSlug),
			zap.String("version", sample.Version),
			zap.Int("features", len(sample.Features)))
	}
	return nil
}

func (s *Store) seedRelease(ctx context.Context, sample SampleRelease) error {
	date, err := models.ParseDate(sample.ReleaseDate)
	if err != nil {
		return fmt.Errorf("sample release %s/%s: %w", sample.ProductSlug, sample.Version, err)
	}
	return s.WithTx(ctx, func(tx *Store) error {
		product, err := tx.FindProductBySlug(ctx, sample.ProductSlug)
		if err != nil {
			return err
		}
		releaseID, err := tx.InsertRelease(ctx, product.ID, sample.Version, date)
		if err != nil {
			return err
		}
		features := make([]models.Feature, 0, len(sample.Features))
		for _, f := range sample.Features {
			content := f.Content
			features = append(features, models.Feature{Title: f.Title, Content: &content})
		}
		return tx.InsertFeatures(ctx, releaseID, features)
	})
}

// SampleReleases are the demo releases for the built-in catalog.
var SampleReleases = []SampleRelease{
	{
		ProductSlug: "marcom",
		Version:     "2.1.0",
		ReleaseDate: "2024-03-15",
		Features: []SampleFeature{
			{
				Title:   "Advanced Analytics Dashboard",
				Content: "<p>New analytics dashboard with customizable widgets and real-time data visualization.</p><ul><li>Custom report builder</li><li>Interactive charts</li><li>Export capabilities</li></ul>",
			},
			{
				Title:   "Social Media Integration",
				Content: "<p>Enhanced social media integration with support for multiple platforms.</p><ul><li>Schedule posts across platforms</li><li>Analytics integration</li><li>Content optimization suggestions</li></ul>",
			},
		},
	},
	{
		ProductSlug: "marcom",
		Version:     "2.0.0",
		ReleaseDate: "2024-02-01",
		Features: []SampleFeature{
			{
				Title:   "Complete UI Redesign",
				Content: "<p>Major update to the user interface with modern design principles.</p><ul><li>New component library</li><li>Improved accessibility</li><li>Dark mode support</li></ul>",
			},
		},
	},
	{
		ProductSlug: "collaborate",
		Version:     "1.5.0",
		ReleaseDate: "2024-03-10",
		Features: []SampleFeature{
			{
				Title:   "Real-time Document Collaboration",
				Content: "<p>Multiple users can now edit documents simultaneously with live updates.</p><ul><li>Conflict resolution</li><li>Change tracking</li><li>Version history</li></ul>",
			},
			{
				Title:   "Team Chat Improvements",
				Content: "<p>Enhanced team chat functionality with new features.</p><ul><li>Thread replies</li><li>Rich text formatting</li><li>File sharing improvements</li></ul>",
			},
		},
	},
	{
		ProductSlug: "collaborate",
		Version:     "1.4.0",
		ReleaseDate: "2024-01-20",
		Features: []SampleFeature{
			{
				Title:   "Project Templates",
				Content: "<p>Introduce project templates for quick setup of common project types.</p><ul><li>Custom template builder</li><li>Template sharing</li><li>Import/Export functionality</li></ul>",
			},
		},
	},
	{
		ProductSlug: "lam",
		Version:     "3.2.0",
		ReleaseDate: "2024-03-20",
		Features: []SampleFeature{
			{
				Title:   "Interactive Assessment Builder",
				Content: "<p>New assessment creation tool with interactive question types.</p><ul><li>Drag-and-drop interface</li><li>Multiple question types</li><li>Advanced scoring options</li></ul>",
			},
			{
				Title:   "Learning Path Creator",
				Content: "<p>Create custom learning paths with conditional progression.</p><ul><li>Visual path builder</li><li>Prerequisites management</li><li>Progress tracking</li></ul>",
			},
		},
	},
	{
		ProductSlug: "lam",
		Version:     "3.1.0",
		ReleaseDate: "2024-02-15",
		Features: []SampleFeature{
			{
				Title:   "Mobile Learning Support",
				Content: "<p>Enhanced mobile support for learning materials and assessments.</p><ul><li>Responsive design</li><li>Offline access</li><li>Progress sync</li></ul>",
			},
		},
	},
}
