package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"votewallet/internal/logging"
	"votewallet/internal/types"
)

// Upserter is the store surface the seeder writes through.
type Upserter interface {
	UpsertCategory(c *types.Category) (int64, error)
	UpsertTag(t *types.Tag) (int64, error)
}

type seedFile struct {
	Categories []seedCategory `yaml:"categories"`
	Tags       []seedTag      `yaml:"tags"`
}

type seedCategory struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Icon        string   `yaml:"icon"`
	Color       string   `yaml:"color"`
	Keywords    []string `yaml:"keywords"`
}

type seedTag struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
}

// LoadSeedFile parses a taxonomy YAML file into categories and tags.
func LoadSeedFile(path string) ([]types.Category, []types.Tag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read taxonomy file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse taxonomy file %s: %w", path, err)
	}

	var categories []types.Category
	for _, sc := range f.Categories {
		if sc.Name == "" {
			return nil, nil, fmt.Errorf("taxonomy file %s: category with empty name", path)
		}
		categories = append(categories, types.Category{
			Name:        sc.Name,
			Description: sc.Description,
			Icon:        sc.Icon,
			Color:       sc.Color,
			Keywords:    sc.Keywords,
			Active:      true,
		})
	}

	var tags []types.Tag
	for _, st := range f.Tags {
		if st.Name == "" {
			return nil, nil, fmt.Errorf("taxonomy file %s: tag with empty name", path)
		}
		tags = append(tags, types.Tag{
			Name:        st.Name,
			Description: st.Description,
			Keywords:    st.Keywords,
			Active:      true,
		})
	}

	return categories, tags, nil
}

// Seed loads a taxonomy YAML file and upserts its vocabulary into the
// store. Seeding is idempotent; names are the identity.
func Seed(store Upserter, path string) (int, int, error) {
	categories, tags, err := LoadSeedFile(path)
	if err != nil {
		return 0, 0, err
	}

	for i := range categories {
		if _, err := store.UpsertCategory(&categories[i]); err != nil {
			return 0, 0, err
		}
	}
	for i := range tags {
		if _, err := store.UpsertTag(&tags[i]); err != nil {
			return 0, 0, err
		}
	}

	logging.Taxonomy("seeded %d categories, %d tags from %s", len(categories), len(tags), path)
	return len(categories), len(tags), nil
}
