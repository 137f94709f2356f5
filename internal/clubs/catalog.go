package clubs

import (
	"courtkeeper/pkg/model"
	"courtkeeper/pkg/validation"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

var ErrClubNotFound = errors.New("club not found")

type catalogFile struct {
	Clubs []clubEntry `yaml:"clubs"`
}

type clubEntry struct {
	model.Club `yaml:",inline"`
	Courts     []model.Court `yaml:"courts"`
}

// Catalog is the read-only set of clubs the service books for. It is loaded
// once at startup and never mutated afterwards.
type Catalog struct {
	clubs  map[string]*model.Club
	courts map[string][]model.Court
}

func LoadCatalog(path string, v *validation.Validator) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read club catalog: %w", err)
	}
	return ParseCatalog(data, v)
}

func ParseCatalog(data []byte, v *validation.Validator) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse club catalog: %w", err)
	}
	if len(file.Clubs) == 0 {
		return nil, errors.New("club catalog has no clubs")
	}

	catalog := &Catalog{
		clubs:  make(map[string]*model.Club, len(file.Clubs)),
		courts: make(map[string][]model.Court, len(file.Clubs)),
	}

	for i := range file.Clubs {
		entry := file.Clubs[i]
		club := entry.Club

		if err := v.Struct(&club); err != nil {
			return nil, fmt.Errorf("club %q: %w", club.ID, err)
		}
		if err := club.ResolveLocation(); err != nil {
			return nil, fmt.Errorf("club %q: unknown timezone %q: %w", club.ID, club.Timezone, err)
		}
		if _, dup := catalog.clubs[club.ID]; dup {
			return nil, fmt.Errorf("club %q declared twice", club.ID)
		}

		for _, court := range entry.Courts {
			court.ClubID = club.ID
			if err := v.Struct(&court); err != nil {
				return nil, fmt.Errorf("club %q court %q: %w", club.ID, court.ID, err)
			}
			catalog.courts[club.ID] = append(catalog.courts[club.ID], court)
		}

		catalog.clubs[club.ID] = &club
	}

	return catalog, nil
}

func (c *Catalog) Club(id string) (*model.Club, error) {
	club, ok := c.clubs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClubNotFound, id)
	}
	return club, nil
}

// Clubs returns every club ordered by id.
func (c *Catalog) Clubs() []*model.Club {
	out := make([]*model.Club, 0, len(c.clubs))
	for _, club := range c.clubs {
		out = append(out, club)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Courts returns the courts declared for the club, used to seed the court
// store.
func (c *Catalog) Courts(clubID string) []model.Court {
	return c.courts[clubID]
}
