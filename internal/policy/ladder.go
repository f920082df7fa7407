package policy

import (
	"fmt"
	"os"

	"github.com/arnold/dealpods-api/internal/models"
	"gopkg.in/yaml.v3"
)

// Default role ladders. These are policy data, not load-bearing code:
// operators can replace them with a YAML file via LoadLadders.
var shapes = map[int]PodShape{
	3: {
		Size: 3,
		Positions: []PositionSpec{
			{
				Position:     1,
				Role:         "Deal Lead",
				Ladder:       []string{models.Tier8, models.Tier10, models.Tier6},
				RequiredTags: []string{"negotiation", "client-management", "valuation"},
			},
			{
				Position:     2,
				Role:         "Execution Associate",
				Ladder:       []string{models.Tier4, models.Tier6},
				RequiredTags: []string{"due-diligence", "documentation", "modeling"},
			},
			{
				Position:     3,
				Role:         "Analyst",
				Ladder:       []string{models.Tier2, models.Tier4},
				RequiredTags: []string{"modeling", "research"},
			},
		},
	},
	5: {
		Size: 5,
		Positions: []PositionSpec{
			{
				Position:     1,
				Role:         "Deal Lead",
				Ladder:       []string{models.Tier10, models.Tier8, models.Tier6},
				RequiredTags: []string{"negotiation", "client-management", "valuation"},
			},
			{
				Position:     2,
				Role:         "Sector Specialist",
				Ladder:       []string{models.Tier6, models.Tier8},
				RequiredTags: []string{"sector-expertise", "valuation"},
			},
			{
				Position:     3,
				Role:         "Diligence Manager",
				Ladder:       []string{models.Tier6, models.Tier4},
				RequiredTags: []string{"due-diligence", "legal", "documentation"},
			},
			{
				Position:     4,
				Role:         "Execution Associate",
				Ladder:       []string{models.Tier4, models.Tier6},
				RequiredTags: []string{"documentation", "modeling"},
			},
			{
				Position:     5,
				Role:         "Analyst",
				Ladder:       []string{models.Tier2, models.Tier4},
				RequiredTags: []string{"modeling", "research"},
			},
		},
	},
}

func shapeForSize(size int) PodShape {
	shape := shapes[size]
	// Copy positions so callers can't mutate the tables.
	out := PodShape{Size: shape.Size, Positions: make([]PositionSpec, len(shape.Positions))}
	copy(out.Positions, shape.Positions)
	return out
}

type ladderFile struct {
	Pods []PodShape `yaml:"pods"`
}

// LoadLadders replaces the built-in ladder tables with shapes read from a
// YAML file. Called once at startup before any staffing runs.
func LoadLadders(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file ladderFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("policy: parse ladder file: %w", err)
	}

	loaded := make(map[int]PodShape, len(file.Pods))
	for _, shape := range file.Pods {
		if shape.Size != len(shape.Positions) {
			return fmt.Errorf("policy: shape size %d has %d positions", shape.Size, len(shape.Positions))
		}
		loaded[shape.Size] = shape
	}
	for _, size := range []int{3, 5} {
		if _, ok := loaded[size]; !ok {
			return fmt.Errorf("policy: ladder file missing size-%d shape", size)
		}
	}

	shapes = loaded
	return nil
}
