package policy

import (
	"errors"

	"github.com/arnold/dealpods-api/internal/models"
)

// LargeDealThresholdUSD is the hard cutoff between a 3-seat and a 5-seat
// pod. Externally generated proposals that disagree are overridden.
const LargeDealThresholdUSD = 200_000_000

var ErrInvalidDealValue = errors.New("policy: deal value must be positive")

// PositionSpec describes one seat on a pod: the role it carries, the
// ordered tier ladder used to pick a candidate, and the capability tags
// recorded for audit. Position 1 is always the lead.
type PositionSpec struct {
	Position     int      `yaml:"position"`
	Role         string   `yaml:"role"`
	Ladder       []string `yaml:"ladder"`
	RequiredTags []string `yaml:"tags"`
}

type PodShape struct {
	Size      int            `yaml:"size"`
	Positions []PositionSpec `yaml:"positions"`
}

// SizeFor returns the pod size a deal value requires.
func SizeFor(dealValueUSD int64) int {
	if dealValueUSD > LargeDealThresholdUSD {
		return 5
	}
	return 3
}

// Resolve maps a deal value onto the required pod shape. Pure; errors only
// on malformed input.
func Resolve(dealValueUSD int64) (PodShape, error) {
	if dealValueUSD <= 0 {
		return PodShape{}, ErrInvalidDealValue
	}
	return shapeForSize(SizeFor(dealValueUSD)), nil
}

// ResolveTier walks the position's ladder and returns the first tier with
// an available candidate. Falls back to floater; if even that is empty the
// second return is false and the seat is reported unassigned rather than
// silently dropped.
func (p PositionSpec) ResolveTier(available map[string]int) (string, bool) {
	for _, tier := range p.Ladder {
		if available[tier] > 0 {
			return tier, true
		}
	}
	if available[models.Floater] > 0 {
		return models.Floater, true
	}
	return "", false
}

// MatchTags intersects a user's tags with a position's required tags,
// preserving required-tag priority order. Any subset match is acceptable;
// the result is recorded for audit.
func MatchTags(required, userTags []string) []string {
	have := make(map[string]bool, len(userTags))
	for _, t := range userTags {
		have[t] = true
	}
	var matched []string
	for _, t := range required {
		if have[t] {
			matched = append(matched, t)
		}
	}
	return matched
}
