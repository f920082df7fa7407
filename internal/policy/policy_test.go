package policy

import (
	"testing"

	"github.com/arnold/dealpods-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSizeThreshold(t *testing.T) {
	cases := []struct {
		name  string
		value int64
		size  int
	}{
		{"small deal", 150_000_000, 3},
		{"exactly at threshold", 200_000_000, 3},
		{"just over threshold", 200_000_001, 5},
		{"large deal", 250_000_000, 5},
		{"tiny deal", 1, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			shape, err := Resolve(tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.size, shape.Size)
			assert.Len(t, shape.Positions, tc.size)
		})
	}
}

func TestResolveRejectsNonPositiveValue(t *testing.T) {
	_, err := Resolve(0)
	assert.ErrorIs(t, err, ErrInvalidDealValue)

	_, err = Resolve(-5)
	assert.ErrorIs(t, err, ErrInvalidDealValue)
}

func TestResolveLeadIsPositionOne(t *testing.T) {
	for _, value := range []int64{100_000_000, 300_000_000} {
		shape, err := Resolve(value)
		require.NoError(t, err)
		assert.Equal(t, 1, shape.Positions[0].Position)
		assert.Equal(t, "Deal Lead", shape.Positions[0].Role)
	}
}

func TestResolveTierWalksLadder(t *testing.T) {
	spec := PositionSpec{
		Position: 1,
		Role:     "Deal Lead",
		Ladder:   []string{models.Tier8, models.Tier10, models.Tier6},
	}

	tier, ok := spec.ResolveTier(map[string]int{models.Tier8: 1, models.Tier6: 2})
	require.True(t, ok)
	assert.Equal(t, models.Tier8, tier, "first ladder tier with a candidate wins")

	tier, ok = spec.ResolveTier(map[string]int{models.Tier6: 1})
	require.True(t, ok)
	assert.Equal(t, models.Tier6, tier, "ladder falls through to later tiers")
}

func TestResolveTierFallsBackToFloater(t *testing.T) {
	spec := PositionSpec{Position: 2, Role: "Analyst", Ladder: []string{models.Tier2}}

	tier, ok := spec.ResolveTier(map[string]int{models.Floater: 1})
	require.True(t, ok)
	assert.Equal(t, models.Floater, tier)
}

func TestResolveTierReportsUnassigned(t *testing.T) {
	spec := PositionSpec{Position: 2, Role: "Analyst", Ladder: []string{models.Tier2}}

	_, ok := spec.ResolveTier(map[string]int{models.Tier10: 3})
	assert.False(t, ok, "no acceptable tier and no floater means unassigned, not silent")
}

func TestMatchTagsPreservesPriorityOrder(t *testing.T) {
	required := []string{"negotiation", "client-management", "valuation"}
	userTags := []string{"valuation", "negotiation", "golf"}

	matched := MatchTags(required, userTags)
	assert.Equal(t, []string{"negotiation", "valuation"}, matched)
}

func TestMatchTagsEmptyIntersection(t *testing.T) {
	assert.Empty(t, MatchTags([]string{"modeling"}, []string{"legal"}))
	assert.Empty(t, MatchTags(nil, []string{"legal"}))
}
