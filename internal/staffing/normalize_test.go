package staffing

import (
	"errors"
	"testing"

	"github.com/arnold/dealpods-api/internal/models"
	"github.com/arnold/dealpods-api/internal/planner"
	"github.com/arnold/dealpods-api/internal/policy"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser(tier, tags string) models.User {
	return models.User{ID: uuid.New(), DealTeamTier: tier, Tags: tags, IsActive: true}
}

func smallShape(t *testing.T) policy.PodShape {
	t.Helper()
	shape, err := policy.Resolve(150_000_000)
	require.NoError(t, err)
	require.Equal(t, 3, shape.Size)
	return shape
}

func TestNormalizeCleanProposal(t *testing.T) {
	lead := testUser(models.Tier8, "negotiation,valuation,golf")
	assoc := testUser(models.Tier4, "due-diligence,modeling")
	analyst := testUser(models.Tier2, "research")
	roster := []models.User{lead, assoc, analyst}

	p := &planner.Proposal{
		PodSize: 3,
		PodMembers: []planner.ProposedMember{
			{UserID: lead.ID.String(), Position: 1, IsLead: true, Rationale: "strong sector history"},
			{UserID: assoc.ID.String(), Position: 2},
			{UserID: analyst.ID.String(), Position: 3},
		},
	}

	members, err := NormalizeMembers(p, smallShape(t), roster, nil, nil)
	require.NoError(t, err)
	require.Len(t, members, 3)

	assert.Equal(t, lead.ID, members[0].UserID)
	assert.True(t, members[0].IsLead)
	assert.Equal(t, 1, members[0].Position)
	assert.Equal(t, "Deal Lead", members[0].Role)
	assert.Equal(t, "strong sector history", members[0].Rationale)
	assert.Equal(t, "negotiation,valuation", members[0].MatchedTags)

	assert.Equal(t, assoc.ID, members[1].UserID)
	assert.False(t, members[1].IsLead)
	assert.Equal(t, "Execution Associate", members[1].Role)
	assert.Equal(t, analyst.ID, members[2].UserID)
}

func TestNormalizeOverridesProposedSize(t *testing.T) {
	roster := []models.User{
		testUser(models.Tier8, ""),
		testUser(models.Tier6, ""),
		testUser(models.Tier6, ""),
		testUser(models.Tier4, ""),
		testUser(models.Tier2, ""),
	}

	p := &planner.Proposal{PodSize: 5}
	for i, u := range roster {
		pm := planner.ProposedMember{UserID: u.ID.String(), Position: i + 1}
		if i == 0 {
			pm.IsLead = true
		}
		p.PodMembers = append(p.PodMembers, pm)
	}

	members, err := NormalizeMembers(p, smallShape(t), roster, nil, nil)
	require.NoError(t, err)
	assert.Len(t, members, 3, "policy size wins over the proposed size")
}

func TestNormalizePersistsPriorLead(t *testing.T) {
	prior := testUser(models.Tier8, "negotiation")
	proposed := testUser(models.Tier8, "negotiation")
	assoc := testUser(models.Tier4, "")
	analyst := testUser(models.Tier2, "")
	roster := []models.User{prior, proposed, assoc, analyst}

	p := &planner.Proposal{
		PodMembers: []planner.ProposedMember{
			{UserID: proposed.ID.String(), Position: 1, IsLead: true},
			{UserID: assoc.ID.String(), Position: 2},
			{UserID: analyst.ID.String(), Position: 3},
		},
	}

	members, err := NormalizeMembers(p, smallShape(t), roster, &prior.ID, nil)
	require.NoError(t, err)
	require.Len(t, members, 3)

	assert.Equal(t, prior.ID, members[0].UserID, "prior-stage lead keeps position 1")
	assert.True(t, members[0].IsLead)
	assert.Equal(t, "prior-stage lead carried forward by policy", members[0].Rationale)

	// The proposed lead is still a member, just not the lead.
	assert.Equal(t, proposed.ID, members[1].UserID)
	assert.False(t, members[1].IsLead)
}

func TestNormalizeFallsBackWhenPriorLeadGone(t *testing.T) {
	lead := testUser(models.Tier8, "")
	assoc := testUser(models.Tier4, "")
	analyst := testUser(models.Tier2, "")
	roster := []models.User{lead, assoc, analyst}
	departed := uuid.New()

	p := &planner.Proposal{
		PodMembers: []planner.ProposedMember{
			{UserID: lead.ID.String(), Position: 1, IsLead: true},
			{UserID: assoc.ID.String(), Position: 2},
			{UserID: analyst.ID.String(), Position: 3},
		},
	}

	members, err := NormalizeMembers(p, smallShape(t), roster, &departed, nil)
	require.NoError(t, err, "a departed prior lead degrades gracefully")
	assert.Equal(t, lead.ID, members[0].UserID)
	assert.True(t, members[0].IsLead)
}

func TestNormalizeDropsUnknownAndDuplicate(t *testing.T) {
	lead := testUser(models.Tier8, "")
	assoc := testUser(models.Tier4, "")
	busy := testUser(models.Tier2, "")
	idle := testUser(models.Tier2, "")
	roster := []models.User{lead, assoc, busy, idle}
	scores := map[uuid.UUID]int{busy.ID: 60, idle.ID: 10}

	p := &planner.Proposal{
		PodMembers: []planner.ProposedMember{
			{UserID: lead.ID.String(), IsLead: true},
			{UserID: assoc.ID.String()},
			{UserID: assoc.ID.String()}, // duplicate
			{UserID: "not-a-uuid"},
			{UserID: uuid.New().String()}, // not in roster
		},
	}

	members, err := NormalizeMembers(p, smallShape(t), roster, nil, scores)
	require.NoError(t, err)
	require.Len(t, members, 3)

	assert.Equal(t, lead.ID, members[0].UserID)
	assert.Equal(t, assoc.ID, members[1].UserID)
	assert.Equal(t, idle.ID, members[2].UserID, "open seat filled by the least-loaded ladder candidate")
	assert.Equal(t, "filled from roster by policy ladder", members[2].Rationale)
}

func TestNormalizeLeavesUnfillableSeatOpen(t *testing.T) {
	lead := testUser(models.Tier8, "")
	roster := []models.User{lead}

	members, err := NormalizeMembers(&planner.Proposal{}, smallShape(t), roster, nil, nil)
	require.NoError(t, err)
	require.Len(t, members, 1, "seats with no acceptable candidate stay open")
	assert.True(t, members[0].IsLead)
}

func TestNormalizeNoLeadCandidateIsPolicyViolation(t *testing.T) {
	_, err := NormalizeMembers(&planner.Proposal{}, smallShape(t), nil, nil, nil)
	require.Error(t, err)

	var pv *PolicyViolationError
	assert.True(t, errors.As(err, &pv))
}

func TestNormalizeFloaterFallback(t *testing.T) {
	lead := testUser(models.Tier8, "")
	floater := testUser(models.Floater, "")
	roster := []models.User{lead, floater}

	p := &planner.Proposal{
		PodMembers: []planner.ProposedMember{{UserID: lead.ID.String(), IsLead: true}},
	}

	members, err := NormalizeMembers(p, smallShape(t), roster, nil, nil)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, floater.ID, members[1].UserID)
	assert.Equal(t, models.Floater, members[1].DealTeamTier)
}
