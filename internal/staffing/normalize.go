package staffing

import (
	"log"
	"strings"

	"github.com/arnold/dealpods-api/internal/models"
	"github.com/arnold/dealpods-api/internal/planner"
	"github.com/arnold/dealpods-api/internal/policy"
	"github.com/google/uuid"
)

// NormalizeMembers reconciles an externally generated staffing proposal
// against the deterministic policy shape and roster. The proposal is
// untrusted: its size is overridden, unknown or duplicate users are
// dropped, the prior-stage lead is forced into position 1, and open seats
// are filled from the roster by ladder order preferring the lowest
// capacity score. The returned slice is ordered by position with the lead
// first.
//
// If the prior lead no longer exists in the roster, the proposal's own
// lead is used instead of failing the formation.
func NormalizeMembers(p *planner.Proposal, shape policy.PodShape, roster []models.User, priorLeadID *uuid.UUID, scores map[uuid.UUID]int) ([]models.PodMember, error) {
	size := shape.Size
	if p.PodSize != 0 && p.PodSize != size {
		log.Printf("staffing: proposal pod size %d overridden by policy size %d", p.PodSize, size)
	}

	rosterByID := make(map[uuid.UUID]models.User, len(roster))
	for _, u := range roster {
		rosterByID[u.ID] = u
	}

	// Sanitize candidates: resolvable, present in the roster, first
	// occurrence wins.
	type candidate struct {
		user models.User
		src  planner.ProposedMember
	}
	var candidates []candidate
	seen := make(map[uuid.UUID]bool)
	for _, pm := range p.PodMembers {
		id, err := uuid.Parse(pm.UserID)
		if err != nil {
			log.Printf("staffing: dropping proposed member with invalid id %q", pm.UserID)
			continue
		}
		u, ok := rosterByID[id]
		if !ok {
			log.Printf("staffing: dropping proposed member %s: not in roster", pm.UserID)
			continue
		}
		if seen[id] {
			log.Printf("staffing: dropping duplicate proposed member %s", pm.UserID)
			continue
		}
		seen[id] = true
		candidates = append(candidates, candidate{user: u, src: pm})
	}

	// The proposal's own idea of a lead: explicit flag, then position 1,
	// then the first member.
	var proposalLead *candidate
	for i := range candidates {
		if candidates[i].src.IsLead {
			proposalLead = &candidates[i]
			break
		}
	}
	if proposalLead == nil {
		for i := range candidates {
			if candidates[i].src.Position == 1 {
				proposalLead = &candidates[i]
				break
			}
		}
	}
	if proposalLead == nil && len(candidates) > 0 {
		proposalLead = &candidates[0]
	}

	// Lead persistence: a prior-stage lead still in the roster always
	// takes position 1. A deactivated prior lead degrades to the
	// proposal's pick.
	var lead *candidate
	leadRationale := ""
	if priorLeadID != nil {
		if u, ok := rosterByID[*priorLeadID]; ok {
			if proposalLead == nil || proposalLead.user.ID != u.ID {
				log.Printf("staffing: forcing prior lead %s into position 1", u.ID)
				leadRationale = "prior-stage lead carried forward by policy"
			}
			lead = &candidate{user: u}
			if proposalLead != nil && proposalLead.user.ID == u.ID {
				lead.src = proposalLead.src
			}
		} else {
			log.Printf("staffing: prior lead %s missing from roster, falling back to proposed lead", *priorLeadID)
			lead = proposalLead
		}
	} else {
		lead = proposalLead
	}

	// No usable lead from the proposal at all: pick one from the roster
	// via the lead position's ladder.
	if lead == nil {
		u, ok := pickByLadder(shape.Positions[0], roster, scores, nil)
		if !ok {
			return nil, &PolicyViolationError{Reason: "no lead candidate available"}
		}
		lead = &candidate{user: u}
		leadRationale = "no lead proposed; selected by policy ladder"
	}

	// Seat the lead, then the surviving candidates in proposal order,
	// truncated to policy size.
	seats := make([]*candidate, 0, size)
	seats = append(seats, lead)
	used := map[uuid.UUID]bool{lead.user.ID: true}
	for i := range candidates {
		if len(seats) == size {
			break
		}
		if used[candidates[i].user.ID] {
			continue
		}
		used[candidates[i].user.ID] = true
		seats = append(seats, &candidates[i])
	}

	// Fill any open seats from the roster by ladder. A seat with no
	// available candidate at any acceptable tier stays open and is
	// reported, never silently padded.
	for len(seats) < size {
		spec := shape.Positions[len(seats)]
		u, ok := pickByLadder(spec, roster, scores, used)
		if !ok {
			log.Printf("staffing: position %d (%s) left unassigned: no candidate at any acceptable tier", spec.Position, spec.Role)
			break
		}
		used[u.ID] = true
		seats = append(seats, &candidate{user: u})
	}

	members := make([]models.PodMember, len(seats))
	for i, seat := range seats {
		spec := shape.Positions[i]
		rationale := seat.src.Rationale
		if i == 0 && leadRationale != "" {
			rationale = leadRationale
		}
		if rationale == "" && seat.src.UserID == "" {
			rationale = "filled from roster by policy ladder"
		}
		members[i] = models.PodMember{
			UserID:       seat.user.ID,
			Position:     spec.Position,
			Role:         spec.Role,
			DealTeamTier: seat.user.DealTeamTier,
			RequiredTags: strings.Join(spec.RequiredTags, ","),
			MatchedTags:  strings.Join(policy.MatchTags(spec.RequiredTags, seat.user.TagList()), ","),
			Rationale:    rationale,
			IsLead:       i == 0,
		}
	}

	if err := assertIntegrity(members, size, priorLeadID, rosterByID); err != nil {
		return nil, err
	}
	return members, nil
}

// pickByLadder chooses the least-loaded roster user at the first ladder
// tier that has anyone available, falling back to floaters.
func pickByLadder(spec policy.PositionSpec, roster []models.User, scores map[uuid.UUID]int, used map[uuid.UUID]bool) (models.User, bool) {
	available := make(map[string]int)
	for _, u := range roster {
		if used[u.ID] {
			continue
		}
		available[u.DealTeamTier]++
	}

	tier, ok := spec.ResolveTier(available)
	if !ok {
		return models.User{}, false
	}

	var best models.User
	bestScore := -1
	for _, u := range roster {
		if used[u.ID] || u.DealTeamTier != tier {
			continue
		}
		if bestScore == -1 || scores[u.ID] < bestScore {
			best = u
			bestScore = scores[u.ID]
		}
	}
	return best, bestScore != -1
}

// assertIntegrity re-checks the hard invariants after normalization. Any
// failure here aborts the formation rather than persisting a corrupt pod.
func assertIntegrity(members []models.PodMember, size int, priorLeadID *uuid.UUID, rosterByID map[uuid.UUID]models.User) error {
	if len(members) == 0 {
		return &PolicyViolationError{Reason: "normalized pod has no members"}
	}
	if len(members) > size {
		return &PolicyViolationError{Reason: "normalized pod exceeds policy size"}
	}

	leads := 0
	seen := make(map[uuid.UUID]bool, len(members))
	for _, m := range members {
		if seen[m.UserID] {
			return &PolicyViolationError{Reason: "duplicate user " + m.UserID.String()}
		}
		seen[m.UserID] = true
		if m.IsLead {
			leads++
		}
	}
	if leads != 1 || !members[0].IsLead {
		return &PolicyViolationError{Reason: "pod must have exactly one lead at position 1"}
	}

	if priorLeadID != nil {
		if _, inRoster := rosterByID[*priorLeadID]; inRoster && members[0].UserID != *priorLeadID {
			return &PolicyViolationError{Reason: "prior lead not persisted at position 1"}
		}
	}
	return nil
}
