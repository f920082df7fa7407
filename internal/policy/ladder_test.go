package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ladderYAML = `
pods:
  - size: 3
    positions:
      - position: 1
        role: Deal Lead
        ladder: [tier10]
        tags: [negotiation]
      - position: 2
        role: Execution Associate
        ladder: [tier4]
      - position: 3
        role: Analyst
        ladder: [tier2]
  - size: 5
    positions:
      - {position: 1, role: Deal Lead, ladder: [tier10]}
      - {position: 2, role: Sector Specialist, ladder: [tier6]}
      - {position: 3, role: Diligence Manager, ladder: [tier6]}
      - {position: 4, role: Execution Associate, ladder: [tier4]}
      - {position: 5, role: Analyst, ladder: [tier2]}
`

func writeLadderFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ladders.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func restoreShapes(t *testing.T) {
	t.Helper()
	saved := shapes
	t.Cleanup(func() { shapes = saved })
}

func TestLoadLaddersOverridesDefaults(t *testing.T) {
	restoreShapes(t)

	require.NoError(t, LoadLadders(writeLadderFile(t, ladderYAML)))

	shape, err := Resolve(100_000_000)
	require.NoError(t, err)
	require.Equal(t, 3, shape.Size)
	assert.Equal(t, []string{"tier10"}, shape.Positions[0].Ladder)
	assert.Equal(t, []string{"negotiation"}, shape.Positions[0].RequiredTags)
}

func TestLoadLaddersRejectsMissingShape(t *testing.T) {
	restoreShapes(t)

	onlySmall := `
pods:
  - size: 3
    positions:
      - {position: 1, role: Deal Lead, ladder: [tier8]}
      - {position: 2, role: Execution Associate, ladder: [tier4]}
      - {position: 3, role: Analyst, ladder: [tier2]}
`
	err := LoadLadders(writeLadderFile(t, onlySmall))
	assert.Error(t, err)
}

func TestLoadLaddersRejectsSizeMismatch(t *testing.T) {
	restoreShapes(t)

	mismatched := `
pods:
  - size: 3
    positions:
      - {position: 1, role: Deal Lead, ladder: [tier8]}
`
	err := LoadLadders(writeLadderFile(t, mismatched))
	assert.Error(t, err)
}

func TestLoadLaddersMissingFile(t *testing.T) {
	assert.Error(t, LoadLadders(filepath.Join(t.TempDir(), "nope.yaml")))
}
