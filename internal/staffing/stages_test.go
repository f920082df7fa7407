package staffing

import (
	"testing"

	"github.com/arnold/dealpods-api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransition(t *testing.T) {
	cases := []struct {
		name    string
		current string
		next    string
		wantErr bool
	}{
		{"forward one step", models.StageOrigination, models.StageStructuring, false},
		{"forward skipping stages", models.StageOrigination, models.StageClosing, false},
		{"same stage is idempotent", models.StageDiligence, models.StageDiligence, false},
		{"backward", models.StageNegotiation, models.StageStructuring, true},
		{"unknown target", models.StageOrigination, "liquidation", true},
		{"unknown current", "weird", models.StageClosing, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTransition(tc.current, tc.next)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStageIndexOrder(t *testing.T) {
	assert.Equal(t, 0, StageIndex(models.StageOrigination))
	assert.Equal(t, 5, StageIndex(models.StageIntegration))
	assert.Equal(t, -1, StageIndex("nope"))
}

func TestLockMapTryAcquire(t *testing.T) {
	locks := NewLockMap()
	dealA := uuid.New()
	dealB := uuid.New()

	release, ok := locks.TryAcquire(dealA)
	require.True(t, ok)

	_, ok = locks.TryAcquire(dealA)
	assert.False(t, ok, "second acquire on the same deal fails fast")

	releaseB, ok := locks.TryAcquire(dealB)
	assert.True(t, ok, "locks are per deal")
	releaseB()

	release()
	release2, ok := locks.TryAcquire(dealA)
	assert.True(t, ok, "released lock can be taken again")
	release2()
}
