package leave

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	all := []Status{StatusPending, StatusHeadApproved, StatusHeadRejected, StatusApproved, StatusRejected}

	legal := map[Status][]Status{
		StatusPending:      {StatusHeadApproved, StatusHeadRejected},
		StatusHeadApproved: {StatusApproved, StatusRejected},
	}

	for _, from := range all {
		allowed := map[Status]bool{}
		for _, to := range legal[from] {
			allowed[to] = true
		}
		for _, to := range all {
			assert.Equal(t, allowed[to], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusHeadApproved.Terminal())
	assert.True(t, StatusHeadRejected.Terminal())
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
}

func TestStatusInFlight(t *testing.T) {
	assert.True(t, StatusPending.InFlight())
	assert.True(t, StatusHeadApproved.InFlight())
	assert.False(t, StatusHeadRejected.InFlight())
	assert.False(t, StatusApproved.InFlight())
	assert.False(t, StatusRejected.InFlight())
}
