package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	t.Run("nothing leaves canceled", func(t *testing.T) {
		for _, to := range ValidStatuses {
			assert.False(t, CanTransition(StatusCanceled, to), "canceled -> %s", to)
		}
	})

	t.Run("non-terminal statuses move freely", func(t *testing.T) {
		for _, from := range ValidStatuses {
			if from == StatusCanceled {
				continue
			}
			for _, to := range ValidStatuses {
				assert.True(t, CanTransition(from, to), "%s -> %s", from, to)
			}
		}
	})

	t.Run("unknown target rejected", func(t *testing.T) {
		assert.False(t, CanTransition(StatusScheduled, "archived"))
	})
}

func TestFreesSlot(t *testing.T) {
	assert.True(t, FreesSlot(StatusCanceled))
	for _, s := range []string{StatusScheduled, StatusConfirmed, StatusInProgress, StatusDone, StatusNoShow} {
		assert.False(t, FreesSlot(s), s)
	}
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range ValidStatuses {
		assert.True(t, IsValidStatus(s), s)
	}
	assert.False(t, IsValidStatus("pending"))
	assert.False(t, IsValidStatus(""))
}

func TestIsValidPaymentStatus(t *testing.T) {
	for _, s := range ValidPaymentStatuses {
		assert.True(t, IsValidPaymentStatus(s), s)
	}
	assert.False(t, IsValidPaymentStatus("scheduled"))
}
