package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWalksTheChain(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("create reservation: %w", Policy(base, "refund window closed"))

	assert.Equal(t, KindPolicy, KindOf(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, KindInternal, KindOf(base))
	assert.Equal(t, "refund window closed", Policy(base, "refund window closed").Error())
	assert.Equal(t, "refund window closed: boom", Policy(base, "refund window closed").Detail())
}

func TestUnavailabilityCarriesConflicts(t *testing.T) {
	err := Unavailability([]Conflict{{Room: "R101", Reason: "room not free"}})
	e, ok := As(fmt.Errorf("wrap: %w", err))
	assert.True(t, ok)
	assert.Equal(t, KindValidation, e.Kind)
	assert.Len(t, e.Conflicts, 1)
}
