package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCompensatesCompletedStepsInReverse(t *testing.T) {
	var trail []string
	step := func(name string, fail bool) Step {
		return Step{
			Name: name,
			Execute: func(context.Context) error {
				trail = append(trail, "do "+name)
				if fail {
					return errors.New("boom")
				}
				return nil
			},
			Compensate: func(context.Context) error {
				trail = append(trail, "undo "+name)
				return nil
			},
		}
	}

	err := Runner{Name: "test"}.Run(context.Background(), step("claim", false), step("persist", false), step("invoice", true), step("mail", false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoice: boom")
	assert.Equal(t, []string{"do claim", "do persist", "do invoice", "undo persist", "undo claim"}, trail)
}

func TestRunReportsCompensationFailures(t *testing.T) {
	undoErr := errors.New("cannot undo")
	stepErr := errors.New("step failed")
	err := Runner{}.Run(context.Background(),
		Step{Name: "a", Execute: func(context.Context) error { return nil }, Compensate: func(context.Context) error { return undoErr }},
		Step{Name: "b", Execute: func(context.Context) error { return stepErr }},
	)
	assert.ErrorIs(t, err, stepErr)
	assert.ErrorIs(t, err, undoErr)
}

func TestRunSucceeds(t *testing.T) {
	ran := 0
	err := Runner{}.Run(context.Background(), Step{Name: "a", Execute: func(context.Context) error { ran++; return nil }})
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
}
