package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resortops/internal/domain/reservations"
)

type countingRepo struct {
	doc   *Settings
	loads int
}

func (r *countingRepo) Load(context.Context) (Settings, error) {
	r.loads++
	if r.doc == nil {
		return Settings{}, ErrNotFound
	}
	return *r.doc, nil
}

func (r *countingRepo) Save(_ context.Context, s Settings) error {
	r.doc = &s
	return nil
}

func TestCachedProviderFallsBackToDefaults(t *testing.T) {
	p := NewCachedProvider(&countingRepo{}, time.Minute)
	s, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Hour, s.NoShowGrace())
	assert.Equal(t, 30*time.Minute, s.LockTTL(time.Hour))
}

func TestCachedProviderHonoursTTLAndInvalidate(t *testing.T) {
	repo := &countingRepo{}
	clock := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := NewCachedProvider(repo, time.Minute)
	p.now = func() time.Time { return clock }
	ctx := context.Background()

	_, _ = p.Current(ctx)
	_, _ = p.Current(ctx)
	assert.Equal(t, 1, repo.loads)

	doc := Defaults()
	doc.Hotel.NoShowGraceHours = 2
	require.NoError(t, repo.Save(ctx, doc))
	p.Invalidate()
	s, err := p.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, s.NoShowGrace())
	assert.Equal(t, 2, repo.loads)

	clock = clock.Add(2 * time.Minute)
	_, _ = p.Current(ctx)
	assert.Equal(t, 3, repo.loads)
}

func TestValidateRejectsOutOfRangePolicy(t *testing.T) {
	s := Defaults()
	s.Reservations.CancellationPolicy = reservations.CancellationPolicy{IsRefundable: true, RefundablePercentage: 120}
	assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)
	assert.NoError(t, Defaults().Validate())
}

func TestValidateRejectsZeroNoShowGrace(t *testing.T) {
	s := Defaults()
	s.Hotel.NoShowGraceHours = 0
	assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)

	s.Hotel.NoShowGraceHours = 1
	require.NoError(t, s.Validate())
	assert.Equal(t, time.Hour, s.NoShowGrace())
}
