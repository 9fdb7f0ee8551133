package settings

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"resortops/internal/domain/billing"
	"resortops/internal/domain/reservations"
)

const (
	DefaultExpireAfterMinutes = 30
	DefaultNoShowGraceHours   = 5
)

var (
	ErrNotFound        = errors.New("settings: document not found")
	ErrInvalidSettings = errors.New("settings: invalid values")
)

type Reservations struct {
	CancellationPolicy reservations.CancellationPolicy
	ExpireAfterMinutes int
}

type Hotel struct {
	NoShowGraceHours int
}

type Tax struct {
	Name    string
	Percent decimal.Decimal
}

// Settings is the admin-editable configuration document.
type Settings struct {
	Reservations Reservations
	Hotel        Hotel
	Taxes        []Tax
	UpdatedAt    time.Time
}

func Defaults() Settings {
	return Settings{
		Reservations: Reservations{ExpireAfterMinutes: DefaultExpireAfterMinutes},
		Hotel:        Hotel{NoShowGraceHours: DefaultNoShowGraceHours},
	}
}

func (s Settings) Validate() error {
	p := s.Reservations.CancellationPolicy
	if p.RefundablePercentage < 0 || p.RefundablePercentage > 100 || p.RefundableUntilInHours < 0 {
		return ErrInvalidSettings
	}
	if s.Reservations.ExpireAfterMinutes < 0 || s.Hotel.NoShowGraceHours < 1 {
		return ErrInvalidSettings
	}
	for _, tax := range s.Taxes {
		if tax.Name == "" || tax.Percent.IsNegative() {
			return ErrInvalidSettings
		}
	}
	return nil
}

// LockTTL is how long an unpaid reservation holds its rooms. Zero falls back.
func (s Settings) LockTTL(fallback time.Duration) time.Duration {
	if s.Reservations.ExpireAfterMinutes <= 0 {
		return fallback
	}
	return time.Duration(s.Reservations.ExpireAfterMinutes) * time.Minute
}

// NoShowGrace is how long after check-in a confirmed guest may still arrive.
// Documents stored before the grace was set carry zero and read as the default.
func (s Settings) NoShowGrace() time.Duration {
	hours := s.Hotel.NoShowGraceHours
	if hours <= 0 {
		hours = DefaultNoShowGraceHours
	}
	return time.Duration(hours) * time.Hour
}

func (s Settings) TaxRates() []billing.TaxRate {
	out := make([]billing.TaxRate, 0, len(s.Taxes))
	for _, tax := range s.Taxes {
		out = append(out, billing.TaxRate{Name: tax.Name, Percent: tax.Percent})
	}
	return out
}

type Repository interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

// Provider hands out the current settings to components that need them.
type Provider interface {
	Current(ctx context.Context) (Settings, error)
	Invalidate()
}

// CachedProvider reads the settings document at most once per TTL.
type CachedProvider struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	cached  Settings
	fetched time.Time
	valid   bool
}

func NewCachedProvider(repo Repository, ttl time.Duration) *CachedProvider {
	return &CachedProvider{repo: repo, ttl: ttl, now: time.Now}
}

func (p *CachedProvider) Current(ctx context.Context) (Settings, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.valid && p.now().Sub(p.fetched) < p.ttl {
		return p.cached, nil
	}
	s, err := p.repo.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		s, err = Defaults(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	p.cached = s
	p.fetched = p.now()
	p.valid = true
	return s, nil
}

func (p *CachedProvider) Invalidate() {
	p.mu.Lock()
	p.valid = false
	p.mu.Unlock()
}

// Static always returns the same settings.
type Static Settings

func (s Static) Current(context.Context) (Settings, error) { return Settings(s), nil }
func (Static) Invalidate()                                 {}
