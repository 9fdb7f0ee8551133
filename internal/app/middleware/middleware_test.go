package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resortops/internal/app/apperr"
	"resortops/internal/app/commands"
	"resortops/internal/app/uow"
)

type bookRoom struct {
	Room  string `validate:"required"`
	Night int    `validate:"gte=1"`
	Token string
}

func (bookRoom) Key() string              { return "test.book_room" }
func (c bookRoom) IdempotencyKey() string { return c.Token }
func (bookRoom) ResultPrototype() any     { return &bookResult{} }

type bookResult struct {
	Ref string `json:"ref"`
}

type memStore struct {
	mu   sync.Mutex
	recs map[string]IdempotencyRecord
}

func (s *memStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[key]
	return rec, ok, nil
}

func (s *memStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.Key] = rec
	return nil
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	calls := 0
	reg := commands.NewRegistry()
	commands.Register[bookRoom, *bookResult](reg, commands.HandlerFunc[bookRoom, *bookResult](func(ctx context.Context, cmd bookRoom) (*bookResult, error) {
		calls++
		return &bookResult{Ref: "RSV-1"}, nil
	}))
	bus := ChainCommands(reg, Idempotency(&memStore{recs: map[string]IdempotencyRecord{}}))
	ctx := context.Background()

	first, err := commands.Dispatch[bookRoom, *bookResult](ctx, bus, bookRoom{Room: "R1", Night: 1, Token: "k1"})
	require.NoError(t, err)
	second, err := commands.Dispatch[bookRoom, *bookResult](ctx, bus, bookRoom{Room: "R1", Night: 1, Token: "k1"})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first.Ref, second.Ref)
}

func TestIdempotencyDoesNotStoreInternalFailures(t *testing.T) {
	calls := 0
	reg := commands.NewRegistry()
	commands.Register[bookRoom, *bookResult](reg, commands.HandlerFunc[bookRoom, *bookResult](func(ctx context.Context, cmd bookRoom) (*bookResult, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("db down")
		}
		return nil, apperr.Validation(nil, "room taken")
	}))
	bus := ChainCommands(reg, Idempotency(&memStore{recs: map[string]IdempotencyRecord{}}))
	ctx := context.Background()
	cmd := bookRoom{Room: "R1", Night: 1, Token: "k1"}

	_, err := bus.Dispatch(ctx, cmd)
	require.Error(t, err)
	_, err = bus.Dispatch(ctx, cmd)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = bus.Dispatch(ctx, cmd)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, 2, calls)
}

func TestValidationRejectsBadCommands(t *testing.T) {
	reg := commands.NewRegistry()
	commands.Register[bookRoom, *bookResult](reg, commands.HandlerFunc[bookRoom, *bookResult](func(ctx context.Context, cmd bookRoom) (*bookResult, error) {
		return &bookResult{}, nil
	}))
	bus := ChainCommands(reg, Validation(NewStructValidator()))

	_, err := bus.Dispatch(context.Background(), bookRoom{Night: 0})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Room is required")
}

type fakeUnit struct {
	uow.UnitOfWork
	hooks      uow.Hooks
	committed  bool
	rolledBack bool
}

func (u *fakeUnit) AfterCommit(fn func(context.Context)) { u.hooks.Add(fn) }
func (u *fakeUnit) Commit(ctx context.Context) error {
	u.committed = true
	u.hooks.Run(ctx)
	return nil
}
func (u *fakeUnit) Rollback(context.Context) error {
	u.rolledBack = true
	u.hooks.Discard()
	return nil
}

type fakeFactory struct{ units []*fakeUnit }

func (f *fakeFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	u := &fakeUnit{}
	f.units = append(f.units, u)
	return u, nil
}

func TestTransactionCommitsOrRollsBack(t *testing.T) {
	factory := &fakeFactory{}
	mailed := 0
	reg := commands.NewRegistry()
	commands.Register[bookRoom, *bookResult](reg, commands.HandlerFunc[bookRoom, *bookResult](func(ctx context.Context, cmd bookRoom) (*bookResult, error) {
		unit, ok := uow.FromContext(ctx)
		require.True(t, ok)
		unit.AfterCommit(func(context.Context) { mailed++ })
		if cmd.Room == "bad" {
			return nil, errors.New("fail")
		}
		return &bookResult{}, nil
	}))
	bus := ChainCommands(reg, Transaction(factory, nil))

	_, err := bus.Dispatch(context.Background(), bookRoom{Room: "R1"})
	require.NoError(t, err)
	_, err = bus.Dispatch(context.Background(), bookRoom{Room: "bad"})
	require.Error(t, err)

	require.Len(t, factory.units, 2)
	assert.True(t, factory.units[0].committed)
	assert.True(t, factory.units[1].rolledBack)
	assert.Equal(t, 1, mailed, "hooks only run after commit")
}

type wakeCounter struct{ n int }

func (w *wakeCounter) Wake() { w.n++ }

func TestOutboxNotifyWakesOnlyOnSuccess(t *testing.T) {
	waker := &wakeCounter{}
	fail := true
	base := commandFunc(func(context.Context, commands.Command) (any, error) {
		if fail {
			return nil, errors.New("rolled back")
		}
		return &bookResult{Ref: "ok"}, nil
	})
	bus := ChainCommands(base, OutboxNotify(waker))

	_, err := bus.Dispatch(context.Background(), bookRoom{Room: "R101", Night: 1})
	require.Error(t, err)
	assert.Zero(t, waker.n)

	fail = false
	_, err = bus.Dispatch(context.Background(), bookRoom{Room: "R101", Night: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, waker.n)
}
