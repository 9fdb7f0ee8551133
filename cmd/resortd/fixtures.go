package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"resortops/internal/app/support"
	"resortops/internal/app/uow"
	"resortops/internal/domain/rooms"
	"resortops/internal/domain/shared/money"
	"resortops/internal/infra/storage/memory"
)

type fixtureFile struct {
	Rooms []roomFixture `json:"rooms"`
	Rates []rateFixture `json:"rates"`
}

type roomFixture struct {
	ID       string `json:"id"`
	Number   string `json:"number"`
	RoomType string `json:"roomType"`
	Status   string `json:"status"`
}

type rateFixture struct {
	RoomType string `json:"roomType"`
	Rate     string `json:"rate"`
	Nightly  int64  `json:"nightly"`
}

type rateWriter interface {
	Put(ctx context.Context, roomType, rate string, nightly money.Money) error
}

type memoryRates struct {
	store *memory.Store
}

func (m memoryRates) Put(_ context.Context, roomType, rate string, nightly money.Money) error {
	m.store.PutRate(roomType, rate, nightly)
	return nil
}

// seeder imports rooms and rates. Rooms that already exist are left untouched.
type seeder struct {
	factory uow.UoWFactory
	rates   rateWriter
}

func (a *application) loadFixtures(ctx context.Context, path string) error {
	if path == "" {
		path = defaultFixturesPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			a.logger.Info("room fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures fixtureFile
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	imported, err := a.seed.apply(ctx, fixtures, time.Now())
	if err != nil {
		return err
	}
	a.logger.Info("room fixtures imported", "rooms", imported, "rates", len(fixtures.Rates), "path", path)
	return nil
}

func (s seeder) apply(ctx context.Context, fixtures fixtureFile, now time.Time) (int, error) {
	for _, fx := range fixtures.Rates {
		if err := s.rates.Put(ctx, fx.RoomType, fx.Rate, money.Francs(fx.Nightly)); err != nil {
			return 0, fmt.Errorf("rate %s/%s: %w", fx.RoomType, fx.Rate, err)
		}
	}
	imported := 0
	err := support.Within(ctx, s.factory, func(ctx context.Context, unit uow.UnitOfWork) error {
		for _, fx := range fixtures.Rooms {
			_, err := unit.Rooms().ByID(ctx, rooms.RoomID(fx.ID))
			if err == nil {
				continue
			}
			if !errors.Is(err, rooms.ErrNotFound) {
				return err
			}
			status := rooms.Status(fx.Status)
			if status == "" {
				status = rooms.StatusFree
			}
			if !status.Valid() {
				return fmt.Errorf("room %s: unknown status %q", fx.ID, fx.Status)
			}
			room := &rooms.Room{ID: rooms.RoomID(fx.ID), Number: fx.Number, RoomType: fx.RoomType, Status: status, UpdatedAt: now.UTC()}
			if err := unit.Rooms().Save(ctx, room); err != nil {
				return fmt.Errorf("room %s: %w", fx.ID, err)
			}
			imported++
		}
		return nil
	})
	return imported, err
}

func defaultFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "rooms.json"),
		filepath.Join("..", "..", "data", "rooms.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
