package settings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"resortops/internal/app/apperr"
	"resortops/internal/app/commands"
	"resortops/internal/app/dto"
	"resortops/internal/app/queries"
	"resortops/internal/app/support"
	"resortops/internal/app/uow"
	domain "resortops/internal/domain/settings"
)

const (
	getSettingsKey    = "settings.get"
	updateSettingsKey = "settings.update"
)

type GetSettingsQuery struct{}

func (GetSettingsQuery) Key() string { return getSettingsKey }

type GetSettingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h GetSettingsHandler) Handle(ctx context.Context, _ GetSettingsQuery) (*dto.Settings, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	current, err := unit.Settings().Load(execCtx)
	if errors.Is(err, domain.ErrNotFound) {
		current, err = domain.Defaults(), nil
	}
	if err != nil {
		return nil, err
	}
	out := dto.MapSettings(current)
	return &out, nil
}

// UpdateSettingsCommand replaces the reservation related settings document.
type UpdateSettingsCommand struct {
	Settings dto.Settings
	ActorID  string
}

func (UpdateSettingsCommand) Key() string { return updateSettingsKey }

type UpdateSettingsHandler struct {
	UoWFactory uow.UoWFactory
	Provider   domain.Provider
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h UpdateSettingsHandler) Handle(ctx context.Context, cmd UpdateSettingsCommand) (*dto.Settings, error) {
	next := cmd.Settings.ToDomain()
	if err := next.Validate(); err != nil {
		return nil, apperr.Validation(err, "settings values are out of range")
	}
	next.UpdatedAt = h.now()
	err := support.Within(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		if err := unit.Settings().Save(ctx, next); err != nil {
			return err
		}
		if h.Provider != nil {
			provider := h.Provider
			unit.AfterCommit(func(context.Context) { provider.Invalidate() })
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "settings updated", "actor", cmd.ActorID)
	}
	out := dto.MapSettings(next)
	return &out, nil
}

func (h UpdateSettingsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

var (
	_ queries.Handler[GetSettingsQuery, *dto.Settings]       = GetSettingsHandler{}
	_ commands.Handler[UpdateSettingsCommand, *dto.Settings] = UpdateSettingsHandler{}
)
