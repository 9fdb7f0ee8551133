package reservations

import (
	"context"

	"resortops/internal/app/support"
	"resortops/internal/app/uow"
)

func withinUnit(ctx context.Context, factory uow.UoWFactory, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	return support.Within(ctx, factory, fn)
}
