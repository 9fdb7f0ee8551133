package middleware

import (
	"context"

	"resortops/internal/app/commands"
	"resortops/internal/app/uow"
)

// NonTransactional is implemented by commands that manage their own units,
// such as sweeps that commit item by item.
type NonTransactional interface {
	SkipTransaction() bool
}

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction runs each command inside one unit of work, committing on success.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if nt, ok := cmd.(NonTransactional); ok && nt.SkipTransaction() {
				return next.Dispatch(ctx, cmd)
			}
			if _, ok := uow.FromContext(ctx); ok {
				return next.Dispatch(ctx, cmd)
			}
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, err
			}
			execCtx := uow.Bind(ctx, unit)
			res, err := next.Dispatch(execCtx, cmd)
			if err != nil {
				_ = unit.Rollback(execCtx)
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
