package tasks

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("tasks",
	fx.Provide(NewRunner),
	fx.Invoke(registerDrain),
)

func registerDrain(lc fx.Lifecycle, r *Runner) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return r.Drain(ctx)
		},
	})
}
