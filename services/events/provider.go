package events

import (
	"context"

	"go.uber.org/fx"
)

func closeOnShutdown(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return svc.Close()
		},
	})
}

var Options = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(closeOnShutdown),
)
