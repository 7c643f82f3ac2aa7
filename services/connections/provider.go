package connections

import (
	"context"

	"go.uber.org/fx"
)

func purgeOnStartup(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.Purge(ctx)
		},
	})
}

var Options = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(purgeOnStartup),
)
