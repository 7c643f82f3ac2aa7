package gateway

import (
	"go.uber.org/fx"
)

var Options = fx.Options(
	fx.Provide(NewService),
	fx.Provide(NewHandler),
)
