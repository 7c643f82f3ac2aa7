package registry

import (
	"github.com/flashtalk/flashtalk/services/logging"
	"go.uber.org/fx"
)

func NewRegistry(logger *logging.Service) *Registry {
	return New(logger)
}

var Options = fx.Options(
	fx.Provide(NewRegistry),
)
