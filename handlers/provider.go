package handlers

import (
	"go.uber.org/fx"
)

var Options = fx.Options(
	fx.Provide(NewAuthHandler),
	fx.Provide(NewUsersHandler),
	fx.Provide(NewChatsHandler),
	fx.Provide(NewConnectionsHandler),
	fx.Provide(NewHealthHandler),
)
