// Package app assembles the service graph and owns the process
// lifecycle.
package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flashtalk/flashtalk/config"
	"github.com/flashtalk/flashtalk/database"
	"github.com/flashtalk/flashtalk/gateway"
	"github.com/flashtalk/flashtalk/handlers"
	"github.com/flashtalk/flashtalk/registry"
	"github.com/flashtalk/flashtalk/server"
	"github.com/flashtalk/flashtalk/services/chats"
	"github.com/flashtalk/flashtalk/services/connections"
	"github.com/flashtalk/flashtalk/services/events"
	"github.com/flashtalk/flashtalk/services/logging"
	"github.com/flashtalk/flashtalk/services/metrics"
	"github.com/flashtalk/flashtalk/services/sessionstore"
	"github.com/flashtalk/flashtalk/services/tokens"
	"github.com/flashtalk/flashtalk/services/users"
	"go.uber.org/fx"
)

type App struct {
	fx *fx.App
}

// New builds the application. Pass a nil config to load it from the
// environment.
func New(customConfig *config.Config) *App {
	return &App{
		fx: fx.New(
			config.NewProvider(customConfig),
			fx.Provide(func() *database.ModelsOption {
				return database.WithModels(
					&users.User{},
					&sessionstore.RefreshCredential{},
					&chats.Chat{},
					&chats.ChatParticipant{},
					&chats.Message{},
					&connections.Connection{},
				)
			}),
			database.Module,
			logging.Module,
			sessionstore.Options,
			tokens.Options,
			users.Options,
			chats.Options,
			connections.Options,
			events.Options,
			metrics.Options,
			registry.Options,
			gateway.Options,
			handlers.Options,
			server.Options,
			fx.Invoke(registerRoutes),
			fx.NopLogger,
		),
	}
}

func registerRoutes(srv *server.Server, tokensSvc *tokens.Service, auth *handlers.AuthHandler, usersH *handlers.UsersHandler, chatsH *handlers.ChatsHandler, connsH *handlers.ConnectionsHandler, health *handlers.HealthHandler, ws *gateway.Handler, metricsSvc *metrics.Service) {
	handlers.RegisterRoutes(srv.Echo(), tokensSvc, auth, usersH, chatsH, connsH, health, ws, metricsSvc)
}

func (a *App) Start(ctx context.Context) error {
	return a.fx.Start(ctx)
}

func (a *App) Stop(ctx context.Context) error {
	return a.fx.Stop(ctx)
}

// Run starts the app and blocks until SIGINT or SIGTERM.
func (a *App) Run() {
	if err := a.Start(context.Background()); err != nil {
		log.Fatalf("failed to start application: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Stop(ctx); err != nil {
		log.Printf("failed to stop application gracefully: %v", err)
	}
}
