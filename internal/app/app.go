// Package app wires the client stores together for one session.
package app

import (
	"context"
	"log/slog"

	"github.com/evcraddock/house-market/internal/assets"
	"github.com/evcraddock/house-market/internal/catalog"
	"github.com/evcraddock/house-market/internal/chat"
	"github.com/evcraddock/house-market/internal/client"
	"github.com/evcraddock/house-market/internal/config"
	"github.com/evcraddock/house-market/internal/realtime"
	"github.com/evcraddock/house-market/internal/review"
	"github.com/evcraddock/house-market/internal/session"
)

// App holds every store of a session. Stores are constructed here and
// passed to each other explicitly.
type App struct {
	Config  config.Config
	Client  *client.Client
	Session *session.Store
	Catalog *catalog.Store
	Reviews *review.Store
	Channel *realtime.Manager
	Chat    *chat.Store
}

// New builds the stores for cfg. The session credential is kept in creds.
// Call Close when done.
func New(ctx context.Context, cfg config.Config, creds session.CredentialStore) *App {
	return NewWithSettings(ctx, cfg, creds, realtime.DefaultSettings())
}

// NewWithSettings is New with explicit realtime settings.
func NewWithSettings(ctx context.Context, cfg config.Config, creds session.CredentialStore, rt *realtime.Settings) *App {
	c := client.New(cfg.ServerURL, "")
	c.SetRecommendURL(cfg.RecommendURL)

	sess := session.New(c, creds)
	ch := realtime.NewManager(ctx, cfg.SocketURL, rt)
	reviews := review.NewStore(c, ch, sess)

	a := &App{
		Config:  cfg,
		Client:  c,
		Session: sess,
		Catalog: catalog.New(c, sess),
		Reviews: reviews,
		Channel: ch,
		Chat:    chat.NewStore(c),
	}

	sess.OnLogout(func() {
		reviews.Close()
		if err := ch.Disconnect(); err != nil {
			slog.Warn("disconnecting realtime channel", "error", err)
		}
	})
	return a
}

// Connect opens the realtime channel as the signed-in user.
func (a *App) Connect(ctx context.Context) error {
	user, err := a.Session.RequireUser()
	if err != nil {
		return err
	}
	return a.Channel.Connect(ctx, user.NormalizedID())
}

// Assets returns an image host client built from the configuration.
func (a *App) Assets() (*assets.Client, error) {
	return assets.NewClient(assets.Config{
		Cloud:     a.Config.AssetCloud,
		Preset:    a.Config.AssetPreset,
		APIKey:    a.Config.AssetAPIKey,
		APISecret: a.Config.AssetAPISecret,
	})
}

// Close releases the realtime channel.
func (a *App) Close() {
	a.Channel.Close()
}
