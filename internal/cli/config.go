package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/evcraddock/house-market/internal/app"
	"github.com/evcraddock/house-market/internal/apperr"
	"github.com/evcraddock/house-market/internal/config"
)

// configFile returns the config file named by --config, or the default one.
func configFile() (*config.File, error) {
	if flagConfig != "" {
		return &config.File{Path: flagConfig}, nil
	}
	return config.DefaultFile()
}

// newApp builds the stores without touching the network.
func newApp(ctx context.Context) (*app.App, *config.File, error) {
	file, err := configFile()
	if err != nil {
		return nil, nil, err
	}
	return app.New(ctx, file.Resolve(), file), file, nil
}

// openApp builds the stores and restores the persisted session. An expired
// session is reported on stderr and the command continues signed out.
func openApp(ctx context.Context) (*app.App, error) {
	a, _, err := newApp(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.Session.Initialize(ctx); err != nil {
		if errors.Is(err, apperr.ErrSessionExpired) {
			fmt.Fprintln(os.Stderr, a.Session.Err())
			return a, nil
		}
		a.Close()
		return nil, fmt.Errorf("restoring session: %w", err)
	}
	return a, nil
}

// requireLogin is openApp for commands that only make sense signed in.
func requireLogin(ctx context.Context) (*app.App, error) {
	a, err := openApp(ctx)
	if err != nil {
		return nil, err
	}
	if !a.Session.IsAuthenticated() {
		a.Close()
		return nil, fmt.Errorf("not logged in; run 'hm login' first")
	}
	return a, nil
}
