package main

import (
	"github.com/gaprio/chatkit/internal/api"
	"github.com/gaprio/chatkit/internal/bus"
	"github.com/gaprio/chatkit/internal/config"
	"github.com/gaprio/chatkit/internal/profile"
	"github.com/gaprio/chatkit/internal/session"
	intsync "github.com/gaprio/chatkit/internal/sync"
)

// runtime bundles the components one-shot commands need. Watch mode
// uses the fx module in internal/app instead.
type runtime struct {
	cfg     *config.Config
	client  *api.Client
	session *session.Store
	engine  *intsync.Engine
	bus     *bus.Bus
}

func newRuntime(profileName string) *runtime {
	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		cfg = config.Default()
	}
	if baseURLFlag != "" {
		cfg.BaseURL = baseURLFlag
	}

	client := api.NewClient(api.WithBaseURL(cfg.BaseURL))
	vault := session.NewFileVault(profile.SessionPath(profileName))
	b := bus.New()
	sess := session.NewStore(vault, client, b, nil)
	client.SetCredentialSource(sess)
	client.SetAuthFailureHook(sess.Invalidate)

	// One-shot commands have no real-time feed; they reload instead.
	engine := intsync.NewEngine(client, nil, sess, b, nil, intsync.Options{
		SearchDebounce: cfg.SearchDebounce(),
		PageSize:       cfg.MessagePageSize,
	})

	return &runtime{cfg: cfg, client: client, session: sess, engine: engine, bus: b}
}
