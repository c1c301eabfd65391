package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/soyeahso/whatsapp-relay/internal/config"
	"github.com/soyeahso/whatsapp-relay/internal/directory"
	"github.com/soyeahso/whatsapp-relay/internal/gateway"
	"github.com/soyeahso/whatsapp-relay/internal/hooks"
	"github.com/soyeahso/whatsapp-relay/internal/identity"
	"github.com/soyeahso/whatsapp-relay/internal/logging"
	"github.com/soyeahso/whatsapp-relay/internal/routing"
	"github.com/soyeahso/whatsapp-relay/internal/store"
	"github.com/soyeahso/whatsapp-relay/internal/whatsapp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds how long in-flight sends may take after a signal.
const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var (
		port    int
		bind    string
		handler string
		dirKind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Webhook.Port = port
			}
			if bind != "" {
				cfg.Webhook.Bind = bind
			}
			if handler != "" {
				cfg.Routing.Handler = handler
			}
			if dirKind != "" {
				cfg.Directory.Store = dirKind
			}

			log = logging.New(nil, resolveLogLevel(cfg.Logging.Level))
			hookMgr := hooks.NewManager(log)
			hookMgr.On(hooks.EventConnected, "log", func(_ context.Context, p hooks.Payload) error {
				log.Info().Interface("addr", p.Data["addr"]).Msg("relay connected")
				return nil
			})

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := config.RequireCredentials(&cfg); err != nil {
				hookMgr.Emit(ctx, hooks.EventError, map[string]any{"error": err.Error()})
				return err
			}

			if issues := config.Validate(&cfg); len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			dir, closeDir, err := openDirectory(cfg.Directory)
			if err != nil {
				return err
			}
			defer closeDir()

			resolver := identity.New(dir, cfg.Directory.DefaultLanguage, log, identity.WithHooks(hookMgr))
			ch := whatsapp.New(cfg, resolver, log, whatsapp.WithHooks(hookMgr))

			h, err := routing.HandlerByName(cfg.Routing.Handler)
			if err != nil {
				return err
			}
			router := routing.NewRouter(ch, h, hookMgr, log)
			router.Wire()

			if err := ch.Start(ctx); err != nil {
				hookMgr.Emit(ctx, hooks.EventError, map[string]any{"error": err.Error()})
				return err
			}

			srv := gateway.New(cfg.Webhook, log,
				gateway.WithChannel(ch),
				gateway.WithDirectory(dir),
				gateway.WithHooks(hookMgr),
			)

			log.Info().
				Str("handler", cfg.Routing.Handler).
				Str("directory", cfg.Directory.Store).
				Msg("message routing active")

			return runRelay(ctx, srv, router, ch)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override webhook port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (auto, lan, loopback, custom)")
	cmd.Flags().StringVar(&handler, "handler", "", "override routing handler (echo, log)")
	cmd.Flags().StringVar(&dirKind, "directory", "", "override directory store (sqlite, memory)")

	return cmd
}

// runRelay serves until ctx is cancelled, then tears down in order: the
// gateway drains in-flight callbacks, the router finishes the messages they
// dispatched, and the channel flushes the replies those queued.
func runRelay(ctx context.Context, srv *gateway.Server, router *routing.Router, ch *whatsapp.Channel) error {
	g, gctx := errgroup.WithContext(ctx)
	serverDone := make(chan struct{})
	g.Go(func() error {
		defer close(serverDone)
		return srv.Start(gctx)
	})
	g.Go(func() error {
		<-serverDone
		router.Wait()
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return ch.Stop(stopCtx)
	})
	return g.Wait()
}

// openDirectory opens the configured user directory. The returned func
// releases it.
func openDirectory(cfg config.DirectoryConfig) (directory.Directory, func(), error) {
	if cfg.Store == "memory" {
		log.Info().Msg("using in-memory user directory")
		return directory.NewMemory(), func() {}, nil
	}

	path := cfg.Path
	if path == "" {
		path = paths.Directory
	}
	db, err := store.Open(path, log)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info().Str("path", path).Msg("using SQLite user directory")
	return store.NewDirectory(db), func() { db.Close() }, nil
}
