package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lguibr/sc2-proxy/actorkit"
	"github.com/lguibr/sc2-proxy/config"
	"github.com/lguibr/sc2-proxy/maps"
	"github.com/lguibr/sc2-proxy/ports"
	"github.com/lguibr/sc2-proxy/procadapter"
	"github.com/lguibr/sc2-proxy/server"
	"github.com/lguibr/sc2-proxy/supervisor"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// mapDirsEnvVar names the engine-map search path, colon-separated, used to
// build the maps.Resolver the Lobby's find_map collaborator needs.
const mapDirsEnvVar = "SC2_PROXY_MAP_DIRS"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run implements spec §6's CLI/exit-code contract: 0 on normal shutdown, 1
// on a usage error (more than one positional argument), any other non-zero
// on a fatal startup or runtime error.
func run(args []string) int {
	var usageErr bool

	root := &cobra.Command{
		Use:           "sc2-proxy [config.toml]",
		Short:         "Management and matchmaking proxy for SC2 bot clients",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, positional []string) error {
			if len(positional) > 1 {
				usageErr = true
				return fmt.Errorf("sc2-proxy: too many arguments (expected at most one config path)")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, positional []string) error {
			var cliArg string
			if len(positional) == 1 {
				cliArg = positional[0]
			}
			return runProxy(cliArg)
		},
	}
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sc2-proxy:", err)
		if usageErr {
			return 1
		}
		return 2
	}
	return 0
}

// runProxy loads configuration, wires every collaborator and runs the
// Supervisor alongside its three external-facing tasks (spec §5's
// "parallel tasks, each owning its resources") until one of them exits or a
// termination signal arrives.
func runProxy(cliArg string) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	path := config.ResolvePath(cliArg)
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config %q: %w", path, err)
	}
	logger.Info().Str("path", path).Str("mode", string(cfg.Matchmaking.Mode)).Msg("configuration loaded")

	resolver := maps.NewResolver(mapDirs()...)
	allocator := ports.NewAllocator(cfg.Proxy.Host)
	spawner := procadapter.OSSpawner{Logger: logger.With().Str("component", "process_adapter").Logger()}
	engine := actorkit.NewEngine()
	defer engine.Shutdown(0)

	sup := supervisor.New(cfg, resolver, allocator, spawner, engine, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info().Stringer("signal", sig).Msg("shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	proxyListener := server.NewProxyListener(cfg.Proxy.Addr(), sup, logger)
	diagnostics := server.NewDiagnosticsServer(cfg.Diagnostics.Addr(), sup, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sup.Run(gctx)
		cancel() // a Remote Control Quit or listener failure ends the whole process.
		return nil
	})
	g.Go(func() error { return proxyListener.ListenAndServe(gctx) })
	g.Go(func() error { return diagnostics.ListenAndServe(gctx) })
	if cfg.RemoteController.Enabled {
		remote := server.NewRemoteControlServer(cfg.RemoteController.Addr(), sup, logger)
		g.Go(func() error { return remote.ListenAndServe(gctx) })
	}

	return g.Wait()
}

// mapDirs reads the colon-separated SC2_PROXY_MAP_DIRS environment
// variable, defaulting to the current directory when unset.
func mapDirs() []string {
	if v := os.Getenv(mapDirsEnvVar); v != "" {
		return splitColon(v)
	}
	return []string{"."}
}

func splitColon(v string) []string {
	var out []string
	start := 0
	for i := 0; i < len(v); i++ {
		if v[i] == ':' {
			out = append(out, v[start:i])
			start = i + 1
		}
	}
	return append(out, v[start:])
}
