package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/aryanzandi123/yesah/am"
	"github.com/aryanzandi123/yesah/engine"
	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/logger"
	"github.com/aryanzandi123/yesah/provider"
	"github.com/aryanzandi123/yesah/server"
	"github.com/aryanzandi123/yesah/version"
)

// ServeCmd streams a live layout to websocket viewers
var ServeCmd = &cobra.Command{
	Use:     "serve <payload.json>",
	Aliases: []string{"server"},
	Short:   "Serve a live, expandable layout over websocket",
	Long: `Build the interaction graph of a payload file and stream its layout to
websocket viewers at /ws. Viewers send expand, collapse and drag commands;
expansions are fetched through the configured provider.

The payload file is watched: saving it rebuilds the graph and every
viewer receives the new layout.`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

var (
	serveAddr    string
	serveNoWatch bool
)

func init() {
	ServeCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	ServeCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not reload when the payload file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.ComponentLogger("cli.serve")
	payloadPath := args[0]

	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	prov, closeProv, err := provider.FromConfig(cfg, log)
	if err != nil {
		return err
	}
	defer closeProv()

	opts := engine.OptionsFromConfig(cfg)
	eng, err := loadEngine(payloadPath, prov, opts, log)
	if err != nil {
		return err
	}

	srv := server.New(eng, cfg.Server, logger.ComponentLogger("server"))
	printStartupBanner(addr, payloadPath, cfg)

	if !serveNoWatch {
		watcher, err := am.NewFileWatcher(payloadPath)
		if err != nil {
			log.Warnw("Payload watcher unavailable, reload disabled", logger.FieldError, err)
		} else {
			watcher.OnChange(func(path string) error {
				next, err := loadEngine(path, prov, opts, log)
				if err != nil {
					return err
				}
				if err := srv.Reload(context.Background(), next); err != nil {
					next.Close()
					return err
				}
				return nil
			})
			watcher.Start()
			defer watcher.Stop()
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(addr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		srv.Stop()
		return errors.Wrap(err, "server failed to start")
	case <-sigChan:
		pterm.Info.Println("\nShutting down gracefully (press Ctrl+C again to force)...")

		shutdownDone := make(chan error, 1)
		go func() {
			shutdownDone <- srv.Stop()
		}()

		select {
		case err := <-shutdownDone:
			if err != nil {
				return errors.Wrap(err, "shutdown error")
			}
			pterm.Success.Println("Server stopped cleanly")
			return nil
		case <-sigChan:
			pterm.Warning.Println("\nForce shutdown - exiting immediately")
			os.Exit(1)
			return nil
		}
	}
}

// printStartupBanner prints where the server listens and what it serves
func printStartupBanner(addr, payloadPath string, cfg *am.Config) {
	info := version.Get()
	source := cfg.Provider.Dir
	if cfg.Provider.Kind == am.ProviderHTTP {
		source = cfg.Provider.BaseURL
	}
	lines := []string{
		fmt.Sprintf("Version:   %s (commit %s)", info.Version, info.Short()),
		fmt.Sprintf("Payload:   %s", payloadPath),
		fmt.Sprintf("Provider:  %s %s", cfg.Provider.Kind, source),
		fmt.Sprintf("Verbosity: %s", logger.LevelName(logger.Verbosity)),
		fmt.Sprintf("Viewers:   ws://%s/ws", addr),
	}
	pterm.DefaultBox.WithTitle("yesah").Println(strings.Join(lines, "\n"))
	pterm.Info.Println("Press Ctrl+C to stop")
}
