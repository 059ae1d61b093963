// Package cli implements boardctl, the command-line client for the task board server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard-server/internal/client"
	"github.com/taskboard/taskboard-server/internal/mdns"
)

// Options configures the root command. Zero values use the process defaults.
type Options struct {
	ConfigPath string
	Out        io.Writer
	Err        io.Writer
	In         io.Reader
	HTTPClient *http.Client
	Version    string
	// Discover finds servers on the local network. Defaults to mdns.Discover.
	Discover func(ctx context.Context, timeout time.Duration) ([]mdns.Server, error)
}

// app is the state shared by all commands of one invocation.
type app struct {
	opts       Options
	configPath string
	server     string
	cfg        *Config
	printer    *Printer
	logger     *slog.Logger
}

// NewRootCommand builds the boardctl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = DefaultConfigPath()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Discover == nil {
		opts.Discover = mdns.Discover
	}

	a := &app{
		opts:    opts,
		printer: NewPrinter(opts.Out, opts.Err),
		logger:  slog.New(slog.NewTextHandler(opts.Err, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}

	root := &cobra.Command{
		Use:   "boardctl",
		Short: "Command-line client for the task board server",
		Long: `boardctl manages boards, lists and cards on a task board server.

Log in once with "boardctl login"; the token is kept in the config file.
"boardctl tui <board>" opens an interactive board view.`,
		Version: opts.Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig()
		},
		SilenceErrors:      true,
		SilenceUsage:       true,
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	root.SetIn(opts.In)

	root.PersistentFlags().StringVar(&a.configPath, "config", opts.ConfigPath, "Config file")
	root.PersistentFlags().StringVar(&a.server, "server", "", "Server URL (overrides config)")

	root.AddCommand(
		a.newLoginCommand(),
		a.newRegisterCommand(),
		a.newLogoutCommand(),
		a.newWhoamiCommand(),
		a.newDiscoverCommand(),
		a.newBoardsCommand(),
		a.newListsCommand(),
		a.newCardsCommand(),
		a.newLabelsCommand(),
		a.newTUICommand(),
	)
	return root
}

// Execute runs boardctl with the process arguments.
func Execute(ctx context.Context, version string) error {
	return NewRootCommand(Options{Version: version}).ExecuteContext(ctx)
}

func (a *app) loadConfig() error {
	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return a.printer.Error("Invalid configuration", err.Error(),
			fmt.Sprintf("Fix or remove %s", a.configPath))
	}
	if a.server != "" {
		cfg.Server = a.server
	}
	a.cfg = cfg
	return nil
}

func (a *app) saveConfig() error {
	return SaveConfig(a.configPath, a.cfg)
}

// client returns an API client for the configured server.
func (a *app) client() *client.Client {
	opts := []client.Option{client.WithToken(a.cfg.Token)}
	if a.opts.HTTPClient != nil {
		opts = append(opts, client.WithHTTPClient(a.opts.HTTPClient))
	}
	return client.New(a.cfg.Server, opts...)
}

// authed returns a client, failing when no token is configured.
func (a *app) authed() (*client.Client, error) {
	if a.cfg.Token == "" {
		return nil, a.printer.Error("Not logged in",
			"No token found in "+a.configPath+".",
			"Run: boardctl login --email you@example.com",
			"Run: boardctl register --name \"Your Name\" --email you@example.com")
	}
	return a.client(), nil
}

// fail turns an API error into a printed error.
func (a *app) fail(action string, err error) error {
	var apiErr *client.Error
	if errors.As(err, &apiErr) {
		explanation := apiErr.Message
		for _, f := range apiErr.Fields {
			explanation += fmt.Sprintf("\n  %s: %s", f.Field, f.Message)
		}
		switch apiErr.Status {
		case http.StatusUnauthorized:
			return a.printer.Error("Failed to "+action, explanation, "Run: boardctl login")
		case http.StatusConflict:
			return a.printer.Error("Failed to "+action, explanation, "The board changed on the server; retry the command.")
		}
		return a.printer.Error("Failed to "+action, explanation)
	}
	return a.printer.Error("Failed to "+action, err.Error(),
		fmt.Sprintf("Check that the server at %s is running.", a.cfg.Server))
}
