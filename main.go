package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdxmph/agenda-contatos/internal/api"
	"github.com/pdxmph/agenda-contatos/internal/cep"
	"github.com/pdxmph/agenda-contatos/internal/config"
	"github.com/pdxmph/agenda-contatos/internal/contactlist"
	"github.com/pdxmph/agenda-contatos/internal/db"
	"github.com/pdxmph/agenda-contatos/internal/exchange"
	"github.com/pdxmph/agenda-contatos/internal/files"
	"github.com/pdxmph/agenda-contatos/internal/logging"
	"github.com/pdxmph/agenda-contatos/internal/prompt"
	"github.com/pdxmph/agenda-contatos/internal/server"
	"github.com/pdxmph/agenda-contatos/internal/session"
	"github.com/pdxmph/agenda-contatos/internal/tui"
	"github.com/pdxmph/agenda-contatos/internal/ui"
)

var _ server.Store = (*db.DB)(nil)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	load := func() (*config.Config, error) {
		if configPath != "" {
			return config.LoadFrom(configPath)
		}
		return config.Load()
	}

	cmd := &cobra.Command{
		Use:           "agenda",
		Short:         "Agenda de contatos",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runTUI(cfg)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (TOML)")

	cmd.AddCommand(serveCmd(load))
	cmd.AddCommand(initCmd(load, &configPath))
	cmd.AddCommand(fixturesCmd(load))
	cmd.AddCommand(exportCmd(load))
	cmd.AddCommand(importCmd(load))

	return cmd
}

// client bundles the engine pieces shared by the terminal UI and the one-shot commands
type client struct {
	logger  *zap.Logger
	gateway *api.Client
}

func newClient(cfg *config.Config) (*client, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, err
	}
	return &client{
		logger:  logger,
		gateway: api.NewClient(cfg.API.BaseURL, cfg.API.Timeout.Duration, logger),
	}, nil
}

func runTUI(cfg *config.Config) error {
	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer c.logger.Sync()

	postal, err := cep.NewManager(cfg.CEP.Provider, cep.Options{
		Endpoint: cfg.CEP.Endpoint,
		Timeout:  cfg.CEP.Timeout.Duration,
	}, c.logger)
	if err != nil {
		return err
	}

	bridge := tui.NewBridge()

	editor := session.New(c.gateway, postal, bridge, c.logger)
	list := contactlist.New(contactlist.Options{
		Gateway:   c.gateway,
		View:      bridge,
		Notifier:  bridge,
		Confirmer: bridge,
		Logger:    c.logger,
	})
	list.SetEditor(editor)
	editor.SetReloader(list)

	flows := exchange.New(exchange.Options{
		Gateway:    c.gateway,
		Files:      files.NewExchange(cfg.Backups.Dir, bridge),
		Reconciler: list,
		Notifier:   bridge,
		Confirmer:  bridge,
		Logger:     c.logger,
	})

	c.logger.Info("starting terminal ui",
		zap.String("api", cfg.API.BaseURL),
		zap.String("cep_provider", postal.Name()),
		zap.Bool("cep_enabled", postal.IsEnabled()))

	model := tui.New(tui.Deps{
		Controller: list,
		Session:    editor,
		Exchange:   flows,
		Logger:     c.logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	bridge.Attach(p)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running terminal ui: %w", err)
	}
	return nil
}

func serveCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		addr   string
		memory bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the contacts service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger, err := logging.New(cfg.Log.Level, "")
			if err != nil {
				return err
			}
			defer logger.Sync()

			var store server.Store
			if memory {
				store = server.NewMemoryStore()
			} else {
				database, err := db.Open(cfg.Server.Database, logger)
				if err != nil {
					return err
				}
				defer database.Close()
				store = database
			}

			return serve(cmd.Context(), cfg.Server.Addr, server.NewHandler(store, logger), logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&memory, "memory", false, "Keep contacts in memory instead of SQLite")

	return cmd
}

func serve(ctx context.Context, addr string, handler *server.Handler, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("contacts service listening", zap.String("addr", addr), zap.String("base", server.BasePath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening on %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down contacts service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func initCmd(load func() (*config.Config, error), configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the contacts database and the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			path := *configPath
			if path == "" {
				if path, err = config.Path(); err != nil {
					return err
				}
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if err := cfg.SaveTo(path); err != nil {
					return err
				}
				fmt.Printf("Configuração criada em %s\n", path)
			}

			if err := db.Initialize(cfg.Server.Database); err != nil {
				return err
			}
			fmt.Printf("Banco de dados criado em %s\n", cfg.Server.Database)
			fmt.Printf("Provedores de CEP disponíveis: %s\n", strings.Join(cep.ListProviders(), ", "))
			return nil
		},
	}
}

func fixturesCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "fixtures [PATH]",
		Short: "Create a database filled with sample contacts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			path := cfg.Server.Database
			if len(args) == 1 {
				path = args[0]
			}
			if err := db.CreateFixturesDatabase(path); err != nil {
				return err
			}
			fmt.Printf("Banco de exemplo criado em %s\n", path)
			return nil
		},
	}
}

func exportCmd(load func() (*config.Config, error)) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every contact to a JSON backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			defer c.logger.Sync()

			console := prompt.NewConsole(os.Stdin, os.Stdout)
			flows := exchange.New(exchange.Options{
				Gateway:   c.gateway,
				Files:     files.NewExchange(cfg.Backups.Dir, files.FixedDialog{Path: out}),
				Notifier:  console,
				Confirmer: console,
				Logger:    c.logger,
			})

			_, err = flows.Export(cmd.Context())
			return err
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: dated file in the backups dir)")
	return cmd
}

func importCmd(load func() (*config.Config, error)) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace every contact with the contents of a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			defer c.logger.Sync()

			console := prompt.NewConsole(os.Stdin, os.Stdout)
			var confirmer ui.Confirmer = console
			if yes {
				confirmer = prompt.Always
			}

			flows := exchange.New(exchange.Options{
				Gateway:   c.gateway,
				Files:     files.NewExchange(cfg.Backups.Dir, files.FixedDialog{Path: args[0]}),
				Notifier:  console,
				Confirmer: confirmer,
				Logger:    c.logger,
			})

			res, err := flows.Import(cmd.Context())
			if err != nil {
				return err
			}
			if res.Outcome == exchange.Declined {
				fmt.Println("Importação cancelada.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Replace without asking")
	return cmd
}
