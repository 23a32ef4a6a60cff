// Package cli provides the command-line interface for flatsql.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leengari/flatsql/internal/auth"
	"github.com/leengari/flatsql/internal/config"
	"github.com/leengari/flatsql/internal/engine"
	"github.com/leengari/flatsql/internal/executor"
	"github.com/leengari/flatsql/internal/logging"
	"github.com/leengari/flatsql/internal/storage/codec"
	"github.com/leengari/flatsql/internal/storage/tablestore"
	"github.com/leengari/flatsql/internal/storage/userstore"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// appKey is used to store the wired application in the command context.
type appKey struct{}

// App holds everything a command needs once configuration is loaded.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Engine *engine.Engine
	Auth   *auth.Authenticator

	closeLog func()
}

// Users returns the user registry
func (a *App) Users() *userstore.Store {
	return a.Engine.Executor().Users()
}

// Close flushes log sinks
func (a *App) Close() {
	if a.closeLog != nil {
		a.closeLog()
	}
}

// NewApp wires stores, engine and authenticator from cfg
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	c, err := codec.New(cfg.Delimiter)
	if err != nil {
		return nil, err
	}
	tables, err := tablestore.New(cfg.DataDir, c)
	if err != nil {
		return nil, err
	}
	users, err := userstore.New(cfg.DataDir, c)
	if err != nil {
		return nil, err
	}

	eng := engine.New(executor.New(tables, users))
	eng.AddObserver(engine.NewLoggingObserver(logger))

	return &App{
		Config: cfg,
		Logger: logger,
		Engine: eng,
		Auth:   auth.NewAuthenticator(users, auth.NewCaptchaService(cfg.Captcha)),
	}, nil
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "flatsql",
		Short: "flatsql - a SQL-like query interface over flat files",
		Long: `flatsql stores tables as delimiter-separated text files and answers a small
SQL-like language over them: CREATE/DROP TABLE, INSERT, SELECT with a single
WHERE comparison, user management and buffered transactions.

Running flatsql without a subcommand starts the interactive shell.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip wiring for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger, closeLog, err := logging.Setup(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			if cfg.File != "" {
				slog.Debug("using config file", slog.String("path", cfg.File))
			}

			app, err := NewApp(cfg, logger)
			if err != nil {
				closeLog()
				return err
			}
			app.closeLog = closeLog

			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, app))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, &replOptions{format: "table"})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./flatsql.yaml)")
	flags.String("data-dir", "", "directory holding table files and the user registry")
	flags.String("delimiter", "", "field delimiter for table files")
	flags.String("captcha", "", "captcha challenge shown at login")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.String("log-format", "", "console log format (text|json)")
	flags.String("log-seq-url", "", "also ship logs to this Seq server")
	flags.Bool("log-source", false, "include source locations in logs")

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newREPLCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newExecCommand())
	rootCmd.AddCommand(newUserCommand())
	rootCmd.AddCommand(newTablesCommand())
	rootCmd.AddCommand(newVersionCommand(Version))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	cmd, err := rootCmd.ExecuteC()
	if app := GetApp(cmd.Context()); app != nil {
		app.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetApp retrieves the wired application from the command context.
func GetApp(ctx context.Context) *App {
	if ctx == nil {
		return nil
	}
	if a, ok := ctx.Value(appKey{}).(*App); ok {
		return a
	}
	return nil
}

func mustApp(cmd *cobra.Command) (*App, error) {
	app := GetApp(cmd.Context())
	if app == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return app, nil
}
