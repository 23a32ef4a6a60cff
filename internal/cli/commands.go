package cli

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leengari/flatsql/internal/auth"
	"github.com/leengari/flatsql/internal/domain/data"
	"github.com/leengari/flatsql/internal/executor"
	"github.com/leengari/flatsql/internal/network"
	"github.com/leengari/flatsql/internal/render"
	"github.com/leengari/flatsql/internal/repl"
)

const historyFile = ".flatsql_history"

// localUser names sessions opened by one-shot commands
const localUser = "local"

type replOptions struct {
	format string
}

func newREPLCommand() *cobra.Command {
	opts := &replOptions{}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive shell",
		Long: `Log in with a user id, password and captcha, then type statements.
Each statement must end with ';'. Type 'exit' to log out and .help for shell commands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "Output format: table, json, csv, md")
	return cmd
}

func runREPL(cmd *cobra.Command, opts *replOptions) error {
	app, err := mustApp(cmd)
	if err != nil {
		return err
	}
	format, err := render.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	return repl.Start(cmd.Context(), app.Engine, app.Auth, repl.Options{
		HistoryFile: filepath.Join(app.Config.DataDir, historyFile),
		Format:      format,
	})
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query language over TCP",
		Long: `Accept JSON requests over TCP, one per line. Clients log in with a captcha,
user id and password and receive a signed token; each connection runs its own
session with its own transaction buffer.`,
		Example: `  flatsql serve --server-addr 127.0.0.1:4444
  echo '{"type":"captcha"}' | nc 127.0.0.1 4444`,
		RunE: runServe,
	}
	cmd.Flags().String("server-addr", "", "listen address (default 127.0.0.1:4444)")
	cmd.Flags().String("server-jwt-secret", "", "HMAC secret for session tokens")
	cmd.Flags().Duration("server-token-ttl", 0, "session token lifetime")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	app, err := mustApp(cmd)
	if err != nil {
		return err
	}
	sc := app.Config.Server

	secret := sc.JWTSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return err
		}
		slog.Warn("no server.jwt_secret configured; tokens will not survive a restart")
	}
	tokens, err := auth.NewTokens(secret, sc.Issuer, sc.TokenTTL)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return network.NewServer(app.Engine, app.Auth, tokens).ListenAndServe(ctx, sc.Addr)
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

type execOptions struct {
	format string
	input  string
}

func newExecCommand() *cobra.Command {
	opts := &execOptions{}

	cmd := &cobra.Command{
		Use:   "exec [statement]...",
		Short: "Run statements in one session",
		Long: `Run each argument as a statement, in order, in a single session. A transaction
opened by one statement stays open for the next. With no arguments statements
are read from --input or standard input, one per line.`,
		Example: `  flatsql exec "CREATE TABLE t (a, b);" "INSERT INTO t VALUES (1, 2);"
  flatsql exec "SELECT * FROM t WHERE a > 0;" --format json
  flatsql exec --input script.fsql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "Output format: table, json, csv, md")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Read statements from file")
	return cmd
}

func runExec(cmd *cobra.Command, args []string, opts *execOptions) error {
	app, err := mustApp(cmd)
	if err != nil {
		return err
	}
	format, err := render.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	statements := args
	if len(statements) == 0 {
		var in io.Reader = cmd.InOrStdin()
		if opts.input != "" {
			f, err := os.Open(opts.input)
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer f.Close()
			in = f
		}
		statements, err = readStatements(in)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	session := app.Engine.NewSession(localUser)
	failed := 0
	for _, stmt := range statements {
		res, err := session.Execute(cmd.Context(), stmt)
		if err != nil {
			failed++
		}
		if rerr := render.Result(out, res, format, render.Options{}); rerr != nil {
			return rerr
		}
	}
	if session.InTransaction() {
		slog.Warn("transaction left open; pending statements discarded",
			slog.Int("pending", len(session.Pending())))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d statement(s) failed", failed, len(statements))
	}
	return nil
}

// readStatements returns the non-blank lines of r
func readStatements(r io.Reader) ([]string, error) {
	var statements []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		statements = append(statements, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read statements: %w", err)
	}
	return statements, nil
}

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the user registry",
	}
	cmd.AddCommand(newUserAddCommand())
	cmd.AddCommand(newUserRemoveCommand())
	cmd.AddCommand(newUserListCommand())
	return cmd
}

func newUserAddCommand() *cobra.Command {
	var password, email string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := mustApp(cmd)
			if err != nil {
				return err
			}
			u, err := app.Users().Add(args[0], password, email)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User '%s' added with id %d\n", u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password for the new user")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUserRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a user",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := mustApp(cmd)
			if err != nil {
				return err
			}
			if err := app.Users().Remove(args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User '%s' dropped\n", args[0])
			return nil
		},
	}
}

func newUserListCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := mustApp(cmd)
			if err != nil {
				return err
			}
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			users, err := app.Users().List()
			if err != nil {
				return err
			}
			res := &executor.Result{Columns: []string{"id", "username", "email"}}
			for _, u := range users {
				res.Rows = append(res.Rows, data.Record{strconv.Itoa(u.ID), u.Username, u.Email})
			}
			return render.Result(cmd.OutOrStdout(), res, f, render.Options{})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, csv, md")
	return cmd
}

func newTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables in the data directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := mustApp(cmd)
			if err != nil {
				return err
			}
			names, err := app.Engine.ListTables()
			if err != nil {
				return err
			}
			render.Names(cmd.OutOrStdout(), "table", names)
			return nil
		},
	}
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display flatsql version and build information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "flatsql v%s (%s)\n", version, GitCommit)
		},
	}
}
