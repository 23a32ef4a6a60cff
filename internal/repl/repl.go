// Package repl is the interactive front end: a login loop followed by a
// statement loop bound to one engine session.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/leengari/flatsql/internal/auth"
	"github.com/leengari/flatsql/internal/engine"
	"github.com/leengari/flatsql/internal/executor"
	"github.com/leengari/flatsql/internal/render"
	"github.com/leengari/flatsql/internal/storage/userstore"
)

const (
	prompt      = "flatsql> "
	txPrompt    = "flatsql*> "
	maxAttempts = 3
)

// ErrNoUsers is returned when nobody could ever log in
var ErrNoUsers = errors.New("no users registered; add one with 'flatsql user add <name> --password <pw>'")

// LineReader is the subset of *readline.Instance the loop needs
type LineReader interface {
	Readline() (string, error)
	ReadPassword(prompt string) ([]byte, error)
	SetPrompt(prompt string)
}

type REPL struct {
	eng    *engine.Engine
	auth   *auth.Authenticator
	users  *userstore.Store
	rl     LineReader
	out    io.Writer
	format render.Format
}

// Options configure Start
type Options struct {
	HistoryFile string
	Format      render.Format
	Out         io.Writer
}

// Start runs the REPL on the terminal until EOF
func Start(ctx context.Context, eng *engine.Engine, a *auth.Authenticator, opts Options) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     opts.HistoryFile,
		AutoComplete:    newCompleter(eng),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := opts.Out
	if out == nil {
		out = rl.Stdout()
	}
	return New(eng, a, rl, out, opts.Format).Run(ctx)
}

func New(eng *engine.Engine, a *auth.Authenticator, rl LineReader, out io.Writer, format render.Format) *REPL {
	if format == "" {
		format = render.FormatTable
	}
	return &REPL{
		eng:    eng,
		auth:   a,
		users:  eng.Executor().Users(),
		rl:     rl,
		out:    out,
		format: format,
	}
}

// Run alternates between logging in and serving statements until the input
// ends. Logging out returns to the login prompt.
func (r *REPL) Run(ctx context.Context) error {
	users, err := r.users.List()
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return ErrNoUsers
	}

	fmt.Fprintln(r.out, titleStyle.Render("Welcome to flatsql"))

	for {
		u, err := r.login()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		session := r.eng.NewSession(u.Username)
		fmt.Fprintln(r.out, successStyle.Render("Successfully logged in!"))
		fmt.Fprintln(r.out, mutedStyle.Render("Type .help for commands, exit to log out."))

		done, err := r.serve(ctx, session)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, "Logged out successfully.")
		if done {
			return nil
		}
	}
}

// login prompts for user id, password and captcha until they check out
func (r *REPL) login() (*userstore.User, error) {
	for attempt := 1; ; attempt++ {
		r.rl.SetPrompt("UserId: ")
		id, err := r.rl.Readline()
		if err != nil {
			return nil, normalizeEOF(err)
		}

		pw, err := r.rl.ReadPassword("Password: ")
		if err != nil {
			return nil, normalizeEOF(err)
		}

		fmt.Fprintf(r.out, "Captcha ----> %s\n", r.auth.Captcha().Challenge())
		r.rl.SetPrompt("Enter Captcha: ")
		captcha, err := r.rl.Readline()
		if err != nil {
			return nil, normalizeEOF(err)
		}

		if u, ok := r.auth.Login(strings.TrimSpace(id), string(pw), captcha); ok {
			return u, nil
		}
		fmt.Fprintln(r.out, errorStyle.Render("Invalid credentials or Captcha. Please try again."))
		if attempt >= maxAttempts {
			return nil, errors.New("too many failed login attempts")
		}
	}
}

// serve reads statements until the user logs out (done=false) or the input
// ends (done=true)
func (r *REPL) serve(ctx context.Context, session *engine.Session) (done bool, err error) {
	for {
		if session.InTransaction() {
			r.rl.SetPrompt(txPrompt)
		} else {
			r.rl.SetPrompt(prompt)
		}

		line, err := r.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			if errors.Is(normalizeEOF(err), io.EOF) {
				return true, nil
			}
			return true, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "exit", `\q`, ".quit", ".exit":
			return false, nil
		}

		if strings.HasPrefix(line, ".") {
			r.handleDotCommand(session, line)
			continue
		}

		res, err := session.Execute(ctx, line)
		if rerr := render.Result(r.out, withoutError(res), r.format, render.Options{ShowElapsed: true}); rerr != nil {
			return true, rerr
		}
		if err != nil {
			fmt.Fprintln(r.out, errorStyle.Render("Error: "+err.Error()))
		}
	}
}

func (r *REPL) handleDotCommand(session *engine.Session, line string) {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".help":
		printHelp(r.out)

	case ".tables":
		names, err := r.eng.ListTables()
		if err != nil {
			fmt.Fprintln(r.out, errorStyle.Render("Error: "+err.Error()))
			return
		}
		render.Names(r.out, "table", names)

	case ".schema":
		if len(parts) < 2 {
			fmt.Fprintln(r.out, "Usage: .schema <table>")
			return
		}
		cols, err := r.eng.Executor().Tables().Columns(parts[1])
		if err != nil {
			fmt.Fprintln(r.out, errorStyle.Render("Error: "+err.Error()))
			return
		}
		render.Names(r.out, "column", cols)

	case ".pending":
		if !session.InTransaction() {
			fmt.Fprintln(r.out, "No transaction in progress.")
			return
		}
		render.Names(r.out, "pending statement", session.Pending())

	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type .help for commands)\n", command)
	}
}

func printHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .tables         List all tables
  .schema <name>  Show the columns of a table
  .pending        Show statements buffered by the open transaction
  exit, \q        Log out

Statements must end with a semicolon (;). Inside BEGIN TRANSACTION;
statements are buffered until COMMIT; or discarded by ROLLBACK;.
`
	fmt.Fprintln(w, help)
}

// withoutError drops the error text so it is printed once, styled
func withoutError(res *executor.Result) *executor.Result {
	if res == nil || res.Error == "" {
		return res
	}
	c := *res
	c.Error = ""
	return &c
}

func normalizeEOF(err error) error {
	if errors.Is(err, readline.ErrInterrupt) {
		return io.EOF
	}
	return err
}

// newCompleter completes dot-commands, keywords and table names
func newCompleter(eng *engine.Engine) *readline.PrefixCompleter {
	var tables []readline.PrefixCompleterInterface
	if names, err := eng.ListTables(); err == nil {
		for _, n := range names {
			tables = append(tables, readline.PcItem(n))
		}
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("SELECT"),
		readline.PcItem("INSERT INTO", tables...),
		readline.PcItem("CREATE TABLE"),
		readline.PcItem("CREATE USER"),
		readline.PcItem("DROP TABLE", tables...),
		readline.PcItem("DROP USER"),
		readline.PcItem("BEGIN TRANSACTION;"),
		readline.PcItem("END TRANSACTION;"),
		readline.PcItem("COMMIT;"),
		readline.PcItem("ROLLBACK;"),
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema", tables...),
		readline.PcItem(".pending"),
	)
}
