// Package cli implements the medauth terminal client on top of the client
// session store.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/lborres/medauth/client"
	"github.com/lborres/medauth/core"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// API is the part of the auth server the CLI talks to directly.
type API interface {
	client.Transport
	Register(ctx context.Context, input core.RegisterInput) (*core.AuthResult, error)
	Session(ctx context.Context, token string) (*core.SessionData, error)
	RequestPasswordReset(ctx context.Context, email string) (*core.MessageResult, error)
	ConsumePasswordReset(ctx context.Context, token, newPassword string) (*core.MessageResult, error)
}

type App struct {
	api    API
	store  *client.Store
	in     *bufio.Reader
	out    io.Writer
	logger *slog.Logger
}

func NewApp(ctx context.Context, api API, records client.RecordStore, in io.Reader, out io.Writer, logger *slog.Logger) (*App, error) {
	store, err := client.NewStore(ctx, client.Options{
		Transport: api,
		Records:   records,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return &App{
		api:    api,
		store:  store,
		in:     bufio.NewReader(in),
		out:    out,
		logger: logger,
	}, nil
}

// Store exposes the session store backing the app.
func (a *App) Store() *client.Store {
	return a.store
}

const usage = `usage: medauth-cli [flags] <command> [args]

commands:
  login <email>                          sign in (password is prompted)
  logout                                 forget the local session
  whoami                                 show the signed-in user
  refresh                                exchange the token for a fresh one
  session                                ask the server about the current token
  register <email> <name> <role> [dept]  create an account
  reset-request <email>                  start a password reset
  reset-consume <token>                  finish a password reset
  guard <path> [role...]                 evaluate route access for the session
`

// Run executes a single command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errors.New("missing command")
	}

	cmd, rest := args[0], args[1:]
	a.logger.DebugContext(ctx, "running command", slog.String("command", cmd))
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		a.store.Logout()
		fmt.Fprintln(a.out, "Signed out")
		return nil
	case "whoami":
		return a.whoami()
	case "refresh":
		return a.refresh(ctx)
	case "session":
		return a.session(ctx)
	case "register":
		return a.register(ctx, rest)
	case "reset-request":
		return a.resetRequest(ctx, rest)
	case "reset-consume":
		return a.resetConsume(ctx, rest)
	case "guard":
		return a.guard(rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *App) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: login <email>")
	}
	password, err := a.password("Password: ")
	if err != nil {
		return err
	}

	if err := a.store.Login(ctx, args[0], password); err != nil {
		if msg := a.store.Snapshot().Error; msg != "" {
			return errors.New(msg)
		}
		return err
	}

	u := a.store.Snapshot().User
	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", u.Name, u.Role)
	return nil
}

func (a *App) whoami() error {
	s := a.store.Snapshot()
	if !s.IsAuthenticated || s.User == nil {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	u := s.User
	fmt.Fprintf(a.out, "%s <%s>\nrole: %s\n", u.Name, u.Email, u.Role)
	if u.Department != "" {
		fmt.Fprintf(a.out, "department: %s\n", u.Department)
	}
	if exp, ok := client.TokenExpiry(s.Token); ok {
		fmt.Fprintf(a.out, "token expires: %s\n", exp.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}

func (a *App) refresh(ctx context.Context) error {
	if !a.store.RefreshToken(ctx) {
		return errors.New(core.MsgRefreshRejected)
	}
	fmt.Fprintln(a.out, "Session refreshed")
	return nil
}

func (a *App) session(ctx context.Context) error {
	token := a.store.Snapshot().Token
	if token == "" {
		return errors.New(core.MsgMissingToken)
	}
	data, err := a.api.Session(ctx, token)
	if err != nil {
		return apiMessage(err)
	}
	fmt.Fprintf(a.out, "%s <%s> issued %s, expires %s\n",
		data.User.Name, data.User.Email,
		data.IssuedAt.Local().Format("2006-01-02 15:04"),
		data.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}

func (a *App) register(ctx context.Context, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return errors.New("usage: register <email> <name> <role> [department]")
	}
	password, err := a.password("Password: ")
	if err != nil {
		return err
	}

	input := core.RegisterInput{Email: args[0], Password: password, Name: args[1], Role: args[2]}
	if len(args) == 4 {
		input.Department = args[3]
	}

	result, err := a.api.Register(ctx, input)
	if err != nil {
		return apiMessage(err)
	}
	fmt.Fprintf(a.out, "Registered %s as %s. Run `login %s` to sign in.\n", result.User.Email, result.User.Role, result.User.Email)
	return nil
}

func (a *App) resetRequest(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: reset-request <email>")
	}
	result, err := a.api.RequestPasswordReset(ctx, args[0])
	if err != nil {
		return apiMessage(err)
	}
	fmt.Fprintln(a.out, result.Message)
	return nil
}

func (a *App) resetConsume(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: reset-consume <token>")
	}
	password, err := a.password("New password: ")
	if err != nil {
		return err
	}
	result, err := a.api.ConsumePasswordReset(ctx, args[0], password)
	if err != nil {
		return apiMessage(err)
	}
	fmt.Fprintln(a.out, result.Message)
	return nil
}

func (a *App) guard(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: guard <path> [role...]")
	}
	g := client.Guard{RequiredRoles: args[1:]}
	d := g.Evaluate(a.store.Snapshot(), args[0])
	if d.Redirect != "" {
		fmt.Fprintf(a.out, "%s -> %s\n", d.State, d.Redirect)
		return nil
	}
	fmt.Fprintln(a.out, d.State)
	return nil
}

// password prompts without echo when stdin is a terminal and falls back to a
// plain line read otherwise.
func (a *App) password(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pw, err := readPassword(fd)
		fmt.Fprintln(a.out)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func apiMessage(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return errors.New(apiErr.Message)
	}
	return err
}
