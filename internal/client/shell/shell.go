// Package shell is the interactive command loop of the GophTally client.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/GophTally/internal/client/syncer"
	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/models"
)

// Auth is the part of the remote client the shell drives directly.
type Auth interface {
	SignUp(ctx context.Context, email, password, displayName string) (*models.Identity, error)
	SignIn(ctx context.Context, email, password string) (*models.Identity, error)
	SignInWithProvider(ctx context.Context, provider string) (*models.Identity, error)
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
	Me(ctx context.Context) (*models.Identity, error)
	GetPreferences(ctx context.Context) (models.Preferences, error)
	UpdatePreferences(ctx context.Context, p models.Preferences) error
	OnAuthStateChanged(fn func(*models.Identity)) func()
}

// Devicer exposes the local device identifier.
type Devicer interface {
	DeviceID() string
}

// Options configure a Shell.
type Options struct {
	In          io.Reader
	Out         io.Writer
	Coordinator *syncer.Coordinator
	// Auth is nil when no server is configured.
	Auth      Auth
	Device    Devicer
	Logger    *zap.Logger
	Locale    string
	ExportDir string
	Prompt    string
}

// Shell reads commands and runs them.
type Shell struct {
	in        *bufio.Scanner
	out       io.Writer
	coord     *syncer.Coordinator
	auth      Auth
	device    Devicer
	log       *zap.Logger
	locale    string
	exportDir string
	prompt    string
	now       func() time.Time
}

// New returns a shell. Missing options get defaults.
func New(opts Options) *Shell {
	s := &Shell{
		in:        bufio.NewScanner(opts.In),
		out:       opts.Out,
		coord:     opts.Coordinator,
		auth:      opts.Auth,
		device:    opts.Device,
		log:       opts.Logger,
		locale:    opts.Locale,
		exportDir: opts.ExportDir,
		prompt:    opts.Prompt,
		now:       time.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.prompt == "" {
		s.prompt = "gophtally> "
	}
	if s.exportDir == "" {
		s.exportDir = "."
	}
	return s
}

// BindAuth switches the coordinator between local and remote mode as the
// identity changes. ctx bounds the remote sessions. The returned func unbinds.
func (s *Shell) BindAuth(ctx context.Context) func() {
	if s.auth == nil {
		return func() {}
	}
	return s.auth.OnAuthStateChanged(func(id *models.Identity) {
		if id != nil {
			if err := s.coord.EnterRemoteMode(ctx, id); err != nil {
				s.log.Warn("cannot start remote session", zap.Error(err))
				fmt.Fprintln(s.out, domainerrors.Message(s.locale, err))
			}
			return
		}
		if s.coord.Mode() == syncer.ModeRemote {
			s.coord.ExitRemoteMode()
		}
	})
}

// Run loops over input lines until exit or end of input.
func (s *Shell) Run(ctx context.Context) {
	for {
		line, ok := s.promptLine(s.prompt)
		if !ok {
			return
		}
		if quit := s.Execute(ctx, line); quit {
			fmt.Fprintln(s.out, "Bye")
			return
		}
	}
}

// Execute runs one line and reports whether the shell should stop.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	cmd, err := Parse(line)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return false
	}
	if cmd.Name == "" {
		return false
	}
	if cmd.Action != nil {
		if cmd.Action.Kind == syncer.ActionResetAll && !s.confirm("Reset all counters? This cannot be undone.") {
			return false
		}
		s.report(s.coord.Dispatch(ctx, *cmd.Action))
		return false
	}

	switch cmd.Name {
	case "help":
		s.help()
	case "list":
		s.coord.Render()
	case "status":
		v := s.coord.View()
		fmt.Fprintf(s.out, "mode: %s, counters: %d, labels: %d\n", v.Mode, len(v.Counters), len(v.Labels))
		if v.Status != "" {
			fmt.Fprintln(s.out, v.Status)
		}
	case "device":
		if s.device != nil {
			fmt.Fprintln(s.out, s.device.DeviceID())
		}
	case "export":
		dir := s.exportDir
		if len(cmd.Args) > 0 {
			dir = cmd.Args[0]
		}
		if path, res := s.coord.ExportFile(dir, s.now()); res.Success {
			fmt.Fprintln(s.out, path)
		}
		fmt.Fprintln(s.out, s.coord.Status())
	case "import":
		s.coord.ImportFile(ctx, cmd.Args[0])
		fmt.Fprintln(s.out, s.coord.Status())
	case "exit", "quit":
		return true
	default:
		s.authCommand(ctx, cmd)
	}
	return false
}

func (s *Shell) authCommand(ctx context.Context, cmd Command) {
	if s.auth == nil {
		fmt.Fprintln(s.out, "remote store is not configured (set server_url)")
		return
	}
	var err error
	switch cmd.Name {
	case "signup":
		password, ok := s.promptLine("Password: ")
		if !ok {
			return
		}
		_, err = s.auth.SignUp(ctx, cmd.Args[0], password, rest(cmd.Args, 1))
	case "signin":
		password, ok := s.promptLine("Password: ")
		if !ok {
			return
		}
		_, err = s.auth.SignIn(ctx, cmd.Args[0], password)
	case "provider":
		_, err = s.auth.SignInWithProvider(ctx, cmd.Args[0])
	case "signout":
		err = s.auth.SignOut(ctx)
	case "forgot":
		if err = s.auth.ResetPassword(ctx, cmd.Args[0]); err == nil {
			fmt.Fprintln(s.out, "reset mail sent")
		}
	case "whoami":
		var id *models.Identity
		if id, err = s.auth.Me(ctx); err == nil {
			fmt.Fprintf(s.out, "%s %s (%s)\n", id.UserID, id.Email, id.DisplayName)
		}
	case "prefs":
		err = s.preferences(ctx, cmd.Args)
	}
	if err != nil {
		s.log.Debug("command failed", zap.String("command", cmd.Name), zap.Error(err))
		s.printError(err)
	}
}

func (s *Shell) preferences(ctx context.Context, args []string) error {
	p, err := s.auth.GetPreferences(ctx)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Fprintf(s.out, "theme=%s language=%s view=%s\n", p.Theme, p.Language, p.DefaultView)
		return nil
	}
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found {
			return &UsageError{Usage: shellCommands["prefs"]}
		}
		switch key {
		case "theme":
			p.Theme = value
		case "language":
			p.Language = value
		case "view":
			p.DefaultView = value
		default:
			return &UsageError{Usage: shellCommands["prefs"]}
		}
	}
	return s.auth.UpdatePreferences(ctx, p)
}

func (s *Shell) report(res syncer.Result) {
	if !res.Success {
		s.printError(res.Error)
	}
}

func (s *Shell) printError(err error) {
	var usage *UsageError
	if errors.As(err, &usage) {
		fmt.Fprintln(s.out, usage)
		return
	}
	fmt.Fprintln(s.out, domainerrors.Message(s.locale, err))
}

func (s *Shell) help() {
	usages := make([]string, 0, len(actions)+len(shellCommands))
	for _, def := range actions {
		usages = append(usages, def.usage)
	}
	for _, usage := range shellCommands {
		usages = append(usages, usage)
	}
	sort.Strings(usages)
	fmt.Fprintln(s.out, "Available commands:")
	for _, u := range usages {
		fmt.Fprintln(s.out, "  "+u)
	}
}
