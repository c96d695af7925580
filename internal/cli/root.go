// Package cli implements the worktally command line
package cli

import (
	"io"
	"os"
	"time"

	"github.com/actionsum/worktally/internal/clock"
	"github.com/actionsum/worktally/internal/config"
	"github.com/actionsum/worktally/internal/database"
	"github.com/actionsum/worktally/internal/logging"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Build information, set with -ldflags
var (
	Version = "0.1.0"
	Commit  = "unknown"
	Date    = "unknown"
)

const childEnv = "WORKTALLY_DAEMON_CHILD"

// App carries state shared by every command
type App struct {
	ConfigPath string
	Out        io.Writer
	In         io.Reader
	Location   *time.Location
	Clock      clock.Clock

	cfg *config.Config
}

// NewApp returns an App writing to stdout
func NewApp() *App {
	return &App{Out: os.Stdout, In: os.Stdin, Location: time.Local, Clock: clock.System{}}
}

// Config loads the configuration once
func (a *App) Config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	a.cfg = cfg
	return cfg, nil
}

func (a *App) openDB() (*database.DB, error) {
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	path, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	return database.Open(path)
}

func (a *App) today() time.Time {
	return a.Clock.Now().In(a.Location)
}

func (a *App) initLogging(file string) (io.Closer, error) {
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	return logging.Init(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: file})
}

// NewRootCmd creates the top-level "worktally" command
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "worktally",
		Short:         "Workday time accounting from focus and idle signals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Config file (default ~/.config/worktally/config.yaml)")
	root.SetOut(app.Out)

	root.AddCommand(
		newStartCmd(app),
		newRunCmd(app),
		newStopCmd(app),
		newStatusCmd(app),
		newReportCmd(app),
		newBreaksCmd(app),
		newRevokeCmd(app),
		newPruneCmd(app),
		newClearCmd(app),
		newErrorsCmd(app),
		newVersionCmd(app),
	)

	return root
}
