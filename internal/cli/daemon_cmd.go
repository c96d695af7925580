package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/actionsum/worktally/internal/daemon"
	"github.com/actionsum/worktally/internal/database"
	"github.com/actionsum/worktally/internal/logging"
	"github.com/actionsum/worktally/internal/reporter"
	"github.com/actionsum/worktally/internal/state"
	"github.com/actionsum/worktally/internal/tracker"
	"github.com/actionsum/worktally/internal/web"
	"github.com/actionsum/worktally/pkg/detector"
	"github.com/actionsum/worktally/pkg/utils"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newStartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the tracking daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			dm := daemon.New(cfg.Daemon.PIDFile)
			running, pid, err := dm.IsRunning()
			if err != nil {
				return errors.Wrap(err, "failed to check daemon status")
			}
			if running {
				return errors.Errorf("daemon is already running (PID: %d)", pid)
			}

			if os.Getenv(childEnv) == "1" {
				return app.serve(cmd.Context(), cfg.Daemon.LogFile)
			}

			proc, err := daemonize()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Daemon started successfully (PID: %d)\n", proc.Pid)
			fmt.Fprintf(app.Out, "API available at: http://%s\n", cfg.APIAddr())
			if cfg.Daemon.LogFile != "" {
				fmt.Fprintf(app.Out, "Logs: %s\n", cfg.Daemon.LogFile)
			}
			return nil
		},
	}
}

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the tracker and API in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			running, pid, err := daemon.New(cfg.Daemon.PIDFile).IsRunning()
			if err != nil {
				return errors.Wrap(err, "failed to check daemon status")
			}
			if running {
				return errors.Errorf("daemon is already running (PID: %d)", pid)
			}
			return app.serve(cmd.Context(), "")
		},
	}
}

// daemonize re-executes the binary detached from the terminal
func daemonize() (*os.Process, error) {
	env := append(os.Environ(), childEnv+"=1")
	proc, err := os.StartProcess(os.Args[0], os.Args, &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to start daemon process")
	}
	return proc, nil
}

// serve wires the tracker and the API and blocks until SIGINT or SIGTERM
func (a *App) serve(parent context.Context, logFile string) error {
	cfg, err := a.Config()
	if err != nil {
		return err
	}
	closer, err := a.initLogging(logFile)
	if err != nil {
		return err
	}
	defer closer.Close()
	log := logging.Named("daemon")

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	det, err := detector.New(cfg.Tracker.InactivityThreshold)
	if err != nil {
		return errors.Wrap(err, "failed to initialize window detector")
	}
	defer det.Close()
	log.Info().Str("display_server", det.GetDisplayServer()).Msg("window detector initialized")

	dm := daemon.New(cfg.Daemon.PIDFile)
	if err := dm.WritePID(); err != nil {
		return err
	}
	defer dm.RemovePID()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := a.Clock
	repo := database.NewRepository(db)
	engine := tracker.NewEngine(cfg.WorkdayDefinition(), cfg.Tracker.InactivityThreshold, clk,
		repo, database.NewBreakStore(db, a.Location), logging.Named("engine"))
	svc := tracker.NewService(tracker.Options{
		PollInterval:  cfg.Tracker.PollInterval,
		RetentionDays: cfg.Tracker.RetentionDays,
		DisplayServer: det.GetDisplayServer(),
	}, engine, state.NewDetectorRecognizer(det, cfg.Tracker.PollInterval), repo, clk, logging.Named("tracker"))

	rep := reporter.New(cfg.WorkdayDefinition(), repo, clk)
	server := web.NewServer(cfg.APIAddr(), cfg.Web.AllowedOrigins, web.NewHandler(engine, repo, rep, clk, logging.Named("api")), logging.Named("http"))

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("web server error")
		}
	}()

	trackerDone := make(chan error, 1)
	go func() { trackerDone <- svc.Start(ctx) }()

	log.Info().Str("addr", server.GetAddress()).Msg("worktally daemon started")
	log.Debug().Msg(cfg.String())

	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case err := <-trackerDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("tracker stopped")
		}
	}

	svc.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down web server")
	}

	today := engine.Today()
	log.Info().
		Str("worked", utils.FormatDuration(today.TimeAlreadyActivelyWorked())).
		Str("break_left", utils.FormatDuration(today.BreakTimeLeft())).
		Msg("daemon stopped")
	return nil
}

func newStopCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the tracking daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			dm := daemon.New(cfg.Daemon.PIDFile)
			err = dm.Stop()
			if errors.Is(err, daemon.ErrNotRunning) {
				fmt.Fprintln(app.Out, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, "Daemon stopped successfully")
			return nil
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and today's workday",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			running, pid, err := daemon.New(cfg.Daemon.PIDFile).IsRunning()
			if err != nil {
				return errors.Wrap(err, "failed to check daemon status")
			}
			if running {
				fmt.Fprintf(app.Out, "Status: Running (PID: %d)\n", pid)
				fmt.Fprintf(app.Out, "API: http://%s\n", cfg.APIAddr())
			} else {
				fmt.Fprintln(app.Out, "Status: Not running")
			}

			db, err := app.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			rep := reporter.New(cfg.WorkdayDefinition(), database.NewRepository(db), app.Clock)
			day, err := rep.Day(app.today())
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out)
			fmt.Fprint(app.Out, reporter.FormatDayText(day))
			return nil
		},
	}
}
