package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/arcadelab/sessiontape/internal/buildinfo"
	"github.com/arcadelab/sessiontape/pkg/catalog"
	"github.com/arcadelab/sessiontape/pkg/config"
	"github.com/arcadelab/sessiontape/pkg/hook"
	"github.com/arcadelab/sessiontape/pkg/manifest"
	"github.com/arcadelab/sessiontape/pkg/permissions"
	"github.com/arcadelab/sessiontape/pkg/screen"
	"github.com/arcadelab/sessiontape/pkg/session"
)

func newRecordCommand() command {
	return command{
		name:        "record",
		description: "Record screen and key events for gameplay sessions",
		configure: func(fs *flag.FlagSet) {
			fs.Bool("plan-only", false, "Print the resolved configuration without starting capture")
			fs.Bool("synthetic", false, "Drive the recorder from the built-in scripted key source")
			fs.Duration("max-duration", 0, "Stop recording after this wall-clock duration (0 = until the key source ends)")
		},
		run: runRecord,
	}
}

var (
	timeNow  = time.Now
	hostname = os.Hostname
)

// recordController glues the key binder onto the recorder plus the durable
// registries. All callbacks run on the binder's dispatch goroutine, so no
// locking is needed beyond what the recorder does internally.
type recordController struct {
	cfg      config.Config
	recorder *session.Recorder
	store    *catalog.Store
	appCtx   *AppContext
	stdout   io.Writer

	current  manifest.Manifest
	sessions int
}

func (c *recordController) startSession() error {
	name, err := manifest.ResolveName(c.cfg.Paths.SessionsDir, timeNow())
	if err != nil {
		return fmt.Errorf("resolve session name: %w", err)
	}

	host, err := hostname()
	if err != nil {
		host = "unknown"
	}

	man := manifest.New(manifest.Options{
		Name:       name,
		CreatedAt:  timeNow(),
		Hostname:   host,
		AppVersion: buildinfo.Version(),
		Config:     c.cfg,
	})
	started := timeNow().UTC()
	man.Outcome.State = manifest.StateRecording
	man.Outcome.StartedAt = &started
	if err := manifest.Save(man, manifest.Path(c.cfg.Paths.SessionsDir, name)); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	region := screen.Region{
		Top:    c.cfg.Capture.Region.Top,
		Left:   c.cfg.Capture.Region.Left,
		Width:  c.cfg.Capture.Region.Width,
		Height: c.cfg.Capture.Region.Height,
	}
	if err := c.recorder.Start(name, region, c.cfg.Capture.FrameRate); err != nil {
		man.Outcome.State = manifest.StateErrored
		man.Outcome.Message = err.Error()
		if saveErr := manifest.Save(man, manifest.Path(c.cfg.Paths.SessionsDir, name)); saveErr != nil {
			c.appCtx.Logger.Error("persist errored manifest", "error", saveErr)
		}
		return err
	}

	if err := c.store.InsertSession(context.Background(), catalog.Session{
		ID:         man.SessionID,
		Name:       name,
		CreatedAt:  man.CreatedAt,
		Hostname:   host,
		AppVersion: man.AppVersion,
		FrameRate:  c.cfg.Capture.FrameRate,
		State:      manifest.StateRecording,
	}); err != nil {
		c.appCtx.Logger.Error("register session in catalog", "error", err)
	}

	c.current = man
	c.sessions++
	fmt.Fprintf(c.stdout, "Recording session %s\n", name)
	return nil
}

func (c *recordController) stopSession() {
	if !c.recorder.Recording() {
		return
	}

	c.recorder.Stop()
	<-c.recorder.Done()
	stats := c.recorder.Stats()

	man := c.current
	ended := timeNow().UTC()
	man.Outcome.State = manifest.StateCompleted
	man.Outcome.EndedAt = &ended
	man.Outcome.FramesWritten = stats.FramesWritten
	man.Outcome.FightsMarked = stats.FightsMarked
	man.Outcome.FightTimeSeconds = stats.ElapsedFightTime.Seconds()
	if err := manifest.Save(man, manifest.Path(c.cfg.Paths.SessionsDir, man.Name)); err != nil {
		c.appCtx.Logger.Error("finalise manifest", "error", err)
	}

	if err := c.store.UpdateOutcome(context.Background(), catalog.Session{
		ID:               man.SessionID,
		State:            manifest.StateCompleted,
		FramesWritten:    stats.FramesWritten,
		FightsMarked:     stats.FightsMarked,
		FightTimeSeconds: stats.ElapsedFightTime.Seconds(),
	}); err != nil {
		c.appCtx.Logger.Error("update session outcome in catalog", "error", err)
	}

	fmt.Fprintf(c.stdout, "Stopped session %s: %d frames, %d fights, %.1fs fight time\n",
		man.Name, stats.FramesWritten, stats.FightsMarked, stats.ElapsedFightTime.Seconds())
}

func (c *recordController) toggle() {
	if c.recorder.Recording() {
		c.stopSession()
		return
	}
	if err := c.startSession(); err != nil {
		c.appCtx.Logger.Error("start session", "error", err)
	}
}

func runRecord(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	planOnly := boolFlag(fs, "plan-only")
	synthetic := boolFlag(fs, "synthetic")
	maxDuration := durationFlag(fs, "max-duration")
	ctx.Logger.Info("record command invoked", "plan_only", planOnly, "synthetic", synthetic, "sessions_dir", ctx.Config.Paths.SessionsDir)

	if planOnly {
		printRecordPlan(ctx, stdout)
		return nil
	}

	screenPerm := permissions.ProbeScreenRecording(nil)
	inputPerm := permissions.ProbeInputMonitoring(nil)
	ctx.Logger.Info("permission preflight", "screen_recording", screenPerm.StatusString(), "input_monitoring", inputPerm.StatusString())
	for _, probe := range []permissions.ProbeResult{screenPerm, inputPerm} {
		if probe.Blocked() {
			if probe.Guidance != "" {
				fmt.Fprintln(stderr, probe.Guidance)
			}
			return fmt.Errorf("permission preflight failed: %s", probe.Message)
		}
	}

	if err := os.MkdirAll(ctx.Config.Paths.SessionsDir, 0o755); err != nil {
		return fmt.Errorf("ensure sessions directory: %w", err)
	}

	db, err := catalog.Open(ctx.Config.Paths.CatalogPath)
	if err != nil {
		return err
	}
	defer db.Close()

	recorder, err := session.NewRecorder(session.Options{
		OutputDir: ctx.Config.Paths.SessionsDir,
		Format:    ctx.Config.Capture.Format,
		Logger:    ctx.Logger,
	})
	if err != nil {
		return fmt.Errorf("build recorder: %w", err)
	}

	controller := &recordController{
		cfg:      ctx.Config,
		recorder: recorder,
		store:    catalog.NewStore(db),
		appCtx:   ctx,
		stdout:   stdout,
	}

	binder, err := hook.NewBinder(hook.Bindings{
		Gameplay:      ctx.Config.Keys.Gameplay,
		SessionToggle: ctx.Config.Keys.SessionToggle,
		FightStart:    ctx.Config.Keys.FightStart,
		FightEnd:      ctx.Config.Keys.FightEnd,
		OnKey: func(kind, key string) {
			if err := recorder.LogKey(kind, key); err != nil {
				ctx.Logger.Warn("log key event", "error", err)
			}
		},
		OnMarker: func(kind string) {
			if err := recorder.LogMarker(kind); err != nil {
				ctx.Logger.Warn("log marker event", "error", err)
			}
		},
		OnToggle: controller.toggle,
	})
	if err != nil {
		return fmt.Errorf("bind keys: %w", err)
	}

	var source hook.Source
	if synthetic {
		source = hook.NewSyntheticSource(timeNow, 100*time.Millisecond)
	} else {
		source, err = hook.NativeSource()
		if err != nil {
			return fmt.Errorf("open key source: %w", err)
		}
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if maxDuration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, maxDuration)
		defer cancel()
	}

	if err := controller.startSession(); err != nil {
		return err
	}
	defer controller.stopSession()

	if err := binder.Run(runCtx, source); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			ctx.Logger.Info("key source stopped", "reason", err)
		} else {
			return fmt.Errorf("key source: %w", err)
		}
	}

	controller.stopSession()
	fmt.Fprintf(stdout, "Recorded %d session(s) in %s\n", controller.sessions, ctx.Config.Paths.SessionsDir)
	return nil
}

func printRecordPlan(ctx *AppContext, stdout io.Writer) {
	fmt.Fprintf(stdout, "Resolved configuration (source: %s)\n", ctx.Config.Source)
	fmt.Fprintf(stdout, "  sessions_dir: %s\n", ctx.Config.Paths.SessionsDir)
	fmt.Fprintf(stdout, "  catalog_path: %s\n", ctx.Config.Paths.CatalogPath)
	fmt.Fprintf(stdout, "  capture.region: top=%d left=%d width=%d height=%d\n",
		ctx.Config.Capture.Region.Top, ctx.Config.Capture.Region.Left,
		ctx.Config.Capture.Region.Width, ctx.Config.Capture.Region.Height)
	fmt.Fprintf(stdout, "  capture.frame_rate: %g\n", ctx.Config.Capture.FrameRate)
	fmt.Fprintf(stdout, "  capture.format: %s\n", ctx.Config.Capture.Format)
	fmt.Fprintf(stdout, "  keys.gameplay: %v\n", ctx.Config.Keys.Gameplay)
	fmt.Fprintf(stdout, "  keys.session_toggle: %s\n", ctx.Config.Keys.SessionToggle)
	fmt.Fprintf(stdout, "  keys.fight_start: %s\n", ctx.Config.Keys.FightStart)
	fmt.Fprintf(stdout, "  keys.fight_end: %s\n", ctx.Config.Keys.FightEnd)
	fmt.Fprintf(stdout, "  logging.level: %s\n", ctx.Config.Logging.Level)
	fmt.Fprintf(stdout, "  logging.format: %s\n", ctx.Config.Logging.Format)
}

func boolFlag(fs *flag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	if f == nil {
		return false
	}
	value, err := strconv.ParseBool(f.Value.String())
	if err != nil {
		return false
	}
	return value
}

func durationFlag(fs *flag.FlagSet, name string) time.Duration {
	f := fs.Lookup(name)
	if f == nil {
		return 0
	}
	value, err := time.ParseDuration(f.Value.String())
	if err != nil {
		return 0
	}
	return value
}
