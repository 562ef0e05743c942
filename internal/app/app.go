package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/kobzarvs/qmap/internal/autosave"
	"github.com/kobzarvs/qmap/internal/config"
	"github.com/kobzarvs/qmap/internal/document"
	"github.com/kobzarvs/qmap/internal/logger"
	"github.com/kobzarvs/qmap/internal/model"
	"github.com/kobzarvs/qmap/internal/script"
)

const usage = "usage: qmap [--map FILE] [--no-autosave] [--recover] [--backups] SCRIPT.yaml"

// App is the top-level runtime for qmap.
type App struct {
	args []string
	out  io.Writer

	scriptPath string
	mapPath    string
	noAutosave bool
	restore    bool
	listOnly   bool
}

func New(args []string) *App {
	return &App{args: args, out: os.Stdout}
}

func (a *App) parseArgs() error {
	for i := 0; i < len(a.args); i++ {
		switch arg := a.args[i]; arg {
		case "--map":
			if i+1 >= len(a.args) {
				return fmt.Errorf("--map needs a file\n%s", usage)
			}
			i++
			a.mapPath = a.args[i]
		case "--no-autosave":
			a.noAutosave = true
		case "--recover":
			a.restore = true
		case "--backups":
			a.listOnly = true
		case "-h", "--help":
			return errors.New(usage)
		default:
			if a.scriptPath != "" {
				return fmt.Errorf("unexpected argument %q\n%s", arg, usage)
			}
			a.scriptPath = arg
		}
	}
	if a.scriptPath == "" && !a.listOnly {
		return errors.New(usage)
	}
	return nil
}

func (a *App) Run() error {
	if err := a.parseArgs(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	games, err := config.LoadGames()
	if err != nil {
		return err
	}
	log, err := logger.Init(cfg.Editor.Debug)
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.Info("qmap starting", "script", a.scriptPath, "map", a.mapPath, "autosave", !cfg.Autosave.Disabled && !a.noAutosave)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := &script.Script{}
	if a.scriptPath != "" {
		if s, err = script.Load(a.scriptPath); err != nil {
			return err
		}
	}

	doc, err := a.openDocument(cfg, games, s, log)
	if err != nil {
		return err
	}
	defer doc.Close()

	var store *autosave.Store
	if (!cfg.Autosave.Disabled && !a.noAutosave) || a.listOnly || a.restore {
		dbPath, err := cfg.BackupDatabasePath()
		if err != nil {
			return err
		}
		store, err = autosave.OpenStore(ctx, dbPath, cfg.Autosave.MaxBackups)
		if err != nil {
			return fmt.Errorf("open backups: %w", err)
		}
		defer store.Close()
	}

	if a.listOnly {
		return a.listBackups(ctx, store, doc)
	}
	if a.restore {
		if err := a.restoreLatest(ctx, store, doc); err != nil {
			return err
		}
	}

	runner := script.NewRunner(doc, newClipboard(), log.Named("script"))
	runner.Out = a.out

	var sched *autosave.Scheduler
	if store != nil && !cfg.Autosave.Disabled && !a.noAutosave {
		saver := autosave.NewAutosaver(doc, store, cfg.Autosave.SaveInterval.Duration,
			autosave.WithLogger(log.Named("autosave")))
		sched = autosave.NewScheduler(saver, cfg.Autosave.IdleWindow.Duration)
		check := cfg.Autosave.CheckInterval.Duration
		runner.Input = func() {
			sched.PollEvery(ctx, check)
			sched.NoteInput()
		}
		runner.Idle = func(ctx context.Context, d time.Duration) error {
			return idleLoop(ctx, sched, check, d)
		}
	}

	runErr := runner.Run(ctx, s)
	if runErr != nil {
		log.Error("script failed", zap.String("script", a.scriptPath), zap.Error(runErr))
	} else {
		logger.Debug("script finished", "steps", len(s.Steps), "modified", doc.Modified())
	}

	fmt.Fprintf(a.out, "%s: %s, %s, modified=%t\n", doc.Name(), doc.UndoCommandName(), doc.RedoCommandName(), doc.Modified())

	if sched != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sched.Shutdown(shutdownCtx)
	}
	return runErr
}

func (a *App) openDocument(cfg config.Config, games config.Games, s *script.Script, log *zap.Logger) (*document.Document, error) {
	game := a.pickGame(cfg, games, s)
	if game == nil {
		name := s.Game
		if name == "" {
			name = cfg.Editor.Game
		}
		return nil, fmt.Errorf("unknown game %q", name)
	}
	texture := cfg.Editor.DefaultTexture
	if game.DefaultTexture != "" {
		texture = game.DefaultTexture
	}
	opts := []document.Option{
		document.WithLogger(log.Named("document")),
		document.WithMaxEntries(cfg.History.MaxEntries),
		document.WithDefaultTexture(texture),
	}
	if a.mapPath != "" {
		if _, err := os.Stat(a.mapPath); err == nil {
			return document.Open(a.mapPath, opts...)
		}
		opts = append(opts, document.WithPath(a.mapPath))
	}
	half := s.World
	if half <= 0 {
		half = game.HalfSize()
	}
	log.Info("new document", zap.String("game", game.Name), zap.Float64("world", half))
	doc := document.New(model.CubeAround(model.Vec3{}, half), opts...)
	return doc, nil
}

func (a *App) pickGame(cfg config.Config, games config.Games, s *script.Script) *config.Game {
	if s.Game != "" {
		return games.Find(s.Game)
	}
	if a.mapPath != "" {
		if g := games.Match(a.mapPath); g != nil {
			return g
		}
	}
	return games.Find(cfg.Editor.Game)
}

func (a *App) listBackups(ctx context.Context, store *autosave.Store, doc *document.Document) error {
	backups, err := store.List(ctx, doc.BackupKey())
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Fprintf(a.out, "%s: no backups\n", doc.Name())
		return nil
	}
	for _, b := range backups {
		fmt.Fprintf(a.out, "%d\t%s\tmodification %d\n", b.ID, b.CreatedAt.Format(time.RFC3339), b.Modification)
	}
	return nil
}

func (a *App) restoreLatest(ctx context.Context, store *autosave.Store, doc *document.Document) error {
	b, err := store.Latest(ctx, doc.BackupKey())
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	logger.Warn("restoring backup", "document", doc.Name(), "backup", b.ID, "modification", b.Modification)
	if err := doc.Restore(bytes.NewReader(b.Data)); err != nil {
		logger.Error("restore failed", "backup", b.ID, "error", err)
		return err
	}
	fmt.Fprintf(a.out, "%s: restored backup %d from %s\n", doc.Name(), b.ID, b.CreatedAt.Format(time.RFC3339))
	return nil
}

// idleLoop waits for d while polling the scheduler once per check interval.
func idleLoop(ctx context.Context, sched *autosave.Scheduler, check, d time.Duration) error {
	if check <= 0 {
		check = autosave.DefaultCheckInterval
	}
	ticker := time.NewTicker(check)
	defer ticker.Stop()
	done := time.NewTimer(d)
	defer done.Stop()

	for {
		select {
		case <-ticker.C:
			sched.Poll(ctx)
		case <-done.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
