package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/praatgo/shell/internal/classes"
	"github.com/praatgo/shell/internal/config"
	"github.com/praatgo/shell/internal/core/event"
	"github.com/praatgo/shell/internal/editor"
	"github.com/praatgo/shell/internal/objects"
	"github.com/praatgo/shell/internal/prefs"
	"github.com/praatgo/shell/internal/scripting"
	"github.com/praatgo/shell/internal/shutdown"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	flagConfig      string
	flagNoPrefFiles bool
	flagBatch       bool
)

var rootCmd = &cobra.Command{
	Use:   "praatshell [script.lua ...]",
	Short: "Scriptable object shell",
	Long: `Runs Lua scripts against a session of named, selectable objects.
With script arguments the scripts run in order and the session exits;
without them commands are read from standard input one line at a time.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "config file (default $PRAAT_CONFIG or config/praat.toml)")
	rootCmd.Flags().BoolVar(&flagNoPrefFiles, "no-pref-files", false, "neither read nor write preferences, buttons and pid files")
	rootCmd.Flags().BoolVar(&flagBatch, "batch", false, "run without an object window")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfgPath := "config/praat.toml"
	if p := os.Getenv("PRAAT_CONFIG"); p != "" {
		cfgPath = p
	}
	if flagConfig != "" {
		cfgPath = flagConfig
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagNoPrefFiles {
		cfg.Prefs.IgnoreFiles = true
	}
	if flagBatch || len(args) > 0 {
		cfg.App.Batch = true
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Class table
	table := classes.Default()
	if cfg.Classes.Path != "" {
		if table, err = classes.Load(cfg.Classes.Path); err != nil {
			return fmt.Errorf("load classes: %w", err)
		}
	}
	log.Info("classes loaded", zap.Int("count", table.Len()))

	// 4. Preferences, buttons, pid file
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, closeStore, err := openStore(ctx, cfg, log)
	cancel()
	if err != nil {
		return err
	}
	defer closeStore()

	values := prefs.Values{}
	buttons := &prefs.Buttons{}
	if !cfg.Prefs.IgnoreFiles {
		if values, err = store.Read(context.Background()); err != nil {
			log.Warn("preferences not read", zap.Error(err))
			values = prefs.Values{}
		}
		if buttons, err = prefs.ReadButtons(cfg.Prefs.ButtonsFile()); err != nil {
			log.Warn("buttons not read", zap.Error(err))
			buttons = &prefs.Buttons{}
		}
		if err := shutdown.WritePidFile(cfg.Prefs.PidFile(), os.Getpid()); err != nil {
			log.Warn("pid file not written", zap.Error(err))
		}
	}

	// 5. Registry
	bus := event.NewBus()
	watchObjects(bus, log)
	reg := objects.New(cfg.Objects, bus, log)
	reg.SetFileFlusher(objects.FlushFunc(func(s *objects.Slot) error {
		log.Debug("file released", zap.String("object", s.FullName()), zap.String("file", s.File()))
		return nil
	}))

	out := bufio.NewWriter(os.Stdout)
	eng := scripting.NewEngine(scripting.Env{
		Registry: reg,
		Classes:  table,
		Editors:  editor.NewManager(reg, out, log),
		Buttons:  buttons,
		Prefs:    values,
		Out:      out,
	}, log)
	defer eng.Close()

	seq := shutdown.New(cfg, shutdown.Deps{
		Registry: reg,
		Store:    store,
		Values:   values,
		Buttons:  buttons,
		Flush: []func() error{
			out.Flush,
			func() error { _ = log.Sync(); return nil },
		},
		Close: []func(){closeStore, eng.Close},
	}, log)

	// Orderly never returns: the deferred closes above only cover early
	// errors, the sequencer owns them from here on.

	// 6. Startup scripts, then the command line or standard input
	if err := eng.RunDir(cfg.Scripting.Dir); err != nil {
		log.Error("startup script failed", zap.Error(err))
	}
	out.Flush()

	if len(args) > 0 {
		code := 0
		for _, path := range args {
			if err := eng.RunFile(path); err != nil {
				fmt.Fprintln(os.Stderr, err)
				code = 1
				break
			}
		}
		seq.Orderly(context.Background(), code)
		return nil
	}

	// 7. Command loop. Everything touching the registry stays on this goroutine.
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	lines := readLines(os.Stdin)

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				log.Info("end of input")
				seq.Orderly(context.Background(), 0)
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := eng.RunString("stdin", line); err != nil {
				fmt.Fprintln(out, "error:", err)
			}
			out.Flush()
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			seq.Orderly(context.Background(), 0)
			return nil
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (prefs.Store, func(), error) {
	switch cfg.Prefs.Backend {
	case "postgres":
		s, err := prefs.OpenPG(ctx, cfg.Prefs.DSN, cfg.App.Title, log)
		if err != nil {
			return nil, nil, fmt.Errorf("open preferences db: %w", err)
		}
		return s, s.Close, nil
	default:
		return prefs.NewFileStore(cfg.Prefs.PrefsFile()), func() {}, nil
	}
}

func watchObjects(bus *event.Bus, log *zap.Logger) {
	event.Subscribe(bus, func(e event.ObjectInserted) {
		log.Debug("object inserted", zap.Stringer("id", e.ID), zap.String("name", e.FullName))
	})
	event.Subscribe(bus, func(e event.ObjectRemoved) {
		log.Debug("object removed", zap.Stringer("id", e.ID))
	})
	event.Subscribe(bus, func(e event.ObjectRenamed) {
		log.Debug("object renamed", zap.Stringer("id", e.ID), zap.String("name", e.FullName))
	})
}

// readLines feeds r line by line into the returned channel, closing it at
// end of input.
func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
		if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintln(os.Stderr, "read input:", err)
		}
	}()
	return ch
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
