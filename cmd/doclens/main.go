package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"doclens/internal/config"
	"doclens/internal/errlog"
	"doclens/internal/fontcheck"
	"doclens/internal/processor"
	"doclens/internal/store"
)

const defaultConfigPath = "./data/config.json"

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "process":
		err = runProcess(os.Args[2:], os.Stdout)
	case "serve":
		err = runServe(os.Args[2:])
	case "cache":
		err = runCache(os.Args[2:], os.Stdout)
	case "logs":
		err = runLogs(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "doclens %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

// printUsage prints CLI usage information.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage:
  doclens process [-config file] [-pretty] [-debug] <file|dir>...
        Process files (directories are scanned recursively) and print
        the ProcessedDocument array as JSON.
  doclens serve [-config file] [-debug]
        Run the HTTP API (POST /api/v1/process, GET /healthz, GET /metrics).
  doclens cache stats [-config file]
        Print cached result counts by type.
  doclens cache purge [-config file] [-older-than 720h]
        Delete cached results older than the given age.
  doclens logs [-config file] [-n 50]
        Print the newest error log entries and list rotated archives.
  doclens help
        Show this help.

Supported formats: .csv .xls .xlsx .pdf .doc .docx .ppt .pptx .txt

Environment:
  DOCLENS_PORT       override server.port
  DOCLENS_CACHE_DB   enable the result cache at this path
  DOCLENS_LOG_LEVEL  override log.level (debug, info, warn, error)
`)
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configPath string
	debug      bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", defaultConfigPath, "path to the JSON config file")
	fs.BoolVar(&c.debug, "debug", false, "human-readable debug logging")
}

// cliEnv is what every subcommand builds from its flags.
type cliEnv struct {
	cfg    *config.Config
	log    *zap.Logger
	cache  *store.ResultStore // nil when disabled
	errLog *errlog.Writer     // nil unless log.error_dir is set
}

func setup(c commonFlags) (*cliEnv, error) {
	cm := config.NewConfigManager(c.configPath)
	if err := cm.Load(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := cm.Get()

	logger, err := newLogger(cfg.Log.Level, c.debug)
	if err != nil {
		return nil, err
	}
	rt := &cliEnv{cfg: cfg, log: logger}

	if cfg.Log.ErrorDir != "" {
		rt.errLog, err = errlog.Open(cfg.Log.ErrorDir, cfg.Log.ErrorMaxSizeMB)
		if err != nil {
			logger.Warn("[Log] error log disabled", zap.Error(err))
		} else {
			rt.log = teeErrors(logger, rt.errLog)
		}
	}

	if cfg.Processing.RenderSlides {
		fontcheck.Check(rt.log)
	}

	if cfg.Cache.Enabled {
		rt.cache, err = store.Open(cfg.Cache.DBPath)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("open result cache: %w", err)
		}
		rt.log.Info("[Cache] result cache enabled", zap.String("db_path", cfg.Cache.DBPath))
	}
	return rt, nil
}

func (rt *cliEnv) close() {
	if rt.cache != nil {
		if err := rt.cache.Close(); err != nil {
			rt.log.Warn("[Cache] close failed", zap.Error(err))
		}
	}
	rt.log.Sync()
	if rt.errLog != nil {
		rt.errLog.Close()
	}
}

// newProcessor builds the pipeline wired to the cache and obs (either may be nil).
func (rt *cliEnv) newProcessor(obs processor.Observer) *processor.Processor {
	opts := []processor.Option{processor.WithLogger(rt.log)}
	if rt.cache != nil {
		opts = append(opts, processor.WithCache(rt.cache))
	}
	if obs != nil {
		opts = append(opts, processor.WithObserver(obs))
	}
	return processor.New(rt.cfg.ProcessorConfig(), opts...)
}

// newLogger builds a production JSON logger at level, or a development
// console logger when debug is set.
func newLogger(level string, debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		zc.Level = lvl
	}
	return zc.Build()
}

// teeErrors copies ERROR and above into w as JSON lines.
func teeErrors(log *zap.Logger, w *errlog.Writer) *zap.Logger {
	errCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		w,
		zapcore.ErrorLevel,
	)
	return log.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, errCore)
	}))
}
