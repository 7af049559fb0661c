package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/yudhasubki/spinmutex"
	"gopkg.in/yaml.v3"
)

var (
	errorEmptyPath = errors.New("configuration path is empty")
	shutdown       = make(chan os.Signal, 1)
)

func main() {
	m := &Main{}

	err := m.Run(context.Background(), os.Args[1:])
	if err != nil {
		slog.Error("failed to run", "error", err)
		os.Exit(1)
	}
}

type Main struct{}

func (m *Main) Run(ctx context.Context, args []string) error {
	var cmd string
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "run":
		return (&Run{}).Run(ctx, args)
	case "http":
		return (&Http{}).Run(ctx, args)
	default:
		if cmd == "" || cmd == "help" {
			m.Usage()
			return flag.ErrHelp
		}

		return fmt.Errorf("unknown command : %v", cmd)
	}
}

func (m *Main) Usage() {
	fmt.Println(`
spinmutex is a stress driver for a busy-waiting mutex

Usage:

	spinmutex <command> [arguments]

The commands are:

	run     	run one stress pass and exit non-zero on a lost update
	http    	run one stress pass and serve its result and metrics over http
`[1:])
}

type Config struct {
	Stress  StressConfig  `yaml:"stress"`
	Http    HttpConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

func DefaultConfig() Config {
	return Config{
		Stress: StressConfig{
			Workers:    spinmutex.DefaultWorkers,
			Iterations: spinmutex.DefaultIterations,
			Timeout:    spinmutex.DefaultTimeout,
		},
		Http: HttpConfig{
			Port:     "8080",
			Shutdown: 5 * time.Second,
		},
	}
}

func ReadConfigFile(filename string) (_ Config, err error) {
	config := DefaultConfig()
	if filename != "" {
		b, err := os.ReadFile(filename)
		if err != nil {
			return config, err
		}

		err = yaml.Unmarshal(b, &config)
		if err != nil {
			return config, err
		}
	}

	if config.Stress.Timeout.Seconds() == 0 {
		config.Stress.Timeout = spinmutex.DefaultTimeout
	}
	if config.Http.Shutdown.Seconds() == 0 {
		config.Http.Shutdown = 5 * time.Second
	}

	slog.SetDefault(slog.New(newLogHandler(config.Logging)))

	return config, nil
}

func newLogHandler(cfg LoggingConfig) slog.Handler {
	logOutput := os.Stdout
	if cfg.Stderr {
		logOutput = os.Stderr
	}

	logOpts := slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	switch strings.ToUpper(cfg.Level) {
	case "DEBUG":
		logOpts.Level = slog.LevelDebug
	case "WARN", "WARNING":
		logOpts.Level = slog.LevelWarn
	case "ERROR":
		logOpts.Level = slog.LevelError
	}

	if cfg.Type == "json" {
		return slog.NewJSONHandler(logOutput, &logOpts)
	}
	return slog.NewTextHandler(logOutput, &logOpts)
}

func register(fs *flag.FlagSet) *string {
	return fs.String("config", "", "config path")
}

type StressConfig struct {
	Workers    int           `yaml:"workers"`
	Iterations int           `yaml:"iterations"`
	Timeout    time.Duration `yaml:"timeout"`
}

func (c StressConfig) Stress() spinmutex.Config {
	return spinmutex.Config{
		Workers:    c.Workers,
		Iterations: c.Iterations,
		Timeout:    c.Timeout,
	}
}

type HttpConfig struct {
	Port     string        `yaml:"port"`
	Shutdown time.Duration `yaml:"shutdown"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Type   string `yaml:"type"`
	Stderr bool   `yaml:"stderr"`
}
