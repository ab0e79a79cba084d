package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/prefetch/internal/domain-adapters/gateways"
	"github.com/ochairo/prefetch/internal/domain/entities"
	"github.com/ochairo/prefetch/internal/domain/interfaces"
	"github.com/ochairo/prefetch/internal/domain/interfaces/repositories"
	"github.com/ochairo/prefetch/internal/external-adapters/config"
	"github.com/ochairo/prefetch/internal/external-adapters/logrus"
)

const (
	defaultConfigFile = "versions.json"
	lockDirName       = ".locks"
)

// targetList collects repeated --target platform/arch flags
type targetList []entities.Target

func (t *targetList) String() string {
	parts := make([]string, 0, len(*t))
	for _, target := range *t {
		parts = append(parts, target.String())
	}
	return strings.Join(parts, ",")
}

func (t *targetList) Set(value string) error {
	target, err := entities.ParseTarget(value)
	if err != nil {
		return err
	}
	*t = append(*t, target)
	return nil
}

// commonFlags are shared by every command that reads the config
type commonFlags struct {
	configPath   string
	settingsPath string
	root         string
	targets      targetList
	logLevel     string
	logFormat    string
}

func (c *commonFlags) register(fs *flag.FlagSet, exeDir string) {
	fs.StringVar(&c.configPath, "config", filepath.Join(exeDir, defaultConfigFile), "Path to the version config (JSON, or YAML by extension)")
	fs.StringVar(&c.settingsPath, "settings", "", "Optional YAML settings file")
	fs.StringVar(&c.root, "root", "", "Cache root directory (default: settings root, else the executable directory)")
	fs.Var(&c.targets, "target", "Target as platform/arch, repeatable (default: linux/amd64, linux/arm64, windows/x64)")
	fs.StringVar(&c.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&c.logFormat, "log-format", logrus.FormatText, "Log format: text or json")
}

// newFlagSet creates a flag set that reports errors instead of exiting
func newFlagSet(name string, stderr io.Writer, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fmt.Fprintln(stderr, "\nOptions:")
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags maps flag parsing outcomes to exit codes; ok is false when the command should stop
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK, false
		}
		return exitUsage, false
	}
	return exitOK, true
}

// parseInterspersed parses flags that may appear before, between or after
// positional arguments, returning the positional arguments in order
func parseInterspersed(fs *flag.FlagSet, args []string) (positional []string, code int, ok bool) {
	for {
		if code, ok := parseFlags(fs, args); !ok {
			return nil, code, false
		}
		if fs.NArg() == 0 {
			return positional, exitOK, true
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

// executableDir returns the directory holding the running binary
func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// loadSettings applies defaults, the settings file and command-line overrides, in that order
func (c *commonFlags) loadSettings(exeDir string) (*entities.Settings, error) {
	settings := entities.DefaultSettings(exeDir)

	if c.settingsPath != "" {
		parsed, err := config.NewSettingsParser().ParseFile(c.settingsPath, settings)
		if err != nil {
			return nil, err
		}
		settings = parsed
	}

	if c.root != "" {
		settings.Root = c.root
	}
	if len(c.targets) > 0 {
		settings.Targets = append([]entities.Target(nil), c.targets...)
	}

	root, err := filepath.Abs(settings.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid root %q: %w", settings.Root, err)
	}
	settings.Root = root

	return settings, nil
}

func (c *commonFlags) configRepository() repositories.ConfigRepository {
	return config.NewConfigRepository(c.configPath)
}

func (c *commonFlags) loadConfig(ctx context.Context) (*entities.Config, error) {
	return c.configRepository().LoadConfig(ctx)
}

func (c *commonFlags) newLogger(stderr io.Writer) (interfaces.Logger, error) {
	logger, err := logrus.NewLogger(stderr, c.logLevel, c.logFormat)
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// newDownloader builds the downloader from settings. A nil progressOut disables progress output.
func newDownloader(settings *entities.Settings, logger interfaces.Logger, progressOut io.Writer) *gateways.Downloader {
	opts := gateways.DownloaderOptions{
		Timeout:      settings.HTTP.Timeout,
		MaxRedirects: settings.HTTP.MaxRedirects,
		UserAgent:    settings.HTTP.UserAgent,
		StepPercent:  settings.Progress.StepPercent,
		LockDir:      filepath.Join(settings.Root, lockDirName),
		LockTimeout:  settings.LockTimeout,
	}
	if progressOut != nil {
		opts.Progress = gateways.NewConsoleProgress(progressOut)
	}
	return gateways.NewDownloader(opts, logger)
}
