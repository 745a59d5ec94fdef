package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jxwalker/cfcore/internal/config"
	"github.com/jxwalker/cfcore/internal/curseforge"
	"github.com/jxwalker/cfcore/internal/downloader"
	friendlyerrors "github.com/jxwalker/cfcore/internal/errors"
	"github.com/jxwalker/cfcore/internal/lockfile"
	"github.com/jxwalker/cfcore/internal/logging"
	"github.com/jxwalker/cfcore/internal/metrics"
	"github.com/jxwalker/cfcore/internal/state"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	downloader.Version = version
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("no command provided")
	}

	cmd := args[0]
	switch cmd {
	case "config":
		return handleConfig(ctx, args[1:])
	case "download":
		return handleDownload(ctx, args[1:])
	case "file":
		return handleFile(ctx, args[1:])
	case "deps":
		return handleDeps(ctx, args[1:])
	case "mod":
		return handleMod(ctx, args[1:])
	case "search":
		return handleSearch(ctx, args[1:])
	case "game":
		return handleGame(ctx, args[1:])
	case "categories":
		return handleCategories(ctx, args[1:])
	case "identify":
		return handleIdentify(ctx, args[1:])
	case "verify":
		return handleVerify(ctx, args[1:])
	case "status":
		return handleStatus(ctx, args[1:])
	case "version":
		fmt.Println(version)
		return nil
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func usage() {
	fmt.Println(strings.TrimSpace(`cfcore - CurseForge mod client

Usage:
  cfcore <command> [flags]

Commands:
  download          Download a mod file (--mod/--file) or a direct URL, verifying its hash
  file              Show a mod file
  deps              List the resolved dependencies of a mod file
  mod               Show a mod by id or slug
  search            Search mods of a game
  game              Show a game by id or slug
  categories        List the categories of a game
  identify          Look up local files by CurseForge fingerprint
  verify            Re-verify downloaded files against their recorded digests
  status            Show the download ledger
  config init       Write a new config file interactively
  config validate   Validate a YAML config file
  config print      Print the loaded config as JSON
  version           Print version
  help              Show this help

Flags:
  --config PATH     Path to YAML config file (or CFCORE_CONFIG env var; default: ~/.config/cfcore/config.yml)
  --log-level L     Log level: debug|info|warn|error (per command)
  --json            JSON output (per command)
`))
}

// common holds the flags every command accepts.
type common struct {
	cfgPath  *string
	logLevel *string
	jsonOut  *bool
}

func commonFlags(fs *flag.FlagSet) common {
	return common{
		cfgPath:  fs.String("config", "", "Path to YAML config file"),
		logLevel: fs.String("log-level", "info", "log level"),
		jsonOut:  fs.Bool("json", false, "json output"),
	}
}

func resolveConfigPath(p string) string {
	if p != "" {
		return p
	}
	if env := os.Getenv("CFCORE_CONFIG"); env != "" {
		return env
	}
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return filepath.Join(h, ".config", "cfcore", "config.yml")
	}
	return ""
}

// env is what a command needs after flag parsing.
type env struct {
	cfg *config.Config
	log *logging.Logger
}

func (co common) load() (*env, error) {
	p := resolveConfigPath(*co.cfgPath)
	if _, err := os.Stat(p); err != nil {
		return nil, friendlyerrors.NewFriendlyError(
			fmt.Sprintf("config file not found: %s", p),
			"Pass --config PATH or set CFCORE_CONFIG").WithDetails(err)
	}
	c, err := config.Load(p)
	if err != nil {
		return nil, err
	}
	format := c.Logging.Format == "json"
	level := *co.logLevel
	if level == "info" && c.Logging.Level != "" {
		level = c.Logging.Level
	}
	return &env{cfg: c, log: logging.New(level, format)}, nil
}

func (e *env) openState() (*state.DB, error) {
	st, err := state.Open(e.cfg)
	if err != nil {
		return nil, friendlyerrors.DatabaseError(err)
	}
	return st, nil
}

// lock takes the per-data_root process lock guarding ledger writes.
func (e *env) lock() (*lockfile.LockFile, error) {
	if err := config.EnsureDir(e.cfg.General.DataRoot, 0o755); err != nil {
		return nil, friendlyerrors.PathError(e.cfg.General.DataRoot, err)
	}
	l, err := lockfile.Acquire(filepath.Join(e.cfg.General.DataRoot, "cfcore.lock"))
	if errors.Is(err, lockfile.ErrLocked) {
		return nil, friendlyerrors.NewFriendlyError(
			"Another cfcore process is writing the download ledger",
			"Wait for it to finish, or remove the lock file if it is stale").WithDetails(err)
	}
	return l, err
}

// client builds an API client whose downloader records into st.
func (e *env) client(st *state.DB) (*curseforge.Client, error) {
	dl := downloader.New(e.cfg, e.log, st, metrics.New(e.cfg))
	c, err := curseforge.New(e.cfg, e.log, curseforge.WithDownloader(dl))
	if err != nil {
		return nil, e.friendly(err)
	}
	return c, nil
}

// friendly turns the errors a user can act on into UserFriendlyError.
func (e *env) friendly(err error) error {
	if err == nil {
		return nil
	}
	var ue *friendlyerrors.UserFriendlyError
	if errors.As(err, &ue) {
		return err
	}
	keyEnv := config.DefaultKeyEnv
	if e != nil && e.cfg != nil {
		keyEnv = e.cfg.API.KeyEnv
	}
	var ae *curseforge.APIError
	var pe *os.PathError
	switch {
	case errors.Is(err, curseforge.ErrMissingAPIKey):
		return friendlyerrors.AuthError(keyEnv, 0, err)
	case errors.Is(err, curseforge.ErrUnauthorized) && errors.As(err, &ae):
		return friendlyerrors.AuthError(keyEnv, ae.Code, err)
	case errors.Is(err, downloader.ErrTransport):
		return friendlyerrors.NetworkError(err)
	case errors.As(err, &pe):
		return friendlyerrors.PathError(pe.Path, err)
	}
	return err
}

func printJSON(v any) error { return printJSONTo(os.Stdout, v) }

func printJSONTo(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func handleConfig(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("config subcommand required: init | validate | print")
	}
	sub := args[0]
	if sub == "init" {
		return handleConfigInit(args[1:])
	}
	fs := flag.NewFlagSet("config "+sub, flag.ContinueOnError)
	co := commonFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	switch sub {
	case "validate":
		e, err := co.load()
		if err != nil {
			return err
		}
		if err := e.cfg.ValidateWithFriendlyErrors(); err != nil {
			return err
		}
		e.log.Infof("config: valid")
		return nil
	case "print":
		e, err := co.load()
		if err != nil {
			return err
		}
		out := *e.cfg
		if out.API.Key != "" {
			out.API.Key = logging.RedactKey(out.API.Key)
		}
		return printJSON(out)
	default:
		return fmt.Errorf("unknown config subcommand: %s", sub)
	}
}
