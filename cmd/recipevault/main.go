// cmd/recipevault/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/recipevault/internal/config"
	apperrors "github.com/valpere/recipevault/internal/errors"
	"github.com/valpere/recipevault/internal/output"
	"github.com/valpere/recipevault/internal/scraper"
	"github.com/valpere/recipevault/internal/storage"
	"github.com/valpere/recipevault/internal/utils"
	"github.com/valpere/recipevault/pkg/types"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cli carries the streams and shared options of one invocation.
type cli struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	verbose bool
	// openStore is replaced in tests.
	openStore func(ctx context.Context, cfg storage.Config) (storage.Store, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr, openStore: storage.Open}
	code := c.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run dispatches a command and returns the process exit code.
func (c *cli) run(ctx context.Context, args []string) int {
	args, c.verbose = extractVerbose(args)
	if len(args) < 1 {
		c.printUsage()
		return 1
	}

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "scrape":
		err = c.scrape(ctx, rest)
	case "extract":
		err = c.extract(rest)
	case "list":
		err = c.list(ctx, rest)
	case "delete":
		err = c.delete(ctx, rest)
	case "export":
		err = c.export(ctx, rest)
	case "version", "--version":
		c.printVersion()
	case "help", "--help", "-h":
		c.printUsage()
	default:
		fmt.Fprintf(c.stderr, "Error: unknown command '%s'\n", command)
		c.printUsage()
		return 1
	}

	if err != nil {
		fmt.Fprint(c.stderr, apperrors.FormatForCLI(err, c.verbose))
		return apperrors.ExitCode(err)
	}
	return 0
}

// extractVerbose removes -v/--verbose wherever it appears.
func extractVerbose(args []string) ([]string, bool) {
	out := make([]string, 0, len(args))
	verbose := false
	for _, arg := range args {
		if arg == "-v" || arg == "--verbose" {
			verbose = true
			continue
		}
		out = append(out, arg)
	}
	return out, verbose
}

// loadConfig loads the file (or defaults) and sets up logging to stderr.
func (c *cli) loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, apperrors.Input("%v", err)
	}
	if c.verbose {
		cfg.Logging.Level = "debug"
	} else if !strings.EqualFold(cfg.Logging.Level, "debug") {
		cfg.Logging.Level = "warn"
	}
	log := utils.SetupLoggerTo(c.stderr, cfg.Logging)
	zerolog.DefaultContextLogger = &log
	return cfg, nil
}

func (c *cli) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

// parseInterspersed parses flags that may appear before or after positional
// arguments.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, apperrors.Input("%v", err)
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func (c *cli) scrape(ctx context.Context, args []string) error {
	fs := c.newFlagSet("scrape")
	configPath := fs.String("config", "", "configuration file")
	save := fs.Bool("save", false, "store the recipe")
	useBrowser := fs.Bool("browser", false, "render the page in headless Chrome")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return apperrors.Input("usage: recipevault scrape <url> [--save] [--browser] [--config file]")
	}

	cfg, err := c.loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *useBrowser {
		cfg.Fetcher.Mode = config.FetchModeBrowser
	}

	engine, fetcher, err := scraper.NewEngineFromConfig(cfg.Fetcher)
	if err != nil {
		return apperrors.Input("%v", err)
	}
	defer fetcher.Close()

	recipe, err := engine.Scrape(ctx, positional[0])
	if err != nil {
		return err
	}

	if *save {
		store, err := c.openStore(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()

		recipe, err = store.Upsert(ctx, *recipe)
		if err != nil {
			return err
		}
	}
	return c.printJSON(recipe)
}

func (c *cli) extract(args []string) error {
	fs := c.newFlagSet("extract")
	sourceURL := fs.String("url", "", "source URL recorded on the recipe")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return apperrors.Input("usage: recipevault extract <file.html> [--url url]")
	}

	var page []byte
	if positional[0] == "-" {
		page, err = io.ReadAll(c.stdin)
	} else {
		page, err = os.ReadFile(positional[0])
	}
	if err != nil {
		return apperrors.Input("cannot read page: %v", err)
	}

	recipe := scraper.NewEngine(nil).Extract(string(page), *sourceURL)
	return c.printJSON(recipe)
}

func (c *cli) list(ctx context.Context, args []string) error {
	fs := c.newFlagSet("list")
	configPath := fs.String("config", "", "configuration file")
	format := fs.String("format", "json", "output format: json, yaml or csv")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}
	if f, err := output.ParseFormat(*format); err == nil && !f.Printable() {
		return apperrors.Input("%s is a binary format; use: recipevault export --format %s --out <file>", f, f)
	}

	manager, err := output.NewManager(&output.Config{Format: output.Format(*format), File: "-"})
	if err != nil {
		return apperrors.Input("%v", err)
	}

	recipes, err := c.loadAll(ctx, *configPath)
	if err != nil {
		return err
	}
	return writeTo(manager, c.stdout, recipes)
}

func (c *cli) delete(ctx context.Context, args []string) error {
	fs := c.newFlagSet("delete")
	configPath := fs.String("config", "", "configuration file")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 || strings.TrimSpace(positional[0]) == "" {
		return apperrors.Input("usage: recipevault delete <url> [--config file]")
	}

	cfg, err := c.loadConfig(*configPath)
	if err != nil {
		return err
	}
	store, err := c.openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	deleted, err := store.DeleteByURL(ctx, strings.TrimSpace(positional[0]))
	if err != nil {
		return err
	}
	if deleted == nil {
		return apperrors.NotFound("no recipe stored for %s", positional[0])
	}
	fmt.Fprintf(c.stdout, "Recipe deleted: %s\n", deleted.Title)
	return nil
}

func (c *cli) export(ctx context.Context, args []string) error {
	fs := c.newFlagSet("export")
	configPath := fs.String("config", "", "configuration file")
	format := fs.String("format", "", "json, yaml, csv, xlsx or pdf (default: from --out extension)")
	out := fs.String("out", "", "output file; - for standard output")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}

	// Binary formats cannot go to the terminal; name a file instead.
	if *out == "" && *format != "" {
		if f, err := output.ParseFormat(*format); err == nil && !f.Printable() {
			*out = utils.ExportFileName("recipes", string(f), time.Now())
		}
	}

	manager, err := output.NewManager(&output.Config{Format: output.Format(*format), File: *out})
	if err != nil {
		return apperrors.Input("%v", err)
	}

	recipes, err := c.loadAll(ctx, *configPath)
	if err != nil {
		return err
	}
	if *out == "" || *out == "-" {
		return writeTo(manager, c.stdout, recipes)
	}

	start := time.Now()
	if err := manager.Write(recipes); err != nil {
		return apperrors.Internal(err, "export failed")
	}
	fmt.Fprintf(c.stderr, "Exported %d recipes to %s in %s\n", len(recipes), *out, utils.FormatDuration(time.Since(start)))
	return nil
}

func (c *cli) loadAll(ctx context.Context, configPath string) ([]types.Recipe, error) {
	cfg, err := c.loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	store, err := c.openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.ListAll(ctx)
}

func writeTo(m *output.Manager, w io.Writer, recipes []types.Recipe) error {
	writer, err := m.GetWriter()
	if err != nil {
		return apperrors.Input("%v", err)
	}
	if err := writer.Write(w, recipes); err != nil {
		return apperrors.Internal(err, "failed to write %s", writer.Format())
	}
	return nil
}

func (c *cli) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// printUsage displays help information
func (c *cli) printUsage() {
	fmt.Fprintln(c.stdout, "recipevault - recipe page extraction and storage")
	fmt.Fprintln(c.stdout)
	fmt.Fprintln(c.stdout, "Usage:")
	fmt.Fprintln(c.stdout, "  recipevault scrape <url> [--save] [--browser]   Fetch a page and print the recipe")
	fmt.Fprintln(c.stdout, "  recipevault extract <file.html> [--url url]     Extract a recipe from a saved page")
	fmt.Fprintln(c.stdout, "  recipevault list [--format json|yaml|csv]       List stored recipes")
	fmt.Fprintln(c.stdout, "  recipevault delete <url>                        Delete a stored recipe")
	fmt.Fprintln(c.stdout, "  recipevault export --out <file> [--format f]    Export stored recipes")
	fmt.Fprintln(c.stdout, "  recipevault version                             Show version information")
	fmt.Fprintln(c.stdout, "  recipevault help                                Show this help message")
	fmt.Fprintln(c.stdout)
	fmt.Fprintln(c.stdout, "Options:")
	fmt.Fprintln(c.stdout, "  --config <file>                                 Configuration file (YAML)")
	fmt.Fprintln(c.stdout, "  -v, --verbose                                   Enable verbose output")
	fmt.Fprintln(c.stdout)
	fmt.Fprintln(c.stdout, "Export formats: json, yaml, csv, xlsx, pdf")
}

// printVersion displays version information
func (c *cli) printVersion() {
	fmt.Fprintf(c.stdout, "recipevault %s\n", version)
	fmt.Fprintf(c.stdout, "Build time: %s\n", buildTime)
	fmt.Fprintf(c.stdout, "Git commit: %s\n", gitCommit)
}
