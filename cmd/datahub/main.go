// Command datahub is the operational entry point for the dataset catalog
// engine: search and autocomplete from the shell, plus index maintenance.
// The interactive terminal UI uses the same engine through internal/engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	osfs "github.com/hack-pad/hackpadfs/os"
	"go.uber.org/zap"

	"github.com/0xpix/hei-datahub/internal/catalog"
	"github.com/0xpix/hei-datahub/internal/config"
	"github.com/0xpix/hei-datahub/internal/engine"
	"github.com/0xpix/hei-datahub/internal/index"
	"github.com/0xpix/hei-datahub/internal/logger"
	"github.com/0xpix/hei-datahub/pkg/highlight"
	"github.com/0xpix/hei-datahub/pkg/query"
	"github.com/0xpix/hei-datahub/pkg/schema"
)

const usage = `usage: datahub [-config path] <command> [arguments]

commands:
  search <query>   execute a search and print ranked results
  suggest <text>   print the completion for a partial query, if any
  reindex          rebuild the search index from the catalog cards
  verify           check index storage integrity
`

func main() {
	configPath := flag.String("config", config.DefaultPath(), "config file path")
	limit := flag.Int("limit", 0, "max results for search (0 = configured default)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, *limit, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "datahub:", err)
		os.Exit(1)
	}
}

func run(configPath string, limit int, command string, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	e, closeEngine, err := buildEngine(cfg, log)
	if err != nil {
		return err
	}
	defer closeEngine()

	if limit <= 0 {
		limit = cfg.Search.Limit
	}

	switch command {
	case "search":
		return cmdSearch(e, args, limit)
	case "suggest":
		return cmdSuggest(e, args)
	case "reindex":
		return cmdReindex(e)
	case "verify":
		return e.Verify()
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// buildEngine opens the catalog and the index and wires them together. The
// index handle is created here and owned here; components receive it
// explicitly.
func buildEngine(cfg config.Config, log *zap.Logger) (*engine.Engine, func(), error) {
	hostFS := osfs.NewFS()
	catalogDir, err := hostFS.FromOSPath(cfg.CatalogDir)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve catalog dir: %w", err)
	}
	cat, err := catalog.NewStore(hostFS, catalogDir)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.IndexPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create index dir: %w", err)
	}
	idx, err := index.Open(cfg.IndexPath, log)
	if err != nil {
		return nil, nil, err
	}

	window := time.Duration(cfg.Search.DebounceMS) * time.Millisecond
	e := engine.New(cat, idx, schema.Default(), log, window)
	closeAll := func() {
		e.Close()
		idx.Close()
	}
	return e, closeAll, nil
}

func cmdSearch(e *engine.Engine, args []string, limit int) error {
	if len(args) < 1 {
		return errors.New("search needs a query argument")
	}
	text := args[0]

	results, err := e.Search(context.Background(), text, limit)
	if err != nil {
		if errors.Is(err, index.ErrIndexCorrupt) {
			return fmt.Errorf("%w (run: datahub reindex)", err)
		}
		return err
	}

	hl := highlight.FromQuery(query.NewParser(schema.Default()).Parse(text))
	for _, r := range results {
		fmt.Printf("%-24s %8.3f  %s\n", r.ID, r.Score, r.Record.Name)
		if r.Record.Description != "" {
			fmt.Printf("%24s %8s  %s\n", "", "", hl.Snippet(r.Record.Description, 60))
		}
	}
	fmt.Printf("%d result(s)\n", len(results))
	return nil
}

func cmdSuggest(e *engine.Engine, args []string) error {
	if len(args) < 1 {
		return errors.New("suggest needs a partial query argument")
	}

	sug, err := e.Suggest(args[0])
	if err != nil {
		return err
	}
	if sug != nil {
		fmt.Println(sug.Text)
	}
	return nil
}

func cmdReindex(e *engine.Engine) error {
	count, errs := e.Reindex()
	fmt.Printf("indexed %d record(s), %d error(s)\n", count, len(errs))
	for _, err := range errs {
		fmt.Fprintln(os.Stderr, " -", err)
	}
	if len(errs) > 0 {
		// The successfully indexed records stay searchable; the exit code
		// reports the partial failure.
		return fmt.Errorf("reindex finished with %d error(s)", len(errs))
	}
	return nil
}
