// contentctl inspects and edits page versions straight from the configured
// store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/debemdeboas/redux-content/internal/config"
	"github.com/debemdeboas/redux-content/internal/content"
	"github.com/debemdeboas/redux-content/internal/db"
	"github.com/debemdeboas/redux-content/internal/logger"
	"github.com/debemdeboas/redux-content/internal/model"
	"github.com/debemdeboas/redux-content/internal/pages"
	"github.com/debemdeboas/redux-content/internal/repository"
)

const usage = `usage: contentctl [-config config.yaml] <command> [args]

commands:
  pages                                              list pages
  history <page>                                     list versions with their diffs
  show <page> [-drafts]                              show the resolved elements
  draft <page> -file elements.json -author A [-note N]
  publish <page> -file elements.json -author A [-note N]
  revert <page> <version> -author A
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	godotenv.Load()

	l := logger.New("warn")
	config.SetLogger(l)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, config.ErrLoadConfigFmt+"\n", err)
		os.Exit(1)
	}

	l = logger.New(cfg.Logging.Level)
	db.SetLogger(l)
	repository.SetLogger(l)
	content.SetLogger(l)

	ctx := context.Background()

	registry, err := pages.Default()
	if err != nil {
		fmt.Fprintf(os.Stderr, config.ErrLoadDefaultsFmt+"\n", err)
		os.Exit(1)
	}

	repo, err := repository.Open(ctx, cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, config.ErrInitializeStoreFmt+"\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	timeout, _ := cfg.Storage.TimeoutDuration()
	cli := &CLI{
		Out:      os.Stdout,
		Resolver: content.NewResolver(repo, registry, timeout),
		Workflow: content.NewWorkflow(repo, content.WorkflowOptions{
			Timeout:    timeout,
			Validation: model.ValidationOptions{MaxListDepth: cfg.Content.MaxListDepth},
		}),
		Auditor: content.NewAuditor(repo, timeout),
	}

	if err := cli.Run(ctx, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		repo.Close()
		os.Exit(1)
	}
}
