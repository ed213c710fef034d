// migrate copies every page history from one storage backend to another,
// e.g. from the local SQLite file to Postgres or S3.
//
// Versions are imported in order as they are, so numbering, ids, creation
// times, authors, notes and published flags all carry over. The destination
// backend must support imports.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/redux-content/internal/config"
	"github.com/debemdeboas/redux-content/internal/db"
	"github.com/debemdeboas/redux-content/internal/logger"
	"github.com/debemdeboas/redux-content/internal/model"
	"github.com/debemdeboas/redux-content/internal/repository"
)

func main() {
	from := flag.String("from", "", "config file for the source store")
	to := flag.String("to", "", "config file for the destination store")
	flag.Parse()

	l := logger.New("info")
	config.SetLogger(l)
	db.SetLogger(l)
	repository.SetLogger(l)

	if *from == "" || *to == "" {
		l.Fatal().Msg("Both --from and --to flags are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, err := openStore(ctx, *from)
	if err != nil {
		l.Fatal().Err(err).Str("config", *from).Msg("Error opening source store")
	}
	defer src.Close()

	dst, err := openStore(ctx, *to)
	if err != nil {
		l.Fatal().Err(err).Str("config", *to).Msg("Error opening destination store")
	}
	defer dst.Close()

	target, ok := dst.(destination)
	if !ok {
		l.Fatal().Str("config", *to).Msg("Destination store does not support imports")
	}

	stats, err := migrate(ctx, l, src, target)
	if err != nil {
		src.Close()
		dst.Close()
		l.Fatal().Err(err).Msg("Migration failed")
	}

	l.Info().
		Int("pages", stats.Pages).
		Int("skipped", stats.Skipped).
		Int("versions", stats.Versions).
		Msg("Migration finished")
}

func openStore(ctx context.Context, path string) (repository.Repository, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return repository.Open(ctx, cfg.Storage)
}

type stats struct {
	Pages    int
	Skipped  int
	Versions int
}

type destination interface {
	repository.Repository
	repository.Importer
}

// migrate copies each source page whose destination history is empty.
// Pages that already have versions at the destination are skipped.
func migrate(ctx context.Context, l zerolog.Logger, src repository.Repository, dst destination) (stats, error) {
	var s stats

	ids, err := src.PageIDs(ctx)
	if err != nil {
		return s, fmt.Errorf("error listing source pages: %w", err)
	}

	for _, id := range ids {
		pageID := model.PageID(id)

		existing, err := dst.Latest(ctx, pageID, repository.LatestOptions{})
		if err != nil {
			return s, fmt.Errorf("error reading destination page %s: %w", id, err)
		}
		if existing != nil {
			l.Warn().Str("page_id", id).Int("version", existing.Version).Msg("Destination already has history, skipping")
			s.Skipped++
			continue
		}

		history, err := src.History(ctx, pageID)
		if err != nil {
			return s, fmt.Errorf("error reading source page %s: %w", id, err)
		}

		for _, v := range history {
			if _, err := dst.Import(ctx, v); err != nil {
				return s, fmt.Errorf("error copying %s v%d: %w", id, v.Version, err)
			}
			s.Versions++
		}

		l.Info().Str("page_id", id).Int("versions", len(history)).Msg("Copied page")
		s.Pages++
	}

	return s, nil
}
