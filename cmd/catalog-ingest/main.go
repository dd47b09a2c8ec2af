// Command catalog-ingest bulk-imports service catalog records from gzipped
// JSONL export files produced by the legacy storefront. Exports overlap
// between snapshots, so a shared bloom filter drops ids already ingested in
// this run before they reach the database.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/glowspa/glowspa-backend/internal/domain/catalog"
	"github.com/glowspa/glowspa-backend/internal/repository"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	maxWorkers    = 4
)

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog-export-*.jsonl.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "catalog-export-*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob export files")
	}
	if len(files) == 0 {
		return errors.Errorf("no catalog export files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	ing := &ingester{
		repo: repository.NewCatalogRepository(pool),
		seen: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for _, f := range files {
		g.Go(ing.ingestFile(ctx, f))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Int("files", len(files)),
		slog.Int64("upserted", ing.upserted.Load()),
		slog.Int64("duplicates", ing.duplicates.Load()),
		slog.Int64("malformed", ing.malformed.Load()),
	)
	return nil
}

type ingester struct {
	repo *repository.CatalogRepository

	// seen guards against re-upserting ids that appear in multiple export
	// snapshots. Bloom false positives skip a record that was never
	// ingested; at the configured FPR that is acceptable for catalog
	// snapshots, which repeat almost entirely between exports.
	mu   sync.Mutex
	seen *bloom.BloomFilter

	upserted   atomic.Int64
	duplicates atomic.Int64
	malformed  atomic.Int64
}

func (ing *ingester) ingestFile(ctx context.Context, path string) func() error {
	return func() error {
		slog.Info("ingesting export", slog.String("file", path))

		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer f.Close()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "gzip reader %s", path)
		}
		defer gz.Close()

		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				return err
			}

			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			svc, err := parseService(line)
			if err != nil {
				ing.malformed.Add(1)
				slog.Warn("skipping malformed record",
					slog.String("file", path),
					slog.String("error", err.Error()),
				)
				continue
			}

			if ing.alreadySeen(svc.ID) {
				ing.duplicates.Add(1)
				continue
			}

			if err := ing.repo.Upsert(ctx, svc); err != nil {
				return errors.Wrapf(err, "upsert service %s", svc.ID)
			}
			ing.upserted.Add(1)
		}
		return errors.Wrapf(scanner.Err(), "scan %s", path)
	}
}

func (ing *ingester) alreadySeen(id string) bool {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	return ing.seen.TestOrAddString(id)
}

// parseService decodes one export line. Expected shape:
//
//	{"id":"...","name":"...","category":"...","price":"1200","durationMinutes":60,"active":true}
func parseService(line []byte) (*catalog.Service, error) {
	svc := &catalog.Service{Active: true}
	d := jx.DecodeBytes(line)

	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			if err != nil {
				return err
			}
			svc.ID = v
		case "name":
			v, err := d.Str()
			if err != nil {
				return err
			}
			svc.Name = v
		case "category":
			v, err := d.Str()
			if err != nil {
				return err
			}
			svc.Category = v
		case "price":
			v, err := d.Str()
			if err != nil {
				return err
			}
			price, err := decimal.NewFromString(v)
			if err != nil {
				return errors.Wrap(err, "parse price")
			}
			svc.Price = price
		case "durationMinutes":
			v, err := d.Int()
			if err != nil {
				return err
			}
			svc.Duration = time.Duration(v) * time.Minute
		case "active":
			v, err := d.Bool()
			if err != nil {
				return err
			}
			svc.Active = v
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if svc.ID == "" || svc.Name == "" || svc.Category == "" {
		return nil, errors.New("missing required fields")
	}
	return svc, nil
}
