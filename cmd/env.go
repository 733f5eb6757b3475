package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/asimorth/competitor-lens/internal/assign"
	"github.com/asimorth/competitor-lens/internal/extract"
	"github.com/asimorth/competitor-lens/internal/jobs"
	"github.com/asimorth/competitor-lens/internal/quality"
	"github.com/asimorth/competitor-lens/internal/scan"
	"github.com/asimorth/competitor-lens/internal/store"
	"github.com/asimorth/competitor-lens/internal/syncer"
	"github.com/asimorth/competitor-lens/pkg/objstore"
)

// appEnv holds the initialized store, engines and job runner shared by
// the commands.
type appEnv struct {
	Store     store.Store
	Assigner  *assign.Assigner
	Syncer    *syncer.Engine
	Scanner   *scan.Scanner
	Validator *quality.Validator
	Runner    jobs.Runner
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Runner != nil {
		_ = e.Runner.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv sets up the store, object storage, extractors and engines.
// Callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	objects, err := initObjstore()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	text, err := extract.NewTextExtractor(cfg.OCR)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	classifier := extract.NewClassifier(cfg.Vision.Key, cfg.Vision.Model, cfg.Vision.MaxTokens)
	if classifier == nil {
		zap.L().Info("vision classifier disabled, no API key configured")
	}

	runner, err := jobs.New(cfg.Jobs)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	env := &appEnv{
		Store:     st,
		Assigner:  assign.NewAssigner(st, text, classifier),
		Syncer:    syncer.New(st, objects, cfg.Sync.UploadConcurrency),
		Validator: quality.NewValidator(st),
		Runner:    runner,
	}
	env.Scanner = scan.New(st, runner)

	if err := runner.Start(ctx, env.handleJob); err != nil {
		env.Close()
		return nil, err
	}

	zap.L().Info("environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("objstore", cfg.Objstore.Provider),
		zap.String("jobs", runner.Mode()))
	return env, nil
}

// handleJob dispatches dequeued background jobs to the engines.
func (e *appEnv) handleJob(ctx context.Context, job jobs.Job) error {
	switch job.Kind {
	case jobs.KindAnalysis:
		if job.ScreenshotID != "" {
			_, err := e.Assigner.AssignOne(ctx, job.ScreenshotID, assign.Options{Reanalyze: job.Reanalyze})
			return err
		}
		_, err := e.Assigner.AssignBatch(ctx, assign.BatchOptions{
			CompetitorID: job.CompetitorID,
			Concurrency:  cfg.Jobs.AnalysisConcurrency,
			PaceEvery:    cfg.Batch.PaceEvery,
			PaceDelay:    time.Duration(cfg.Batch.PaceDelayMs) * time.Millisecond,
		})
		return err
	case jobs.KindSync:
		if _, err := e.Syncer.DetectChanges(ctx); err != nil {
			return err
		}
		_, err := e.Syncer.SyncPending(ctx)
		return err
	case jobs.KindScan:
		_, err := e.Scanner.ScanDirectory(ctx, job.Root)
		return err
	default:
		return eris.Errorf("unknown job kind %q", job.Kind)
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func initObjstore() (objstore.Store, error) {
	switch cfg.Objstore.Provider {
	case "s3", "":
		return objstore.NewS3(objstore.S3Options{
			Endpoint:  cfg.Objstore.Endpoint,
			Region:    cfg.Objstore.Region,
			Bucket:    cfg.Objstore.Bucket,
			AccessKey: cfg.Objstore.AccessKey,
			SecretKey: cfg.Objstore.SecretKey,
			CDNURL:    cfg.Objstore.CDNURL,
		}), nil
	case "fs":
		return objstore.NewFS(cfg.Objstore.LocalDir, cfg.Objstore.CDNURL), nil
	default:
		return nil, eris.Errorf("unknown objstore provider %q", cfg.Objstore.Provider)
	}
}
