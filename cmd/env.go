package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/internal/contact"
	"github.com/sells-group/lead-cli/internal/emailcheck"
	"github.com/sells-group/lead-cli/internal/fetcher"
	"github.com/sells-group/lead-cli/internal/linkcheck"
	"github.com/sells-group/lead-cli/internal/pipeline"
	"github.com/sells-group/lead-cli/internal/sheet"
	"github.com/sells-group/lead-cli/internal/store"
	"github.com/sells-group/lead-cli/pkg/apify"
)

// workflowEnv holds the initialized collaborators shared by the run,
// maintenance and serve commands.
type workflowEnv struct {
	Store    store.Store
	Workflow *pipeline.Workflow
}

// Close releases resources held by the environment.
func (e *workflowEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leads.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// initWorkflow validates the config for mode, opens the run store and the
// sheet, and builds the Workflow. Callers should defer env.Close().
func initWorkflow(ctx context.Context, mode string) (*workflowEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	sh, err := sheet.Open(ctx, cfg.Sheet)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	var apifyOpts []apify.Option
	if cfg.Apify.BaseURL != "" {
		apifyOpts = append(apifyOpts, apify.WithBaseURL(cfg.Apify.BaseURL))
	}
	if cfg.Apify.Actor != "" {
		apifyOpts = append(apifyOpts, apify.WithActor(cfg.Apify.Actor))
	}
	apifyClient := apify.NewClient(cfg.Apify.Token, apifyOpts...)

	pages := fetcher.NewPageFetcher(fetcher.PageOptions{
		Timeout:           secs(cfg.Enrich.TimeoutSecs),
		RequestsPerSecond: cfg.Enrich.RequestsPerSecond,
	})
	enricher := contact.NewEnricher(pages, cfg.Enrich.MaxConcurrent)

	verifier := linkcheck.NewVerifier(linkcheck.Options{
		Timeout:           secs(cfg.Verify.TimeoutSecs),
		RequestsPerSecond: cfg.Verify.RequestsPerSecond,
	})

	resolver := emailcheck.NewDNSResolver(cfg.Email.DNSServer, secs(cfg.Email.DNSTimeoutSecs))
	validator := emailcheck.NewValidator(resolver)

	wf := pipeline.New(cfg, apifyClient, sh, enricher, verifier, validator, st)
	return &workflowEnv{Store: st, Workflow: wf}, nil
}
