package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/monitoring"
	"github.com/sells-group/lead-cli/internal/store"
)

var servePort int

// operator is the part of the Workflow the webhook server drives.
type operator interface {
	TryAcquire() (release func(), ok bool)
	RunFullWorkflow(ctx context.Context) (*model.RunResult, error)
	Deduplicate(ctx context.Context) error
	VerifyLinks(ctx context.Context) error
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server that triggers runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initWorkflow(ctx, config.ModeServe)
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Monitoring.WebhookURL != "" {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(env.Store),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		handler := buildMux(ctx, workflowOperator{env.Workflow}, env.Store)
		return startServer(ctx, handler, resolvePort(servePort, cfg.Server.Port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func resolvePort(flag, fromConfig int) int {
	if flag != 0 {
		return flag
	}
	return fromConfig
}

// buildMux wires the HTTP routes. Operations run in the background under
// ctx; a second trigger while one is running gets 409.
func buildMux(ctx context.Context, op operator, st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	trigger := func(kind model.RunKind, fn func(context.Context) error) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			if op == nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "workflow not configured"})
				return
			}
			release, ok := op.TryAcquire()
			if !ok {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "another run is in progress"})
				return
			}

			go func() {
				defer release()
				if err := fn(ctx); err != nil {
					zap.L().Error("webhook run failed", zap.String("kind", string(kind)), zap.Error(err))
					return
				}
				zap.L().Info("webhook run complete", zap.String("kind", string(kind)))
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{
				"status": "accepted",
				"kind":   string(kind),
			})
		}
	}

	r.Post("/webhook/run", trigger(model.RunKindWorkflow, func(ctx context.Context) error {
		_, err := op.RunFullWorkflow(ctx)
		return err
	}))
	r.Post("/webhook/dedupe", trigger(model.RunKindDedupe, func(ctx context.Context) error {
		return op.Deduplicate(ctx)
	}))
	r.Post("/webhook/verify", trigger(model.RunKindVerify, func(ctx context.Context) error {
		return op.VerifyLinks(ctx)
	}))

	r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
		if st == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "run store not configured"})
			return
		}
		q := req.URL.Query()
		filter := store.RunFilter{
			Kind:   model.RunKind(q.Get("kind")),
			Status: model.RunStatus(q.Get("status")),
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
				return
			}
			filter.Limit = n
		}

		runs, err := st.ListRuns(req.Context(), filter)
		if err != nil {
			zap.L().Error("list runs failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list runs failed"})
			return
		}
		if runs == nil {
			runs = []model.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		if st == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "run store not configured"})
			return
		}
		run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		if err != nil {
			zap.L().Error("get run failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "get run failed"})
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// startServer serves handler on port until ctx is cancelled, then shuts
// down gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return nil
}
