package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/asimorth/competitor-lens/internal/jobs"
	"github.com/asimorth/competitor-lens/internal/syncer"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for review, quality and sync operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{
				"status": "ok",
				"jobs":   env.Runner.Mode(),
			})
		})

		mux.HandleFunc("GET /review/queue", func(w http.ResponseWriter, r *http.Request) {
			limit := queryInt(r, "limit", 50)
			offset := queryInt(r, "offset", 0)
			items, err := env.Store.ListReviewQueue(r.Context(), limit, offset)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
		})

		mux.HandleFunc("POST /review/confirm", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				ScreenshotID string `json:"screenshot_id"`
				FeatureID    string `json:"feature_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}
			if req.ScreenshotID == "" || req.FeatureID == "" {
				http.Error(w, `{"error":"screenshot_id and feature_id are required"}`, http.StatusBadRequest)
				return
			}
			if err := env.Assigner.Committer().Confirm(r.Context(), req.ScreenshotID, req.FeatureID); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{
				"status":     "confirmed",
				"screenshot": req.ScreenshotID,
				"feature":    req.FeatureID,
			})
		})

		mux.HandleFunc("GET /review/stats", func(w http.ResponseWriter, r *http.Request) {
			stats, err := env.Store.AssignmentStats(r.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, stats)
		})

		mux.HandleFunc("POST /analyze", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				ScreenshotID string `json:"screenshot_id"`
				CompetitorID string `json:"competitor_id"`
				Reanalyze    bool   `json:"reanalyze"`
			}
			if r.Body != nil && r.ContentLength != 0 {
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
					return
				}
			}
			job := jobs.Job{
				Kind:         jobs.KindAnalysis,
				ScreenshotID: req.ScreenshotID,
				CompetitorID: req.CompetitorID,
				Reanalyze:    req.Reanalyze,
			}
			if err := env.Runner.Enqueue(r.Context(), job); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		})

		mux.HandleFunc("GET /quality", func(w http.ResponseWriter, r *http.Request) {
			summary, err := env.Validator.Summary(r.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, summary)
		})

		mux.HandleFunc("POST /sync/run", func(w http.ResponseWriter, r *http.Request) {
			if err := env.Runner.Enqueue(r.Context(), jobs.Job{Kind: jobs.KindSync}); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		})

		mux.HandleFunc("GET /sync/status", func(w http.ResponseWriter, r *http.Request) {
			stats, err := env.Syncer.Stats(r.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"stats":   stats,
				"healthy": stats.Healthy(),
			})
		})

		mux.HandleFunc("GET /sync/pending", func(w http.ResponseWriter, r *http.Request) {
			rows, err := env.Syncer.Pending(r.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": rows, "count": len(rows)})
		})

		mux.HandleFunc("GET /sync/history", func(w http.ResponseWriter, r *http.Request) {
			items, err := env.Syncer.History(r.Context(), queryInt(r, "limit", 50))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
		})

		mux.HandleFunc("POST /sync/resolve", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				ScreenshotID string `json:"screenshot_id"`
				Resolution   string `json:"resolution"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}
			if req.ScreenshotID == "" || req.Resolution == "" {
				http.Error(w, `{"error":"screenshot_id and resolution are required"}`, http.StatusBadRequest)
				return
			}
			if err := env.Syncer.ResolveConflict(r.Context(), req.ScreenshotID, syncer.Resolution(req.Resolution)); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{
				"status":     "resolved",
				"screenshot": req.ScreenshotID,
				"resolution": req.Resolution,
			})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
