package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rapidreach/lead-finder/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lead discovery HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
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

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", handleHealth)
	r.Post("/find_leads", handleFindLeads(env))
	r.Get("/api/leads", handleListLeads(env))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "lead_finder",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleFindLeads runs a discovery request synchronously. Domain failures
// come back as an error envelope with a 200 status; only a malformed body
// earns a 400.
func handleFindLeads(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.FindLeadsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
				Status:  "error",
				Message: "invalid request body",
			})
			return
		}
		if req.City == "" {
			writeJSON(w, http.StatusOK, model.ErrorResponse{
				Status:  "error",
				Message: "city is required",
			})
			return
		}

		resp, err := env.Agent.Run(r.Context(), req)
		if err != nil {
			writeJSON(w, http.StatusOK, model.ErrorResponse{
				Status:  "error",
				Message: err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleListLeads reads leads back, preferring the durable store and
// falling back to the discovery run cache when the store read fails.
func handleListLeads(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		city := r.URL.Query().Get("city")
		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		// A city filter targets the priority no-website table, with the
		// run cache answering when the store has nothing for the filter.
		// Without a filter the latest run's cache is the source of truth;
		// the store answers only when no run has happened yet.
		var leads []model.RawLead
		if city != "" {
			var err error
			leads, err = env.Store.QueryNoWebsiteLeads(r.Context(), city, limit)
			if err != nil {
				zap.L().Warn("store query failed, serving memory leads", zap.Error(err))
			}
			if len(leads) == 0 {
				leads = memoryLeads(env, city, limit)
			}
		} else {
			leads = memoryLeads(env, city, limit)
			if len(leads) == 0 {
				var err error
				leads, err = env.Store.QueryLeads(r.Context(), city, limit)
				if err != nil {
					zap.L().Warn("store query failed", zap.Error(err))
				}
			}
		}
		if leads == nil {
			leads = []model.RawLead{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"total": len(leads),
			"leads": leads,
		})
	}
}

func memoryLeads(env *appEnv, city string, limit int) []model.RawLead {
	var out []model.RawLead
	for _, lead := range env.Memory.List() {
		if city != "" && lead.City != city {
			continue
		}
		out = append(out, lead.ToRaw())
		if len(out) >= limit {
			break
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}
