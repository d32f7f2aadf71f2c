package main

import (
	"context"
	"encoding/json"
	"errors"
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

	"github.com/sells-group/siting-cli/internal/model"
	"github.com/sells-group/siting-cli/internal/store"
	"github.com/sells-group/siting-cli/internal/suitability"
	"github.com/sells-group/siting-cli/internal/vector"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve run history over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
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

// newRouter builds the read-only run history API.
func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			filter := store.RunFilter{Status: model.RunStatus(req.URL.Query().Get("status"))}
			if v := req.URL.Query().Get("limit"); v != "" {
				limit, err := strconv.Atoi(v)
				if err != nil || limit < 0 {
					writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
					return
				}
				filter.Limit = limit
			}
			runs, err := st.ListRuns(req.Context(), filter)
			if err != nil {
				storeError(w, err)
				return
			}
			if runs == nil {
				runs = []model.Run{}
			}
			writeJSON(w, http.StatusOK, runs)
		})

		r.Get("/{runID}", func(w http.ResponseWriter, req *http.Request) {
			run, err := st.GetRun(req.Context(), chi.URLParam(req, "runID"))
			if err != nil {
				storeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, run)
		})

		r.Get("/{runID}/stages", func(w http.ResponseWriter, req *http.Request) {
			runID := chi.URLParam(req, "runID")
			if _, err := st.GetRun(req.Context(), runID); err != nil {
				storeError(w, err)
				return
			}
			stages, err := st.ListStages(req.Context(), runID)
			if err != nil {
				storeError(w, err)
				return
			}
			if stages == nil {
				stages = []model.RunStage{}
			}
			writeJSON(w, http.StatusOK, stages)
		})

		r.Get("/{runID}/zones", func(w http.ResponseWriter, req *http.Request) {
			runID := chi.URLParam(req, "runID")
			if _, err := st.GetRun(req.Context(), runID); err != nil {
				storeError(w, err)
				return
			}
			zones, err := st.ListZones(req.Context(), runID)
			if err != nil {
				storeError(w, err)
				return
			}
			features, err := zoneFeatures(zones)
			if err != nil {
				zap.L().Error("serve: decode zone geometry", zap.String("run_id", runID), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "invalid zone geometry")
				return
			}
			w.Header().Set("Content-Type", "application/geo+json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(vector.FeatureCollection(features))
		})
	})

	return r
}

// zoneFeatures rebuilds vector features from persisted zones.
func zoneFeatures(zones []model.Zone) ([]vector.Feature, error) {
	features := make([]vector.Feature, 0, len(zones))
	for _, z := range zones {
		poly, err := vector.DecodeEWKB(z.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "zone %d", z.RegionID)
		}
		features = append(features, vector.Feature{
			Region: suitability.Region{
				ID:           z.RegionID,
				FirstCell:    z.FirstCell,
				CellCount:    z.CellCount,
				AreaHectares: z.AreaHa,
				MinValue:     z.MinValue,
				MaxValue:     z.MaxValue,
				MeanValue:    z.MeanValue,
				Bounds:       z.Bounds,
			},
			Polygon: poly,
			AreaHa:  z.AreaHa,
		})
	}
	return features, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	zap.L().Error("serve: store query failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
