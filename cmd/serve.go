package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kyiv-estate/rentscout/internal/filter"
	"github.com/kyiv-estate/rentscout/internal/model"
	"github.com/kyiv-estate/rentscout/internal/pipeline"
)

var servePort int

// searchAPI is what the router needs from the orchestrator.
type searchAPI interface {
	Search(ctx context.Context, params filter.Params) (string, int, error)
	Page(ctx context.Context, token string, n int) (pipeline.PageView, error)
	Calculator(ctx context.Context, token, cardID string, postingID int, now time.Time) (string, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP search API",
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
			Handler: newRouter(env.Service, cfg.Collage.Dir),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background())
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

// searchRequest is the JSON body of POST /api/search.
type searchRequest struct {
	Kind       string   `json:"kind"`
	MinSize    float64  `json:"min_size"`
	MaxSize    *float64 `json:"max_size"`
	MinPPM2    *float64 `json:"min_ppm2"`
	MaxPPM2    *float64 `json:"max_ppm2"`
	Shore      string   `json:"shore"`
	SizeBucket string   `json:"size_bucket"`
}

func (r searchRequest) params() (filter.Params, error) {
	kind := model.Kind(r.Kind)
	if kind != model.KindOffice && kind != model.KindWarehouse {
		return filter.Params{}, eris.Errorf("unknown kind %q", r.Kind)
	}
	return filter.Params{
		Kind:       kind,
		MinSize:    r.MinSize,
		MaxSize:    r.MaxSize,
		MinPPM2:    r.MinPPM2,
		MaxPPM2:    r.MaxPPM2,
		Shore:      model.Shore(r.Shore),
		SizeBucket: filter.Bucket(r.SizeBucket),
	}, nil
}

func newRouter(api searchAPI, collageDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/search", func(w http.ResponseWriter, req *http.Request) {
		var body searchRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		params, err := body.params()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		token, total, err := api.Search(req.Context(), params)
		if err != nil {
			zap.L().Error("search failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}

		first, err := api.Page(req.Context(), token, 0)
		if err != nil {
			zap.L().Error("first page failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token": token,
			"total": total,
			"page":  first,
		})
	})

	r.Get("/api/sessions/{token}/pages/{page}", func(w http.ResponseWriter, req *http.Request) {
		page, err := strconv.Atoi(chi.URLParam(req, "page"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "page must be a number")
			return
		}

		view, err := api.Page(req.Context(), chi.URLParam(req, "token"), page)
		switch {
		case eris.Is(err, pipeline.ErrNoSession):
			writeError(w, http.StatusNotFound, "session not found")
		case eris.Is(err, pipeline.ErrPageOutOfRange):
			writeError(w, http.StatusBadRequest, "page out of range")
		case err != nil:
			zap.L().Error("page failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "page failed")
		default:
			writeJSON(w, http.StatusOK, view)
		}
	})

	r.Post("/api/cards/{token}/{card}/calculator", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			PostingID int `json:"posting_id"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		caption, err := api.Calculator(req.Context(),
			chi.URLParam(req, "token"), chi.URLParam(req, "card"), body.PostingID, time.Now())
		switch {
		case eris.Is(err, pipeline.ErrNoCard):
			writeError(w, http.StatusNotFound, "card not found")
		case err != nil:
			zap.L().Error("calculator failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "calculator failed")
		default:
			writeJSON(w, http.StatusOK, map[string]string{"caption": caption})
		}
	})

	r.Get("/api/collages/{slug}.jpg", func(w http.ResponseWriter, req *http.Request) {
		slug := chi.URLParam(req, "slug")
		data, err := os.ReadFile(filepath.Join(collageDir, slug+".jpg"))
		if err != nil {
			writeError(w, http.StatusNotFound, "collage not found")
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			zap.L().Debug("collage response write failed", zap.String("slug", slug), zap.Error(err))
		}
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
