package conn

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tobsdb/dynatable/internal/engine"
	"github.com/tobsdb/dynatable/pkg"
)

const APP_NAME = "DynaTable"

type ServerSettings struct {
	Addr           string
	Version        string
	RateLimit      RateLimitSettings
	AllowedOrigins []string
}

type Server struct {
	engine   *engine.Engine
	settings ServerSettings
}

func NewServer(e *engine.Engine, settings ServerSettings) *Server {
	return &Server{engine: e, settings: settings}
}

// Router builds the HTTP routes. The rate limiter's sweeper lives as long as ctx.
func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.settings.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// the websocket endpoint does its own pacing, one action per message
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		HandleWsConnection(s.engine, w, r)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimiter(ctx, s.settings.RateLimit))
		r.Get("/project-status", s.projectStatus)
		r.Get("/tables", s.listTables)
		r.Post("/table", s.createTable)
		r.Route("/table/{id}", func(r chi.Router) {
			r.Get("/", s.describeTable)
			r.Put("/", s.updateTable)
			r.Post("/row", s.addRow)
			r.Get("/rows", s.getRows)
		})
	})

	return r
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		NewErrorResponse(http.StatusBadRequest, err.Error()).WriteHTTP(w)
		return nil, false
	}
	return body, true
}

func (s *Server) createTable(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req CreateTableRequest
	if err := decodeJSON(body, &req); err != nil {
		NewErrorResponse(http.StatusBadRequest, err.Error()).WriteHTTP(w)
		return
	}
	CreateTableReqHandler(r.Context(), s.engine, req).WriteHTTP(w)
}

func (s *Server) updateTable(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req UpdateTableRequest
	if err := decodeJSON(body, &req); err != nil {
		NewErrorResponse(http.StatusBadRequest, err.Error()).WriteHTTP(w)
		return
	}
	req.TableID = chi.URLParam(r, "id")
	UpdateTableReqHandler(r.Context(), s.engine, req).WriteHTTP(w)
}

func (s *Server) addRow(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	req := AddRowRequest{TableID: chi.URLParam(r, "id")}
	if err := decodeJSON(body, &req.Row); err != nil {
		NewErrorResponse(http.StatusBadRequest, err.Error()).WriteHTTP(w)
		return
	}
	AddRowReqHandler(r.Context(), s.engine, req).WriteHTTP(w)
}

func (s *Server) getRows(w http.ResponseWriter, r *http.Request) {
	GetRowsReqHandler(r.Context(), s.engine, TableRequest{TableID: chi.URLParam(r, "id")}).WriteHTTP(w)
}

func (s *Server) describeTable(w http.ResponseWriter, r *http.Request) {
	DescribeTableReqHandler(s.engine, TableRequest{TableID: chi.URLParam(r, "id")}).WriteHTTP(w)
}

func (s *Server) listTables(w http.ResponseWriter, r *http.Request) {
	ListTablesReqHandler(s.engine).WriteHTTP(w)
}

func (s *Server) projectStatus(w http.ResponseWriter, r *http.Request) {
	pkg.DebugLog("Returning project status")
	NewResponse(http.StatusOK, "", map[string]any{
		"status":  "running",
		"app":     APP_NAME,
		"version": s.settings.Version,
		"tables":  len(s.engine.ListTables()),
	}).WriteHTTP(w)
}

// Listen serves until ctx is done, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Addr:              s.settings.Addr,
		Handler:           s.Router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serve_err := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			serve_err <- err
		}
		close(serve_err)
	}()

	pkg.InfoLog("DynaTable listening on", s.settings.Addr)
	select {
	case err := <-serve_err:
		return err
	case <-ctx.Done():
	}

	pkg.DebugLog("Shutting down...")
	shutdown_ctx, shutdown_cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdown_cancel()
	return srv.Shutdown(shutdown_ctx)
}
