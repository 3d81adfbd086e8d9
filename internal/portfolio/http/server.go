package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"strconv"
	"sync"
	"time"

	"connectrpc.com/connect"
	grpchealth "connectrpc.com/grpchealth"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"portfolio.siakou.dev/internal/config"
	"portfolio.siakou.dev/internal/encoding"
	"portfolio.siakou.dev/internal/portfolio"
	"portfolio.siakou.dev/internal/portfolio/contact"
	"portfolio.siakou.dev/internal/portfolio/sitemap"
	"portfolio.siakou.dev/internal/project"
)

// HealthServiceName is the service reported through the gRPC health protocol.
const HealthServiceName = "portfolio.v1.PortfolioService"

const shutdownTimeout = 10 * time.Second

// maxContactBody bounds the size of contact form submissions.
const maxContactBody = 64 << 10

// readmeTimeout bounds a README fetch, including the wait on the GitHub rate limiter.
const readmeTimeout = 5 * time.Second

// Server holds handlers and dependencies for the portfolio HTTP server.
type Server struct {
	clients *portfolio.Portfolio
	mux     *stdhttp.ServeMux

	readmeFlight singleflight.Group
	readmeMu     sync.RWMutex
	readmes      map[string]*encoding.Readme
}

// NewServer initializes a Server and mounts the JSON API, sitemap and health handlers.
func NewServer(clients *portfolio.Portfolio) *Server {
	s := &Server{
		clients: clients,
		mux:     stdhttp.NewServeMux(),
		readmes: make(map[string]*encoding.Readme),
	}
	s.mux.HandleFunc("GET /api/projects", s.listProjects)
	s.mux.HandleFunc("GET /api/projects/{title}", s.getProject)
	s.mux.HandleFunc("GET /api/projects/{title}/readme", s.getReadme)
	s.mux.HandleFunc("GET /api/stats", s.getStats)
	s.mux.HandleFunc("POST /api/refresh", s.refresh)
	s.mux.HandleFunc("POST /api/contact", s.sendContact)
	s.mux.HandleFunc("GET /sitemap.xml", s.getSitemap)
	s.mux.HandleFunc("GET /healthz", s.healthz)
	hpath, hhandler := grpchealth.NewHandler(HealthChecker{clients: clients})
	s.mux.Handle(hpath, hhandler)
	return s
}

// NewServerForConfig builds Portfolio clients from cfg and returns a configured Server.
func NewServerForConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	clients, err := portfolio.NewForConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewServer(clients), nil
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() stdhttp.Handler {
	return otelhttp.NewHandler(s.mux, "http.server")
}

// Portfolio returns the clients backing the server.
func (s *Server) Portfolio() *portfolio.Portfolio { return s.clients }

// Close closes database connections.
func (s *Server) Close() error {
	if s.clients != nil {
		return s.clients.Close()
	}
	return nil
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	slog.Info("server starting", "addr", addr)
	srv := &stdhttp.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("server shutting down", "addr", addr)
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

type listResponse struct {
	project.Result
	Error string `json:"error,omitempty"`
}

func (s *Server) listProjects(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, stdhttp.StatusBadRequest, err.Error())
		return
	}
	catalog := s.clients.Catalog()
	resp := listResponse{Result: catalog.Query(q)}
	if catalog.Err() != nil {
		resp.Error = project.FetchErrorMessage
	}
	writeJSON(w, stdhttp.StatusOK, resp)
}

func parseQuery(r *stdhttp.Request) (project.Query, error) {
	v := r.URL.Query()
	sortKey, err := project.ParseSortKey(v.Get("sort"))
	if err != nil {
		return project.Query{}, err
	}
	q := project.Query{
		Search:   v.Get("search"),
		Category: project.Category(v.Get("category")),
		Sort:     sortKey,
		Limit:    project.PageSize,
	}
	if a := v.Get("archived"); a != "" {
		if q.ShowArchived, err = strconv.ParseBool(a); err != nil {
			return project.Query{}, fmt.Errorf("invalid archived flag %q", a)
		}
	}
	if l := v.Get("limit"); l != "" {
		if q.Limit, err = strconv.Atoi(l); err != nil || q.Limit < 0 {
			return project.Query{}, fmt.Errorf("invalid limit %q", l)
		}
	}
	return q, nil
}

func (s *Server) getProject(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	p, ok := s.clients.Catalog().Get(r.PathValue("title"))
	if !ok {
		writeError(w, stdhttp.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, stdhttp.StatusOK, p)
}

func (s *Server) getReadme(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()
	title := r.PathValue("title")
	if _, ok := s.clients.Catalog().Get(title); !ok {
		writeError(w, stdhttp.StatusNotFound, "project not found")
		return
	}
	readme, err := s.readme(ctx, title)
	if err != nil {
		slog.WarnContext(ctx, "Failed to fetch readme", "title", title, "error", err)
		writeError(w, stdhttp.StatusBadGateway, "unable to load README from GitHub")
		return
	}
	writeJSON(w, stdhttp.StatusOK, readme)
}

// readme returns the rendered README for title, fetching it from GitHub at most once
// until the next refresh. Failures are not cached.
func (s *Server) readme(ctx context.Context, title string) (*encoding.Readme, error) {
	s.readmeMu.RLock()
	cached, ok := s.readmes[title]
	s.readmeMu.RUnlock()
	if ok {
		return cached, nil
	}
	v, err, _ := s.readmeFlight.Do(title, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), readmeTimeout)
		defer cancel()
		raw, err := s.clients.GitHub().GetReadme(ctx, s.clients.Username(), title)
		if err != nil {
			return nil, err
		}
		readme, err := encoding.UnmarshallReadme(raw, encoding.WithFallbackTitle(title))
		if err != nil {
			return nil, err
		}
		s.readmeMu.Lock()
		s.readmes[title] = readme
		s.readmeMu.Unlock()
		return readme, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*encoding.Readme), nil
}

func (s *Server) dropReadmes() {
	s.readmeMu.Lock()
	clear(s.readmes)
	s.readmeMu.Unlock()
}

func (s *Server) getStats(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	writeJSON(w, stdhttp.StatusOK, s.clients.Catalog().Stats())
}

func (s *Server) refresh(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	catalog := s.clients.Catalog()
	resp := listResponse{}
	if err := s.clients.Refresh(r.Context()); err != nil {
		resp.Error = project.FetchErrorMessage
	}
	s.dropReadmes()
	resp.Result = catalog.Query(project.Query{Sort: project.SortStars, Limit: project.PageSize})
	writeJSON(w, stdhttp.StatusOK, resp)
}

type contactResponse struct {
	Status string `json:"status"`
	Mailto string `json:"mailto,omitempty"`
	Email  string `json:"email,omitempty"`
}

func (s *Server) sendContact(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()
	relay := s.clients.Contact()
	var m contact.Message
	if err := json.NewDecoder(stdhttp.MaxBytesReader(w, r.Body, maxContactBody)).Decode(&m); err != nil {
		writeError(w, stdhttp.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := m.Validate(); err != nil {
		writeError(w, stdhttp.StatusBadRequest, err.Error())
		return
	}
	if !relay.HasEndpoint() {
		writeJSON(w, stdhttp.StatusOK, contactResponse{
			Status: "mailto",
			Mailto: relay.MailtoURI(m),
			Email:  relay.Email(),
		})
		return
	}
	if err := relay.Send(ctx, m); err != nil {
		slog.ErrorContext(ctx, "Failed to relay contact message", "error", err)
		writeError(w, stdhttp.StatusBadGateway, relay.ErrorMessage())
		return
	}
	writeJSON(w, stdhttp.StatusAccepted, contactResponse{Status: "sent"})
}

// getSitemap renders the sitemap from the loaded catalog. While the catalog holds the
// fallback samples only the static pages are listed.
func (s *Server) getSitemap(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	catalog := s.clients.Catalog()
	var projects []project.Project
	if catalog.Err() == nil {
		projects = catalog.Snapshot()
	}
	set := sitemap.FromProjects(s.clients.Config().GetSiteURL(), projects, time.Now())
	var buf bytes.Buffer
	if err := set.Encode(&buf); err != nil {
		writeError(w, stdhttp.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) healthz(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	resp := map[string]any{
		"status":  "ok",
		"loaded":  s.clients.Catalog().Loaded(),
		"samples": s.clients.Catalog().Err() != nil,
	}
	if err := s.clients.Ping(r.Context()); err != nil {
		resp["status"] = "degraded"
		resp["error"] = err.Error()
		writeJSON(w, stdhttp.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, stdhttp.StatusOK, resp)
}

func writeJSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w stdhttp.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// HealthChecker reports health based on datastore connectivity.
type HealthChecker struct{ clients *portfolio.Portfolio }

// Check implements grpchealth.Checker. It returns StatusServing when the datastore ping
// succeeds or no datastore is configured.
func (c HealthChecker) Check(
	ctx context.Context,
	req *grpchealth.CheckRequest,
) (*grpchealth.CheckResponse, error) {
	tracer := otel.Tracer("portfolio/http")
	ctx, span := tracer.Start(ctx, "HealthChecker.Check")
	defer span.End()
	switch req.Service {
	case "", HealthServiceName:
		if err := c.clients.Ping(ctx); err != nil {
			return &grpchealth.CheckResponse{Status: grpchealth.StatusNotServing}, nil
		}
		return &grpchealth.CheckResponse{Status: grpchealth.StatusServing}, nil
	default:
		return nil, connect.NewError(
			connect.CodeNotFound,
			fmt.Errorf("unknown service: %s", req.Service),
		)
	}
}
