package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hpungsan/santa/internal/board"
	"github.com/hpungsan/santa/internal/config"
	"github.com/hpungsan/santa/internal/geoip"
	"github.com/hpungsan/santa/internal/ops"
	"github.com/hpungsan/santa/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Server-side state limits.
const (
	sessionTTL  = 12 * time.Hour
	pendingTTL  = 30 * time.Minute
	dialogTTL   = 30 * time.Minute
	maxSessions = 1000
	maxPending  = 5000
	maxDialogs  = 20000
)

// Options configures the web handlers.
type Options struct {
	Store    store.Store
	Config   *config.Config
	Resolver geoip.CountryResolver
	Logger   zerolog.Logger
	Version  string
}

// Handlers contains HTTP route handlers for the web UI and the JSON API.
type Handlers struct {
	store    store.Store
	cfg      *config.Config
	local    *ops.Local
	renderer *Renderer
	log      zerolog.Logger
	feed     *board.FeedReader

	admins  *tokenStore[*adminSession]
	pending *tokenStore[*pendingWish]
	dialogs *tokenStore[*openDialog]
}

// NewHandlers wires the handlers over opts.Store.
func NewHandlers(opts Options) (*Handlers, error) {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to create template sub-FS: %w", err)
	}

	cfg := opts.Config
	local := ops.NewLocal(opts.Store, !cfg.OptionalCategory)
	local.Resolver = opts.Resolver
	local.Logger = opts.Logger

	popup := PopupSettings{PollMS: cfg.PopupPollMS, VisibleMS: cfg.PopupVisibleMS, FadeMS: cfg.PopupFadeMS}

	return &Handlers{
		store:    opts.Store,
		cfg:      cfg,
		local:    local,
		renderer: NewRenderer(templateSub, opts.Version, popup, opts.Logger),
		log:      opts.Logger,
		feed: board.NewFeedReader(local, board.FeedOptions{
			Limit:    cfg.FeedLimit,
			Interval: cfg.FeedPoll(),
			Logger:   opts.Logger,
		}),
		admins:  newTokenStore[*adminSession](sessionTTL, maxSessions),
		pending: newTokenStore[*pendingWish](pendingTTL, maxPending),
		dialogs: newTokenStore[*openDialog](dialogTTL, maxDialogs),
	}, nil
}

// NewRouter builds the chi router for pages, static assets and /api.
func NewRouter(h *Handlers) *chi.Mux {
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to create static sub-FS: %v", err))
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger(h.log),
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(apiCORS())
		r.Get("/wishes", h.APIListWishes)
		r.Post("/wishes", h.APICreateWish)
		r.Delete("/wishes", h.APIDeleteWish)
		r.Get("/events", h.APIListEvents)
		r.Post("/events", h.APIRecordEvent)
		r.Get("/activity", h.APIActivity)
		r.Get("/visitors", h.APIVisitorCount)
		r.Post("/visitors", h.APITrackVisitor)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			renderJSON(w, http.StatusNotFound, map[string]any{
				"error": map[string]any{"code": "NOT_FOUND", "message": "no such endpoint", "status": http.StatusNotFound},
			})
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(securityHeaders, h.trackVisits)
		r.Get("/", h.HandleHome)
		r.Get("/write-wish", h.HandleWriteForm)
		r.Post("/write-wish", h.HandleWriteSubmit)
		r.Post("/write-wish/confirm", h.HandleWriteConfirm)
		r.Post("/write-wish/cancel", h.HandleWriteCancel)
		r.Get("/wishes", h.HandleWishes)
		r.Get("/wishes/{id}", h.HandleDetail)
		r.Post("/wishes/{id}/reveal", h.HandleReveal)
		r.Post("/wishes/{id}/close", h.HandleClose)
		r.Get("/admin", h.HandleAdmin)
		r.Post("/admin/login", h.HandleAdminLogin)
		r.Post("/admin/logout", h.HandleAdminLogout)
		r.Post("/admin/toggle/{id}", h.HandleAdminToggle)
		r.Post("/admin/select-all", h.HandleAdminSelectAll)
		r.Post("/admin/deselect-all", h.HandleAdminDeselectAll)
		r.Post("/admin/delete/{id}", h.HandleAdminRequestDelete)
		r.Post("/admin/bulk-delete", h.HandleAdminRequestBulkDelete)
		r.Post("/admin/confirm", h.HandleAdminConfirm)
		r.Post("/admin/cancel", h.HandleAdminCancel)
	})

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(staticSub)))
	r.NotFound(securityHeaders(http.HandlerFunc(h.HandleNotFound)).ServeHTTP)

	return r
}

// NewServer creates the HTTP server for handler.
func NewServer(handler http.Handler, bind string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// RunFeed keeps the shared activity feed fresh until ctx is done.
func (h *Handlers) RunFeed(ctx context.Context) {
	h.feed.Run(ctx)
}

// Run starts the HTTP server and the feed poller, and shuts both down on
// SIGINT/SIGTERM.
func Run(srv *http.Server, h *Handlers, log zerolog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.RunFeed(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info().Str("addr", srv.Addr).Msgf("Santa board running at http://%s", srv.Addr)

	if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.HasPrefix(srv.Addr, "[::]") || strings.HasPrefix(srv.Addr, ":") {
		log.Warn().Msg("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info().Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	}
}
