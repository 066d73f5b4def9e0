package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/openleague/openleague/internal/auth"
	"github.com/openleague/openleague/internal/authz"
	"github.com/openleague/openleague/internal/brackets"
	"github.com/openleague/openleague/internal/divisions"
	"github.com/openleague/openleague/internal/games"
	"github.com/openleague/openleague/internal/leagues"
	"github.com/openleague/openleague/internal/observability"
	"github.com/openleague/openleague/internal/seasons"
	"github.com/openleague/openleague/internal/shared"
	"github.com/openleague/openleague/internal/standings"
	"github.com/openleague/openleague/internal/teams"
	"github.com/openleague/openleague/internal/users"
	"github.com/openleague/openleague/jobs"
	"github.com/openleague/openleague/report"
	"github.com/openleague/openleague/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler      *auth.Handler
	AuthzHandler     *authz.Handler
	UsersHandler     *users.Handler
	LeaguesHandler   *leagues.Handler
	SeasonsHandler   *seasons.Handler
	DivisionsHandler *divisions.Handler
	TeamsHandler     *teams.Handler
	GamesHandler     *games.Handler
	StandingsHandler *standings.Handler
	BracketsHandler  *brackets.Handler
	ReportHandler    *report.Handler
	JobHandler       *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with OpenLeague defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.AuthzHandler != nil {
		r.Route("/authz", params.AuthzHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.LeaguesHandler != nil {
		r.Route("/leagues", params.LeaguesHandler.MountRoutes)
	}
	if params.SeasonsHandler != nil {
		r.Route("/seasons", params.SeasonsHandler.MountRoutes)
	}
	if params.DivisionsHandler != nil {
		r.Route("/divisions", params.DivisionsHandler.MountRoutes)
	}
	if params.TeamsHandler != nil {
		params.TeamsHandler.MountRoutes(r)
	}
	if params.GamesHandler != nil {
		r.Route("/games", params.GamesHandler.MountRoutes)
	}
	if params.StandingsHandler != nil {
		r.Route("/standings", params.StandingsHandler.MountRoutes)
	}
	if params.BracketsHandler != nil {
		r.Route("/brackets", params.BracketsHandler.MountRoutes)
	}
	if params.ReportHandler != nil {
		r.Route("/report", params.ReportHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		// The status page and its assets are public; no session or CSRF
		// state is needed to serve them.
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFileFS(w, r, staticFS, "index.html")
		})
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
// Static assets are cached for 1 hour in browser.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
