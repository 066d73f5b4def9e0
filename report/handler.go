package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/openleague/openleague/internal/authz"
	"github.com/openleague/openleague/internal/divisions"
	"github.com/openleague/openleague/internal/games"
	"github.com/openleague/openleague/internal/platform/httpx"
	"github.com/openleague/openleague/internal/seasons"
	"github.com/openleague/openleague/internal/standings"
	"github.com/openleague/openleague/internal/teams"
	"github.com/openleague/openleague/web"
)

// StandingsPort supplies the ranked table for a division.
type StandingsPort interface {
	Table(ctx context.Context, divisionID int64) (standings.Table, error)
}

// GamesPort lists games for the schedule report.
type GamesPort interface {
	List(ctx context.Context, filter games.Filter) ([]games.Game, error)
}

// TeamsPort resolves team names.
type TeamsPort interface {
	ListByDivision(ctx context.Context, divisionID int64, status teams.Status) ([]teams.Team, error)
}

// DivisionsPort looks up the division under report.
type DivisionsPort interface {
	Get(ctx context.Context, id int64) (divisions.Division, error)
}

// SeasonsPort looks up the season a division belongs to.
type SeasonsPort interface {
	Get(ctx context.Context, id int64) (seasons.Season, error)
}

// Handler manages report endpoints.
type Handler struct {
	logger    *slog.Logger
	client    *Client
	standings StandingsPort
	games     GamesPort
	teams     TeamsPort
	divisions DivisionsPort
	seasons   SeasonsPort
	authz     authz.Middleware
	templates *template.Template
	titler    cases.Caser
}

// NewHandler creates a report handler. It fails when the embedded report
// templates cannot be parsed.
func NewHandler(logger *slog.Logger, client *Client, standingsPort StandingsPort, gamesPort GamesPort, teamsPort TeamsPort, divisionsPort DivisionsPort, seasonsPort SeasonsPort, authzMW authz.Middleware) (*Handler, error) {
	tpl, err := template.ParseFS(web.Templates, "templates/reports/*.html")
	if err != nil {
		return nil, err
	}
	return &Handler{
		logger:    logger,
		client:    client,
		standings: standingsPort,
		games:     gamesPort,
		teams:     teamsPort,
		divisions: divisionsPort,
		seasons:   seasonsPort,
		authz:     authzMW,
		templates: tpl,
		titler:    cases.Title(language.English),
	}, nil
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAny(authz.PermViewReports))
		r.Get("/standings", h.standingsPDF)
		r.Get("/schedule", h.schedulePDF)
	})
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type standingsView struct {
	Division    string
	SkillLevel  string
	Season      string
	GeneratedAt string
	Rows        []standings.Standing
}

func (h *Handler) standingsPDF(w http.ResponseWriter, r *http.Request) {
	division, ok := h.divisionFromQuery(w, r)
	if !ok {
		return
	}

	var (
		table  standings.Table
		season seasons.Season
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		t, err := h.standings.Table(ctx, division.ID)
		if err != nil {
			return err
		}
		table = t
		return nil
	})
	g.Go(func() error {
		s, err := h.seasons.Get(ctx, division.SeasonID)
		if err != nil {
			return err
		}
		season = s
		return nil
	})
	if err := g.Wait(); err != nil {
		h.logger.Error("collect standings report", slog.Int64("division_id", division.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	view := standingsView{
		Division:    division.Name,
		SkillLevel:  h.titler.String(string(division.SkillLevel)),
		Season:      season.Name,
		GeneratedAt: time.Now().UTC().Format("Jan 2, 2006 15:04 MST"),
		Rows:        table.Standings,
	}
	h.renderPDF(w, r, "standings.html", view, "standings.pdf")
}

type scheduleView struct {
	Division    string
	Season      string
	GeneratedAt string
	Weeks       []scheduleWeek
}

type scheduleWeek struct {
	Number int
	Start  string
	Games  []scheduleGame
}

type scheduleGame struct {
	Date     string
	Home     string
	Away     string
	Location string
	Status   string
	Score    string
}

func (h *Handler) schedulePDF(w http.ResponseWriter, r *http.Request) {
	division, ok := h.divisionFromQuery(w, r)
	if !ok {
		return
	}

	var (
		season   seasons.Season
		schedule []games.Game
		teamList []teams.Team
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		s, err := h.seasons.Get(ctx, division.SeasonID)
		if err != nil {
			return err
		}
		season = s
		return nil
	})
	g.Go(func() error {
		list, err := h.games.List(ctx, games.Filter{DivisionID: division.ID})
		if err != nil {
			return err
		}
		schedule = list
		return nil
	})
	g.Go(func() error {
		// Every status, so dropped teams still resolve to a name.
		list, err := h.teams.ListByDivision(ctx, division.ID, "")
		if err != nil {
			return err
		}
		teamList = list
		return nil
	})
	if err := g.Wait(); err != nil {
		h.logger.Error("collect schedule report", slog.Int64("division_id", division.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	names := make(map[int64]string, len(teamList))
	for _, team := range teamList {
		names[team.ID] = team.Name
	}

	view := scheduleView{
		Division:    division.Name,
		Season:      season.Name,
		GeneratedAt: time.Now().UTC().Format("Jan 2, 2006 15:04 MST"),
		Weeks:       groupByWeek(season, schedule, names),
	}
	h.renderPDF(w, r, "schedule.html", view, "schedule.pdf")
}

func (h *Handler) divisionFromQuery(w http.ResponseWriter, r *http.Request) (divisions.Division, bool) {
	divisionID, err := strconv.ParseInt(r.URL.Query().Get("division_id"), 10, 64)
	if err != nil || divisionID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "division_id query parameter required")
		return divisions.Division{}, false
	}
	division, err := h.divisions.Get(r.Context(), divisionID)
	if err != nil {
		if errors.Is(err, divisions.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "division not found")
			return divisions.Division{}, false
		}
		h.logger.Error("report division lookup", slog.Int64("division_id", divisionID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return divisions.Division{}, false
	}
	return division, true
}

func (h *Handler) renderPDF(w http.ResponseWriter, r *http.Request, name string, view any, filename string) {
	buf := &bytes.Buffer{}
	if err := h.templates.ExecuteTemplate(buf, name, view); err != nil {
		h.logger.Error("render report template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	pdf, err := h.client.RenderHTML(r.Context(), buf.String())
	if err != nil {
		h.logger.Error("generate report pdf", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	_, _ = w.Write(pdf)
}

// groupByWeek buckets games into season weeks. Games rescheduled outside the
// season window are placed by the same seven-day arithmetic so nothing is
// dropped from the report.
func groupByWeek(season seasons.Season, schedule []games.Game, names map[int64]string) []scheduleWeek {
	byWeek := make(map[int]*scheduleWeek)
	for _, game := range schedule {
		n := season.WeekOf(game.ScheduledAt)
		if n == 0 {
			days := int(game.ScheduledAt.Sub(season.StartDate).Hours() / 24)
			n = days/7 + 1
			if n < 1 {
				n = 1
			}
		}
		week, ok := byWeek[n]
		if !ok {
			week = &scheduleWeek{
				Number: n,
				Start:  season.StartDate.AddDate(0, 0, (n-1)*7).Format("Jan 2"),
			}
			byWeek[n] = week
		}
		entry := scheduleGame{
			Date:     game.ScheduledAt.Format("Mon Jan 2, 15:04"),
			Home:     teamName(names, game.HomeTeamID),
			Away:     teamName(names, game.AwayTeamID),
			Location: game.Location,
			Status:   strings.ReplaceAll(string(game.Status), "_", " "),
		}
		if game.Status == games.StatusFinal {
			entry.Score = fmt.Sprintf("%d-%d", game.HomeScore, game.AwayScore)
		}
		week.Games = append(week.Games, entry)
	}

	weeks := make([]scheduleWeek, 0, len(byWeek))
	for _, week := range byWeek {
		weeks = append(weeks, *week)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Number < weeks[j].Number })
	return weeks
}

func teamName(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("Team %d", id)
}
