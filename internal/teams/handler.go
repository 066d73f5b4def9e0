package teams

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/openleague/openleague/internal/authz"
	"github.com/openleague/openleague/internal/platform/httpx"
	"github.com/openleague/openleague/internal/shared"
	"github.com/openleague/openleague/jobs"
)

// Handler wires HTTP endpoints for teams, rosters, and invitations.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	validator *validator.Validate
	jobs      *jobs.Client
}

// NewHandler constructs the handler. jobsClient may be nil in tests; invite
// emails are then skipped.
func NewHandler(logger *slog.Logger, service *Service, authz authz.Middleware, jobsClient *jobs.Client) *Handler {
	return &Handler{logger: logger, service: service, authz: authz, validator: validator.New(), jobs: jobsClient}
}

// MountRoutes registers the /teams and /invites route trees.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/teams", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.authz.RequireAny(authz.PermViewLeagues))
			r.Get("/", h.list)
			r.Get("/{teamID}", h.get)
			r.Get("/{teamID}/members", h.roster)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.authz.RequireAny(authz.PermRegisterTeam))
			r.Post("/register", h.register)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.authz.RequireAny(authz.PermApproveRegistrations))
			r.Get("/pending", h.pending)
			r.Post("/{teamID}/approve", h.approve)
			r.Post("/{teamID}/reject", h.reject)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.authz.RequireTeam("teamID", authz.PermManageOwnTeam, authz.PermManageTeams))
			r.Put("/{teamID}", h.update)
			r.Put("/{teamID}/members/{userID}/jersey", h.setJersey)
			r.Delete("/{teamID}/members/{userID}", h.removeMember)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.authz.RequireTeam("teamID", authz.PermInviteToTeam))
			r.Post("/{teamID}/invites", h.invite)
		})
	})
	r.Route("/invites", func(r chi.Router) {
		r.Get("/{token}", h.showInvite)
		r.Post("/{token}/accept", h.acceptInvite)
		r.Post("/{token}/decline", h.declineInvite)
	})
}

// teamView decorates a team with the text color the client should draw on
// top of the team color.
type teamView struct {
	Team
	TextColor string `json:"text_color"`
}

func viewOf(t Team) teamView {
	view := teamView{Team: t, TextColor: "#000000"}
	if c, err := ParseHex(t.Color); err == nil {
		view.TextColor = c.ContrastText()
	}
	return view
}

func viewsOf(ts []Team) []teamView {
	views := make([]teamView, 0, len(ts))
	for _, t := range ts {
		views = append(views, viewOf(t))
	}
	return views
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	divisionID, err := strconv.ParseInt(r.URL.Query().Get("division_id"), 10, 64)
	if err != nil || divisionID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "division_id query parameter required")
		return
	}
	status := Status(r.URL.Query().Get("status"))
	list, err := h.service.ListByDivision(r.Context(), divisionID, status)
	if err != nil {
		h.logger.Error("list teams", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string][]teamView{"teams": viewsOf(list)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "teamID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid team id")
		return
	}
	team, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]teamView{"team": viewOf(team)})
}

func (h *Handler) roster(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "teamID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid team id")
		return
	}
	members, err := h.service.Roster(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if members == nil {
		members = []Member{}
	}
	httpx.JSON(w, http.StatusOK, map[string][]Member{"members": members})
}

type registerRequest struct {
	DivisionID int64  `json:"division_id" validate:"required,min=1"`
	Name       string `json:"name" validate:"required,min=2,max=80"`
	Color      string `json:"color" validate:"required"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	team, err := h.service.Register(r.Context(), RegisterInput{
		DivisionID: req.DivisionID,
		Name:       req.Name,
		Color:      req.Color,
		ActorID:    actorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]teamView{"team": viewOf(team)})
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.PendingRegistrations(r.Context())
	if err != nil {
		h.logger.Error("pending teams", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string][]teamView{"teams": viewsOf(list)})
}

type reviewRequest struct {
	Note string `json:"note" validate:"max=500"`
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, true)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, false)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, approve bool) {
	id, ok := pathID(r, "teamID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid team id")
		return
	}
	var req reviewRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return
		}
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	var team Team
	var err error
	if approve {
		team, err = h.service.Approve(r.Context(), id, actorID, req.Note)
	} else {
		team, err = h.service.Reject(r.Context(), id, actorID, req.Note)
	}
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]teamView{"team": viewOf(team)})
}

type updateRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=80"`
	Color string `json:"color" validate:"required"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "teamID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid team id")
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	team, err := h.service.UpdateProfile(r.Context(), UpdateInput{ID: id, Name: req.Name, Color: req.Color, ActorID: actorID})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]teamView{"team": viewOf(team)})
}

type jerseyRequest struct {
	Number *int `json:"number" validate:"required"`
}

func (h *Handler) setJersey(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(r, "teamID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid team id")
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	var req jerseyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	if err := h.service.SetJersey(r.Context(), teamID, userID, *req.Number, actorID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(r, "teamID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid team id")
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	if err := h.service.RemoveMember(r.Context(), teamID, userID, actorID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) invite(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(r, "teamID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid team id")
		return
	}
	var req inviteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	invite, err := h.service.Invite(r.Context(), InviteInput{TeamID: teamID, Email: req.Email, ActorID: actorID})
	if err != nil {
		h.respondError(w, err)
		return
	}
	if h.jobs != nil {
		if _, err := h.jobs.EnqueueTeamInvite(r.Context(), invite.ID); err != nil {
			h.logger.Error("enqueue invite email", slog.Int64("invite_id", invite.ID), slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusCreated, map[string]Invite{"invite": invite})
}

func (h *Handler) showInvite(w http.ResponseWriter, r *http.Request) {
	if _, ok := shared.CurrentUserID(r.Context()); !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	invite, team, err := h.service.InviteByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil && !errors.Is(err, ErrInviteExpired) {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"invite":  invite,
		"team":    viewOf(team),
		"expired": errors.Is(err, ErrInviteExpired),
	})
}

func (h *Handler) acceptInvite(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.CurrentUserID(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	team, err := h.service.AcceptInvite(r.Context(), chi.URLParam(r, "token"), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]teamView{"team": viewOf(team)})
}

func (h *Handler) declineInvite(w http.ResponseWriter, r *http.Request) {
	userID, ok := shared.CurrentUserID(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	if err := h.service.DeclineInvite(r.Context(), chi.URLParam(r, "token"), userID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "team not found")
	case errors.Is(err, ErrMemberNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "member not found")
	case errors.Is(err, ErrInviteNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invite not found")
	case errors.Is(err, ErrInviteExpired):
		httpx.Problem(w, http.StatusGone, "Gone", "invite expired")
	case errors.Is(err, ErrNotInvitee):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "invite addressed to another account")
	default:
		httpx.RespondError(w, err)
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
