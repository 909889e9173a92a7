package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/rallyrank/league-api/internal/errors"
	"github.com/rallyrank/league-api/internal/middleware"
	"github.com/rallyrank/league-api/internal/services"
	"github.com/rallyrank/league-api/internal/utils"
)

// LeagueHandler coordinates league and match HTTP handlers.
type LeagueHandler struct {
	leagueService *services.LeagueService
}

// NewLeagueHandler creates a new LeagueHandler.
func NewLeagueHandler(leagueService *services.LeagueService) *LeagueHandler {
	return &LeagueHandler{
		leagueService: leagueService,
	}
}

// CreateLeague creates a new league owned by the caller.
func (h *LeagueHandler) CreateLeague(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateLeagueRequest struct {
		Name        string `json:"name" binding:"required,min=3,max=100"`
		Description string `json:"description" binding:"max=500"`
		IsPublic    *bool  `json:"is_public" binding:"required"`
	}

	var req CreateLeagueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	league, err := h.leagueService.CreateLeague(c.Request.Context(), services.CreateLeagueInput{
		Name:          req.Name,
		Description:   req.Description,
		IsPublic:      *req.IsPublic,
		CreatorUserID: userID,
	})
	if err != nil {
		respondLeagueError(c, err)
		return
	}

	c.JSON(http.StatusCreated, league)
}

// ListPublicLeagues lists public leagues with pagination.
func (h *LeagueHandler) ListPublicLeagues(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	leagues, total, err := h.leagueService.ListPublicLeagues(c.Request.Context(), params)
	if err != nil {
		respondLeagueError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leagues": leagues,
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// ListMyLeagues lists the leagues the caller belongs to.
func (h *LeagueHandler) ListMyLeagues(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	leagues, err := h.leagueService.ListUserLeagues(c.Request.Context(), userID)
	if err != nil {
		respondLeagueError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"leagues": leagues})
}

// GetLeague returns league standings with per-member stats.
func (h *LeagueHandler) GetLeague(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	leagueID, ok := parseLeagueID(c)
	if !ok {
		return
	}

	detail, err := h.leagueService.GetLeagueDetail(c.Request.Context(), leagueID, userID)
	if err != nil {
		respondLeagueError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// JoinPublicLeague adds the caller to a public league.
func (h *LeagueHandler) JoinPublicLeague(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	leagueID, ok := parseLeagueID(c)
	if !ok {
		return
	}

	league, err := h.leagueService.JoinPublicLeague(c.Request.Context(), leagueID, userID)
	if err != nil {
		respondLeagueError(c, err)
		return
	}

	c.JSON(http.StatusOK, league)
}

// JoinPrivateLeague adds the caller to the league matching an invite code.
func (h *LeagueHandler) JoinPrivateLeague(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type JoinPrivateRequest struct {
		InviteCode string `json:"invite_code" binding:"required,len=8"`
	}

	var req JoinPrivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	league, err := h.leagueService.JoinPrivateLeague(c.Request.Context(), req.InviteCode, userID)
	if err != nil {
		respondLeagueError(c, err)
		return
	}

	c.JSON(http.StatusOK, league)
}

// LeaveLeague removes the caller's membership.
func (h *LeagueHandler) LeaveLeague(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	leagueID, ok := parseLeagueID(c)
	if !ok {
		return
	}

	if err := h.leagueService.LeaveLeague(c.Request.Context(), leagueID, userID); err != nil {
		respondLeagueError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Left league successfully"})
}

// RecordMatch reports a match result and applies the rating update.
func (h *LeagueHandler) RecordMatch(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	leagueID, ok := parseLeagueID(c)
	if !ok {
		return
	}

	type MatchRequest struct {
		WinnerID uint64 `json:"winner_id" binding:"required"`
		LoserID  uint64 `json:"loser_id" binding:"required"`
	}

	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	match, err := h.leagueService.RecordMatch(c.Request.Context(), services.RecordMatchInput{
		LeagueID:       leagueID,
		WinnerUserID:   req.WinnerID,
		LoserUserID:    req.LoserID,
		ReporterUserID: userID,
	})
	if err != nil {
		respondLeagueError(c, err)
		return
	}

	c.JSON(http.StatusCreated, match)
}

// ListMatches lists a league's match history, most recent first.
func (h *LeagueHandler) ListMatches(c *gin.Context) {
	leagueID, ok := parseLeagueID(c)
	if !ok {
		return
	}

	matches, err := h.leagueService.ListMatches(c.Request.Context(), leagueID)
	if err != nil {
		respondLeagueError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func parseLeagueID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid league ID")
		return 0, false
	}
	return id, true
}

func respondLeagueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrLeagueNotFound),
		errors.Is(err, services.ErrInvalidInviteCode),
		errors.Is(err, services.ErrMembershipNotFound),
		errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrOwnerCannotLeave),
		errors.Is(err, services.ErrInviteCodeExhausted):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidLeagueName),
		errors.Is(err, services.ErrLeagueIsPrivate),
		errors.Is(err, services.ErrSamePlayer),
		errors.Is(err, services.ErrWinnerNotMember),
		errors.Is(err, services.ErrLoserNotMember):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotLeagueMember):
		apierrors.Forbidden(c, err.Error())
	default:
		apierrors.InternalError(c, "")
	}
}
