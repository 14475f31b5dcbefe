package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/venkytv/riverside-connector/internal/models"
	"github.com/venkytv/riverside-connector/pkg/credentials"
	"github.com/venkytv/riverside-connector/pkg/meetings"
	"github.com/venkytv/riverside-connector/pkg/video"
)

// Caller identity headers injected by the platform gateway. Session
// authentication happens upstream; this service only consumes the result.
const (
	headerUserID = "X-User-Id"
	headerTeamID = "X-Team-Id"
)

type installRequest struct {
	APIKey string `json:"api_key"`
	TeamID *int64 `json:"team_id,omitempty"`
}

type installResponse struct {
	RedirectURL string `json:"redirect_url"`
}

type showsResponse struct {
	Shows [][2]string `json:"shows"`
}

type updateMeetingRequest struct {
	MeetingPassword string         `json:"meeting_password,omitempty"`
	MeetingURL      string         `json:"meeting_url,omitempty"`
	Booking         models.Booking `json:"booking"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// callerIdentity extracts the authenticated caller from gateway headers.
// A request without a valid user id never reaches the service layer.
func callerIdentity(c *gin.Context) (int64, *int64, bool) {
	rawUser := c.GetHeader(headerUserID)
	userID, err := strconv.ParseInt(rawUser, 10, 64)
	if err != nil || userID <= 0 {
		return 0, nil, false
	}

	var teamID *int64
	if rawTeam := c.GetHeader(headerTeamID); rawTeam != "" {
		parsed, err := strconv.ParseInt(rawTeam, 10, 64)
		if err != nil || parsed <= 0 {
			return 0, nil, false
		}
		teamID = &parsed
	}

	return userID, teamID, true
}

func (s *Server) handleInstall(c *gin.Context) {
	userID, teamID, ok := callerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "caller identity is required"})
		return
	}

	var req installRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.TeamID != nil {
		teamID = req.TeamID
	}

	redirectURL, err := s.service.Install(c.Request.Context(), userID, teamID, req.APIKey)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, installResponse{RedirectURL: redirectURL})
}

func (s *Server) handleListShows(c *gin.Context) {
	userID, teamID, ok := callerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "caller identity is required"})
		return
	}

	shows, err := s.service.ListShows(c.Request.Context(), userID, teamID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	pairs := make([][2]string, 0, len(shows))
	for _, show := range shows {
		pairs = append(pairs, [2]string{show.ID, show.Name})
	}

	c.JSON(http.StatusOK, showsResponse{Shows: pairs})
}

func (s *Server) handleCreateMeeting(c *gin.Context) {
	userID, teamID, ok := callerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "caller identity is required"})
		return
	}

	var booking models.Booking
	if err := c.ShouldBindJSON(&booking); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid booking body"})
		return
	}

	meeting, err := s.service.CreateMeeting(c.Request.Context(), userID, teamID, &booking)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, meeting)
}

func (s *Server) handleUpdateMeeting(c *gin.Context) {
	userID, teamID, ok := callerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "caller identity is required"})
		return
	}

	var req updateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	ref := &models.BookingReference{
		MeetingID:       c.Param("id"),
		MeetingPassword: req.MeetingPassword,
		MeetingURL:      req.MeetingURL,
	}

	meeting, err := s.service.UpdateMeeting(c.Request.Context(), userID, teamID, ref, &req.Booking)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, meeting)
}

func (s *Server) handleDeleteMeeting(c *gin.Context) {
	userID, teamID, ok := callerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "caller identity is required"})
		return
	}

	if err := s.service.DeleteMeeting(c.Request.Context(), userID, teamID, c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}

	// A recording-protected delete is still a 204: the protection is
	// silent by contract.
	c.Status(http.StatusNoContent)
}

func (s *Server) handleHealthz(c *gin.Context) {
	status := gin.H{"status": "ok"}
	code := http.StatusOK

	if s.health != nil {
		if err := s.health.IsHealthy(); err != nil {
			status["status"] = "degraded"
			status["nats"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["nats"] = "ok"
		}
	}

	c.JSON(code, status)
}

func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, credentials.ErrNotInstalled):
		c.JSON(http.StatusForbidden, errorResponse{Error: "integration is not installed for this account"})
	case errors.Is(err, meetings.ErrKeyRejected):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "provider rejected the API key"})
	case errors.Is(err, meetings.ErrEmptyKey):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "api_key is required"})
	case errors.Is(err, video.ErrInvalidBooking):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, video.ErrMalformedResponse):
		c.JSON(http.StatusBadGateway, errorResponse{Error: "provider returned a malformed response"})
	default:
		s.logger.Error("Request failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
