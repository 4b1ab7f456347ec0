package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/errors"
	"github.com/Iron-Ham/cypher/internal/orchestrator"
)

// VotePayload is the body of POST /sessions/:id/votes.
type VotePayload struct {
	VoterID        string `json:"voter_id"`
	TurnGroupIndex int    `json:"turn_group_index"`
	Choice         string `json:"choice"`
}

// VoteResponse is returned for an accepted vote.
type VoteResponse struct {
	Accepted bool         `json:"accepted"`
	Tally    battle.Tally `json:"tally"`
}

// ViewerResponse is returned by the viewer commands.
type ViewerResponse struct {
	SessionID   string `json:"session_id"`
	ViewerCount int    `json:"viewer_count"`
}

func bind(c echo.Context, target any) error {
	if err := c.Bind(target); err != nil {
		return errors.NewValidationError("malformed request body").WithCause(errors.ErrInvalidInput)
	}
	return nil
}

func (s *Server) postCreateSession(c echo.Context) error {
	var req orchestrator.CreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := s.Registry.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, session)
}

func (s *Server) getSession(c echo.Context) error {
	session, err := s.Registry.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func (s *Server) postStartSession(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	if err := s.Registry.Start(ctx, id); err != nil {
		return err
	}
	session, err := s.Registry.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, session)
}

func (s *Server) postEndSession(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	if err := s.Registry.End(ctx, id); err != nil {
		return err
	}
	session, err := s.Registry.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, session)
}

func (s *Server) postVote(c echo.Context) error {
	var body VotePayload
	if err := bind(c, &body); err != nil {
		return err
	}

	choice, err := battle.ParseSide(body.Choice)
	if err != nil {
		return err
	}

	receipt, err := s.Registry.RecordVote(c.Request().Context(), battle.Vote{
		SessionID:      c.Param("id"),
		TurnGroupIndex: body.TurnGroupIndex,
		VoterID:        strings.TrimSpace(body.VoterID),
		Choice:         choice,
	})
	if err != nil {
		return err
	}
	if !receipt.Accepted {
		return errors.NewSessionError(
			fmt.Sprintf("voter %s already voted in round %d", body.VoterID, body.TurnGroupIndex),
			errors.ErrAlreadyVoted).WithSessionID(c.Param("id"))
	}
	return c.JSON(http.StatusOK, VoteResponse{Accepted: true, Tally: receipt.Tally})
}

func (s *Server) postViewer(c echo.Context) error {
	count, err := s.Registry.AddViewer(c.Request().Context(), c.Param("id"), c.Param("observer"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ViewerResponse{SessionID: c.Param("id"), ViewerCount: count})
}

func (s *Server) deleteViewer(c echo.Context) error {
	count, err := s.Registry.RemoveViewer(c.Request().Context(), c.Param("id"), c.Param("observer"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ViewerResponse{SessionID: c.Param("id"), ViewerCount: count})
}
