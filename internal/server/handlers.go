package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wibookly/mailcore/internal/cleanup"
	"github.com/wibookly/mailcore/internal/logging"
	"github.com/wibookly/mailcore/internal/vault"
)

type errorResponse struct {
	Error string `json:"error"`
}

type syncJobRequest struct {
	JobType string `json:"job_type"`
}

type syncJobResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
	Message string `json:"message"`
}

// handleRuleCleanup runs a rule cleanup for the authenticated user.
func (s *Server) handleRuleCleanup(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "missing identity"})
	}

	var req cleanup.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request payload"})
	}

	res, err := s.orchestrator.Cleanup(c.Request().Context(), identity.UserID, req)
	if err != nil {
		var validationErr *cleanup.ValidationError
		switch {
		case errors.As(err, &validationErr):
			return c.JSON(http.StatusBadRequest, errorResponse{Error: validationErr.Error()})
		case errors.Is(err, vault.ErrNoProvidersConnected):
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		default:
			s.logger.Error("rule cleanup failed", logging.Err(err))
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "cleanup failed"})
		}
	}

	return c.JSON(http.StatusOK, res)
}

// handleSyncJob creates and runs a sync job for the authenticated user.
func (s *Server) handleSyncJob(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "missing identity"})
	}

	var req syncJobRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request payload"})
	}

	job, err := s.runner.Run(c.Request().Context(), identity.OrganizationID, identity.UserID, req.JobType)
	if err != nil {
		s.logger.Error("sync job failed", logging.Err(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "sync job failed"})
	}

	return c.JSON(http.StatusOK, syncJobResponse{
		Success: true,
		JobID:   job.ID.String(),
		Message: "Sync job completed",
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "mailcore",
	})
}
