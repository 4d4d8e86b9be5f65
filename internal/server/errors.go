package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chainlabs/questline/internal/contract"
	"github.com/chainlabs/questline/internal/llm"
	"github.com/chainlabs/questline/internal/progress"
	"github.com/chainlabs/questline/internal/retry"
	"github.com/chainlabs/questline/internal/turn"
)

// errorBody is the wire shape for every error response. ErrorCode and
// RetryAction are present only when known.
type errorBody struct {
	Error       errorDetail `json:"error"`
	ErrorCode   string      `json:"error_code,omitempty"`
	RetryAction string      `json:"retry_action,omitempty"`
}

type errorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var cerr *contract.Error
	if errors.As(err, &cerr) {
		c.JSON(http.StatusUnprocessableEntity, errorBody{
			Error:       errorDetail{Code: http.StatusUnprocessableEntity, Message: cerr.Message},
			ErrorCode:   cerr.Code,
			RetryAction: cerr.RetryAction,
		})
		return
	}

	var boe *retry.BreakerOpenError
	if errors.As(err, &boe) {
		seconds := int(boe.RetryAfter.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		respondStatus(c, http.StatusServiceUnavailable,
			"AI service temporarily unavailable, please retry shortly", "AI_SERVICE_UNAVAILABLE")
		return
	}

	var ierr *llm.InvokeError
	if errors.As(err, &ierr) {
		respondStatus(c, http.StatusBadGateway, "AI service request failed", "AI_SERVICE_ERROR")
		return
	}

	var perr *turn.PersistError
	if errors.As(err, &perr) {
		logger.Error("transcript persistence failed",
			zap.Int("rolled_back", perr.Count), zap.Error(perr))
		respondStatus(c, http.StatusInternalServerError,
			"Failed to save conversation state", "DATABASE_FAILURE")
		return
	}

	switch {
	case errors.Is(err, turn.ErrEmptyInput):
		respondStatus(c, http.StatusBadRequest, "Input must not be empty", "")
	case errors.Is(err, turn.ErrGoalAlreadySet):
		respondStatus(c, http.StatusBadRequest, "Session already has a goal", "")
	case errors.Is(err, turn.ErrAlreadyClarified):
		respondStatus(c, http.StatusBadRequest, "Session is already clarified", "")
	case errors.Is(err, turn.ErrNoGoal):
		respondStatus(c, http.StatusNotFound, "No goal set for this session", "")
	case errors.Is(err, progress.ErrNoProgress):
		respondStatus(c, http.StatusNotFound, "No progress for this session", "")
	case errors.Is(err, progress.ErrMissionNotFound):
		respondStatus(c, http.StatusNotFound, "Mission not found", "")
	case errors.Is(err, progress.ErrAlreadyCompleted):
		respondStatus(c, http.StatusForbidden, "Mission already completed", "")
	case errors.Is(err, progress.ErrConflict):
		respondStatus(c, http.StatusConflict, "Concurrent update, please retry", "")
	default:
		logger.Error("unhandled error", zap.Error(err))
		respondStatus(c, http.StatusInternalServerError, "Internal server error", "")
	}
}

func respondStatus(c *gin.Context, status int, message, errorCode string) {
	c.JSON(status, errorBody{
		Error:     errorDetail{Code: status, Message: message},
		ErrorCode: errorCode,
	})
}
