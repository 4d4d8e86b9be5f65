package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chainlabs/questline/internal/auth"
	"github.com/chainlabs/questline/internal/models"
)

// registerRoutes sets up all API routes on the Gin engine.
func registerRoutes(engine *gin.Engine, opts Options) {
	engine.GET("/health", handleHealth)

	api := engine.Group("/api")
	api.POST("/auth/session", handleCreateSession(opts))
	api.POST("/auth/refresh", handleRefresh(opts))

	authed := api.Group("", auth.Middleware(opts.Auth))
	authed.POST("/goal", handleGoal(opts))
	authed.POST("/clarify", handleClarify(opts))
	authed.POST("/chat", handleChat(opts))
	authed.GET("/personalised", handlePersonalised(opts))
	authed.GET("/progress", handleProgress(opts))
	authed.POST("/mission/complete", handleCompleteMission(opts))
	authed.GET("/unlock-status", handleUnlockStatus(opts))
	authed.GET("/session", handleSessionState(opts))
	authed.POST("/call/link", handleCallLink(opts))
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func handleCreateSession(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, pair, err := opts.Auth.CreateSession(c.Request.UserAgent(), c.ClientIP())
		if err != nil {
			respondError(c, opts.Logger, err)
			return
		}
		opts.Logger.Info("session created", zap.String("session_id", session.ID))
		c.JSON(http.StatusCreated, pair)
	}
}

func handleRefresh(opts Options) gin.HandlerFunc {
	type request struct {
		RefreshToken string `json:"refresh_token"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
			respondStatus(c, http.StatusBadRequest, "refresh_token is required", "")
			return
		}
		pair, err := opts.Auth.Refresh(req.RefreshToken)
		if err != nil {
			respondStatus(c, http.StatusUnauthorized, "Invalid refresh token", "")
			return
		}
		c.JSON(http.StatusOK, pair)
	}
}

func handleGoal(opts Options) gin.HandlerFunc {
	type request struct {
		Input string `json:"input"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			respondStatus(c, http.StatusBadRequest, "Invalid request body", "")
			return
		}
		res, err := opts.Sequencer.SubmitGoal(c.Request.Context(), auth.SessionID(c), req.Input)
		if err != nil {
			respondError(c, opts.Logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"assistantMessage": res.AssistantMessage,
			"history":          res.History,
		})
	}
}

func handleClarify(opts Options) gin.HandlerFunc {
	type request struct {
		Clarification string `json:"clarification"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			respondStatus(c, http.StatusBadRequest, "Invalid request body", "")
			return
		}
		row, err := opts.Sequencer.Clarify(c.Request.Context(), auth.SessionID(c), req.Clarification)
		if err != nil {
			respondError(c, opts.Logger, err)
			return
		}
		c.JSON(http.StatusOK, pitchResponse(row))
	}
}

func handleChat(opts Options) gin.HandlerFunc {
	type chatContext struct {
		Page    string `json:"page"`
		Section string `json:"section"`
	}
	type request struct {
		Message string      `json:"message"`
		Context chatContext `json:"context"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			respondStatus(c, http.StatusBadRequest, "Invalid request body", "")
			return
		}
		res, err := opts.Sequencer.Chat(c.Request.Context(), auth.SessionID(c),
			req.Message, req.Context.Page, req.Context.Section)
		if err != nil {
			respondError(c, opts.Logger, err)
			return
		}

		updated := gin.H{"pointsTotal": 0, "missions": []models.Mission{}, "callUnlocked": false}
		if res.UpdatedProgress != nil {
			updated = gin.H{
				"pointsTotal":  res.UpdatedProgress.PointsTotal,
				"missions":     res.UpdatedProgress.Missions,
				"callUnlocked": res.UpdatedProgress.CallUnlocked,
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"reply":            res.Reply,
			"history":          res.History,
			"updatedProgress":  updated,
			"followUpMissions": res.FollowUpMissions,
			"suggestedRead":    res.SuggestedRead,
			"navigate":         res.Navigate,
		})
	}
}

func handlePersonalised(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := auth.SessionID(c)
		phase, err := opts.Phases.Phase(sessionID)
		if err != nil {
			respondError(c, opts.Logger, err)
			return
		}
		if phase == models.PhaseNoGoal {
			respondStatus(c, http.StatusNotFound, "No goal set for this session", "")
			return
		}

		status := "CLARIFIED"
		if phase == models.PhaseGoalSet {
			status = "GOAL_SET"
		}
		messages, err := opts.Sequencer.History(sessionID)
		if err != nil {
			respondError(c, opts.Logger, err)
			return
		}

		body := gin.H{"status": status, "messages": messages}
		if row, err := opts.Progress.Snapshot(sessionID); err == nil {
			body["personalisation"] = pitchResponse(row)
		}
		c.JSON(http.StatusOK, body)
	}
}

func handleProgress(opts Options) gin.HandlerFunc {
	type missionBrief struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Points int    `json:"points"`
	}
	return func(c *gin.Context) {
		row, err := opts.Progress.Snapshot(auth.SessionID(c))
		if err != nil {
			respondError(c, opts.Logger, err)
			return
		}
		briefs := make([]missionBrief, 0, len(row.Missions))
		for _, m := range row.Missions {
			briefs = append(briefs, missionBrief{ID: m.ID, Status: m.Status, Points: m.Points})
		}
		c.JSON(http.StatusOK, gin.H{
			"points_total":  row.PointsTotal,
			"missions":      briefs,
			"call_unlocked": row.CallUnlocked,
		})
	}
}

func handleCompleteMission(opts Options) gin.HandlerFunc {
	type artifact struct {
		Answer string `json:"answer"`
	}
	type request struct {
		MissionID string   `json:"mission_id"`
		Artifact  artifact `json:"artifact"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil || req.MissionID == "" {
			respondStatus(c, http.StatusBadRequest, "mission_id is required", "")
			return
		}
		res, err := opts.Progress.CompleteMission(auth.SessionID(c), req.MissionID, req.Artifact.Answer)
		if err != nil {
			respondError(c, opts.Logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"points_awarded": res.PointsAwarded,
			"points_total":   res.PointsTotal,
			"call_unlocked":  res.CallUnlocked,
			"next_mission":   res.NextMission,
		})
	}
}

func handleUnlockStatus(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		unlocked := false
		if row, err := opts.Progress.Snapshot(auth.SessionID(c)); err == nil {
			unlocked = row.CallUnlocked
		}
		c.JSON(http.StatusOK, gin.H{"call_unlocked": unlocked})
	}
}

func handleSessionState(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		row, err := opts.Progress.Snapshot(auth.SessionID(c))
		if err != nil {
			respondError(c, opts.Logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"goal":          row.Goal,
			"missions":      row.Missions,
			"points_total":  row.PointsTotal,
			"call_unlocked": row.CallUnlocked,
		})
	}
}

func handleCallLink(opts Options) gin.HandlerFunc {
	type request struct {
		BookingID string `json:"booking_id"`
		UID       string `json:"uid"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil || req.BookingID == "" {
			respondStatus(c, http.StatusBadRequest, "booking_id is required", "")
			return
		}
		if _, err := opts.Progress.StoreCallRecord(auth.SessionID(c), req.BookingID, req.UID); err != nil {
			respondError(c, opts.Logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// pitchResponse shapes a progress row into the client-facing pitch.
func pitchResponse(row *models.SessionProgress) gin.H {
	return gin.H{
		"goal":                           row.Goal,
		"hero":                           row.Hero,
		"process":                        row.Process,
		"missions":                       row.Missions,
		"caseStudies":                    row.CaseStudies,
		"whyThisCaseStudiesWereSelected": row.WhyCaseStudies,
		"why":                            row.Why,
	}
}
