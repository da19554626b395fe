package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/learnsphere/learnsphere-backend/config"
	"github.com/learnsphere/learnsphere-backend/internal/application/command"
	"github.com/learnsphere/learnsphere-backend/internal/application/query"
	"github.com/learnsphere/learnsphere-backend/internal/domain/learningpath"
	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
	"github.com/learnsphere/learnsphere-backend/internal/domain/settings"
	"github.com/learnsphere/learnsphere-backend/pkg/logger"
)

// maxBodyBytes bounds request bodies; the API carries small JSON only.
const maxBodyBytes = 1 << 20

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "LearnSphere Progression API",
		"version":     "v1",
		"description": "REST API for XP, levels, streaks, achievements and learning paths",
		"endpoints": map[string]string{
			"health":       "/health",
			"progress":     "/api/v1/progress",
			"leaderboard":  "/api/v1/leaderboard",
			"achievements": "/api/v1/achievements",
			"paths":        "/api/v1/learning-paths",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.ReadyCheck != nil {
		if err := s.deps.ReadyCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": err.Error(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS LEDGER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgress handles GET /api/v1/progress.
// Ledger-get никогда не отвечает 404: первая выборка создаёт запись.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	q := query.GetProgressQuery{UserID: userIDFrom(r.Context())}

	result, err := s.deps.GetProgressHandler.Handle(r.Context(), q)
	if err != nil {
		s.respondError(w, r, "failed to get progress", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetXPHistory handles GET /api/v1/progress/history.
func (s *Server) handleGetXPHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.GetProgressHandler.GetXPHistory(
		r.Context(), userIDFrom(r.Context()), getQueryParamInt(r, "limit", 20),
	)
	if err != nil {
		s.respondError(w, r, "failed to get xp history", err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// addXPRequest is the body of POST /api/v1/xp.
type addXPRequest struct {
	XPAmount int    `json:"xp_amount"`
	Reason   string `json:"reason"`
}

// handleAddXP handles POST /api/v1/xp.
func (s *Server) handleAddXP(w http.ResponseWriter, r *http.Request) {
	var req addXPRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = command.ReasonManual
	}

	result, err := s.deps.AddXPHandler.Handle(r.Context(), command.AddXPCommand{
		UserID:        userIDFrom(r.Context()),
		Amount:        req.XPAmount,
		Reason:        req.Reason,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.respondError(w, r, "failed to add xp", err)
		return
	}

	// Direct credits can satisfy xp/level achievements. Reward credits
	// never re-enter evaluation.
	if req.Reason != command.ReasonAchievementReward {
		s.evaluateAchievements(r, result.UserID, "xp_added")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    result.UserID,
		"total_xp":   result.TotalXP,
		"level":      result.Level,
		"leveled_up": result.LeveledUp,
	})
}

// handleRecordStreak handles POST /api/v1/streak.
func (s *Server) handleRecordStreak(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.RecordStreakHandler.Handle(r.Context(), command.RecordStreakCommand{
		UserID:        userIDFrom(r.Context()),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.respondError(w, r, "failed to record streak", err)
		return
	}

	s.evaluateAchievements(r, result.UserID, "streak_recorded")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":        result.UserID,
		"outcome":        result.Outcome,
		"current_streak": result.CurrentStreak,
		"longest_streak": result.LongestStreak,
		"broken":         result.Broken,
	})
}

// recordActivityRequest is the body of POST /api/v1/activity.
type recordActivityRequest struct {
	Activity string `json:"activity"`
	Passed   bool   `json:"passed"`
	Minutes  int    `json:"minutes"`
}

// handleRecordActivity handles POST /api/v1/activity.
func (s *Server) handleRecordActivity(w http.ResponseWriter, r *http.Request) {
	var req recordActivityRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.RecordActivityHandler.Handle(r.Context(), command.RecordActivityCommand{
		UserID:        userIDFrom(r.Context()),
		Activity:      req.Activity,
		Passed:        req.Passed,
		Minutes:       req.Minutes,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.respondError(w, r, "failed to record activity", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":             result.UserID,
		"activity":            result.Activity,
		"quizzes_completed":   result.QuizzesCompleted,
		"quizzes_passed":      result.QuizzesPassed,
		"resources_completed": result.ResourcesCompleted,
		"certificates_earned": result.CertificatesEarned,
		"total_study_time":    result.TotalStudyTime,
		"xp_awarded":          result.XPAwarded,
		"total_xp":            result.TotalXP,
		"level":               result.Level,
	})
}

// evaluateAchievements runs catalog evaluation after a ledger or streak
// write. The write itself already succeeded, so evaluation failures are
// logged and the response stays 200.
func (s *Server) evaluateAchievements(r *http.Request, userID, trigger string) {
	if s.deps.AchievementFlow == nil {
		return
	}
	if err := s.deps.AchievementFlow.EvaluateFor(r.Context(), userID, trigger, getRequestID(r.Context())); err != nil {
		s.logger.Warn("achievement evaluation failed",
			logger.Err(err),
			logger.String("user_id", userID),
			logger.String("trigger", trigger),
			logger.String("request_id", getRequestID(r.Context())),
		)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetAchievementCatalog handles GET /api/v1/achievements (public).
func (s *Server) handleGetAchievementCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.GetAchievementsHandler.Catalog(r.Context()))
}

// handleGetUserAchievements handles GET /api/v1/user/achievements.
func (s *Server) handleGetUserAchievements(w http.ResponseWriter, r *http.Request) {
	earned, err := s.deps.GetAchievementsHandler.ListEarned(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.respondError(w, r, "failed to list achievements", err)
		return
	}

	writeJSON(w, http.StatusOK, earned)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/leaderboard (public).
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := query.GetLeaderboardQuery{
		Limit:  getQueryParamInt(r, "limit", 20),
		Offset: getQueryParamInt(r, "offset", 0),
	}

	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), q)
	if err != nil {
		s.respondError(w, r, "failed to get leaderboard", err)
		return
	}

	meta := &ResponseMeta{
		TotalCount: result.TotalCount,
		PageSize:   q.Limit,
		HasMore:    result.HasMore,
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, meta)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEARNING PATH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListPaths handles GET /api/v1/learning-paths.
func (s *Server) handleListPaths(w http.ResponseWriter, r *http.Request) {
	paths, err := s.deps.ListPathsHandler.ListByUser(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.respondError(w, r, "failed to list paths", err)
		return
	}

	writeJSON(w, http.StatusOK, paths)
}

// createPathRequest is the body of POST /api/v1/learning-paths.
type createPathRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Modules     []struct {
		Title            string   `json:"title"`
		Difficulty       string   `json:"difficulty"`
		Topics           []string `json:"topics"`
		EstimatedMinutes int      `json:"estimated_minutes"`
	} `json:"modules"`
}

// handleCreatePath handles POST /api/v1/learning-paths.
func (s *Server) handleCreatePath(w http.ResponseWriter, r *http.Request) {
	var req createPathRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.CreatePathCommand{
		UserID:        userIDFrom(r.Context()),
		Title:         req.Title,
		Description:   req.Description,
		CorrelationID: getRequestID(r.Context()),
	}
	for _, m := range req.Modules {
		cmd.Modules = append(cmd.Modules, command.ModuleInput{
			Title:            m.Title,
			Difficulty:       m.Difficulty,
			Topics:           m.Topics,
			EstimatedMinutes: m.EstimatedMinutes,
		})
	}

	lp, err := s.deps.CreatePathHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.respondError(w, r, "failed to create path", err)
		return
	}

	writeJSON(w, http.StatusCreated, query.PathDTOFrom(lp))
}

// handleGetPath handles GET /api/v1/learning-paths/{id}.
func (s *Server) handleGetPath(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.ListPathsHandler.GetByID(r.Context(), userIDFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.respondError(w, r, "failed to get path", err)
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// updatePathRequest is the body of PATCH /api/v1/learning-paths/{id}.
type updatePathRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// handleUpdatePath handles PATCH /api/v1/learning-paths/{id}.
// Фронтир и кэш уроков этим эндпоинтом не меняются: у них свои
// операции с проверками конкурентности.
func (s *Server) handleUpdatePath(w http.ResponseWriter, r *http.Request) {
	var req updatePathRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Title == nil && req.Description == nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "Nothing to update")
		return
	}

	lp, err := s.deps.UpdatePathHandler.Handle(r.Context(), command.UpdatePathCommand{
		UserID:      userIDFrom(r.Context()),
		PathID:      r.PathValue("id"),
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		s.respondError(w, r, "failed to update path", err)
		return
	}

	writeJSON(w, http.StatusOK, query.PathDTOFrom(lp))
}

// handleDeletePath handles DELETE /api/v1/learning-paths/{id}.
func (s *Server) handleDeletePath(w http.ResponseWriter, r *http.Request) {
	err := s.deps.DeletePathHandler.Handle(r.Context(), command.DeletePathCommand{
		UserID:        userIDFrom(r.Context()),
		PathID:        r.PathValue("id"),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.respondError(w, r, "failed to delete path", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleCompleteModule handles POST /api/v1/learning-paths/{id}/modules/{index}/complete.
func (s *Server) handleCompleteModule(w http.ResponseWriter, r *http.Request) {
	index, ok := s.moduleIndex(w, r)
	if !ok {
		return
	}

	result, err := s.deps.CompleteModuleHandler.Handle(r.Context(), command.CompleteModuleCommand{
		UserID:        userIDFrom(r.Context()),
		PathID:        r.PathValue("id"),
		ModuleIndex:   index,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.respondError(w, r, "failed to complete module", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleOpenLesson handles POST /api/v1/learning-paths/{id}/modules/{index}/lesson.
// С ?regenerate=true слот кэша перезаписывается свежей генерацией.
func (s *Server) handleOpenLesson(w http.ResponseWriter, r *http.Request) {
	index, ok := s.moduleIndex(w, r)
	if !ok {
		return
	}

	userID := userIDFrom(r.Context())

	regenerate := getQueryParamBool(r, "regenerate")
	if regenerate && s.deps.Features != nil {
		// Пользователи вне раскатки получают обычное поведение кэша
		regenerate = s.deps.Features.IsEnabled(
			config.FeatureLessonRegeneration,
			&config.FeatureContext{UserID: userID},
		)
	}

	result, err := s.deps.OpenLessonHandler.Handle(r.Context(), command.OpenLessonCommand{
		UserID:        userID,
		PathID:        r.PathValue("id"),
		ModuleIndex:   index,
		Regenerate:    regenerate,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.respondError(w, r, "failed to open lesson", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path_id":      result.PathID,
		"module_index": result.ModuleIndex,
		"content":      result.Content,
		"cache_hit":    result.CacheHit,
	})
}

// handleCloseLesson handles DELETE /api/v1/learning-paths/{id}/lesson.
func (s *Server) handleCloseLesson(w http.ResponseWriter, r *http.Request) {
	err := s.deps.CloseLessonHandler.Handle(r.Context(), command.CloseLessonCommand{
		UserID: userIDFrom(r.Context()),
		PathID: r.PathValue("id"),
	})
	if err != nil {
		s.respondError(w, r, "failed to close lesson", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// settingsDTO is the API shape of a user settings record.
type settingsDTO struct {
	UserID                          string `json:"user_id"`
	StreakRemindersEnabled          bool   `json:"streak_reminders_enabled"`
	AchievementNotificationsEnabled bool   `json:"achievement_notifications_enabled"`
	QuietHoursStart                 int    `json:"quiet_hours_start"`
	QuietHoursEnd                   int    `json:"quiet_hours_end"`
	Timezone                        string `json:"timezone"`
}

func settingsDTOFrom(s *settings.UserSettings) settingsDTO {
	return settingsDTO{
		UserID:                          s.UserID.String(),
		StreakRemindersEnabled:          s.StreakRemindersEnabled,
		AchievementNotificationsEnabled: s.AchievementNotificationsEnabled,
		QuietHoursStart:                 s.QuietHoursStart,
		QuietHoursEnd:                   s.QuietHoursEnd,
		Timezone:                        s.Timezone,
	}
}

// handleGetSettings handles GET /api/v1/settings.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	userSettings, err := s.deps.SettingsRepo.GetOrDefault(
		r.Context(), progress.UserID(userIDFrom(r.Context())),
	)
	if err != nil {
		s.respondError(w, r, "failed to get settings", err)
		return
	}

	writeJSON(w, http.StatusOK, settingsDTOFrom(userSettings))
}

// updateSettingsRequest is the body of PATCH /api/v1/settings.
type updateSettingsRequest struct {
	StreakRemindersEnabled          *bool   `json:"streak_reminders_enabled"`
	AchievementNotificationsEnabled *bool   `json:"achievement_notifications_enabled"`
	QuietHoursStart                 *int    `json:"quiet_hours_start"`
	QuietHoursEnd                   *int    `json:"quiet_hours_end"`
	Timezone                        *string `json:"timezone"`
}

// handleUpdateSettings handles PATCH /api/v1/settings.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	updated, err := s.deps.UpdateSettingsHandler.Handle(r.Context(), command.UpdateSettingsCommand{
		UserID:                          userIDFrom(r.Context()),
		StreakRemindersEnabled:          req.StreakRemindersEnabled,
		AchievementNotificationsEnabled: req.AchievementNotificationsEnabled,
		QuietHoursStart:                 req.QuietHoursStart,
		QuietHoursEnd:                   req.QuietHoursEnd,
		Timezone:                        req.Timezone,
	})
	if err != nil {
		s.respondError(w, r, "failed to update settings", err)
		return
	}

	writeJSON(w, http.StatusOK, settingsDTOFrom(updated))
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody reads and decodes a JSON request body. Returns false after
// writing an error response when the body is unusable.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return false
	}
	defer r.Body.Close()

	if len(body) == 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Request body is required")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return false
	}
	return true
}

// moduleIndex parses the {index} path segment.
func (s *Server) moduleIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Module index must be a non-negative integer")
		return 0, false
	}
	return index, true
}

// respondError maps domain errors onto the API error taxonomy:
// validation -> 400, not-found -> 404, ownership -> 403, stale
// frontier -> 409, everything else -> 500.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, learningpath.ErrPathNotFound),
		errors.Is(err, progress.ErrProgressNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, learningpath.ErrNotOwner):
		writeJSONError(w, http.StatusForbidden, "forbidden", err.Error())

	case errors.Is(err, learningpath.ErrOutOfOrderCompletion):
		// Rejected no-op: клиент перечитывает состояние, не ретраит
		writeJSONError(w, http.StatusConflict, "out_of_order", err.Error())

	case errors.Is(err, learningpath.ErrModuleLocked):
		writeJSONError(w, http.StatusConflict, "module_locked", err.Error())

	case errors.Is(err, progress.ErrInvalidXPAmount),
		errors.Is(err, progress.ErrInvalidUserID),
		errors.Is(err, progress.ErrInvalidStudyTime),
		errors.Is(err, progress.ErrInvalidActivityKind),
		errors.Is(err, learningpath.ErrInvalidTitle),
		errors.Is(err, learningpath.ErrNoModules),
		errors.Is(err, learningpath.ErrModuleIndexOutOfRange),
		errors.Is(err, settings.ErrInvalidQuietHour):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())

	default:
		s.logger.Error(msg, logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "The request could not be processed")
	}
}
