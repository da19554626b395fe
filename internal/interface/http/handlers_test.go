package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnsphere/learnsphere-backend/internal/application/command"
	"github.com/learnsphere/learnsphere-backend/internal/application/query"
	"github.com/learnsphere/learnsphere-backend/internal/application/saga"
	"github.com/learnsphere/learnsphere-backend/internal/domain/achievement"
	"github.com/learnsphere/learnsphere-backend/internal/domain/learningpath"
	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
	"github.com/learnsphere/learnsphere-backend/internal/domain/settings"
	"github.com/learnsphere/learnsphere-backend/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// IN-MEMORY REPOSITORIES
// Зеркалят контракты хранилища: атомарный инкремент XP, монотонный
// уровень, оптимистичный фронтир, уникальная пара (user, achievement).
// ──────────────────────────────────────────────────────────────────────────────

type memProgressRepo struct {
	mu      sync.Mutex
	records map[progress.UserID]*progress.UserProgress
}

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{records: make(map[progress.UserID]*progress.UserProgress)}
}

func (r *memProgressRepo) GetOrCreate(_ context.Context, userID progress.UserID) (*progress.UserProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.records[userID]; ok {
		return p.Clone(), nil
	}
	p, err := progress.NewUserProgress(userID)
	if err != nil {
		return nil, err
	}
	r.records[userID] = p
	return p.Clone(), nil
}

func (r *memProgressRepo) IncrementXP(_ context.Context, userID progress.UserID, amount progress.XP) (progress.XP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.records[userID]
	if !ok {
		return 0, progress.ErrProgressNotFound
	}
	p.TotalXP += amount
	return p.TotalXP, nil
}

func (r *memProgressRepo) RaiseLevel(_ context.Context, userID progress.UserID, level progress.Level) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.records[userID]
	if !ok {
		return false, progress.ErrProgressNotFound
	}
	if p.Level >= level {
		return false, nil
	}
	p.Level = level
	return true, nil
}

func (r *memProgressRepo) SaveStreak(_ context.Context, p *progress.UserProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[p.UserID]
	if !ok {
		return progress.ErrProgressNotFound
	}
	stored.CurrentStreak = p.CurrentStreak
	stored.LongestStreak = p.LongestStreak
	stored.LastActivityDate = p.LastActivityDate
	return nil
}

func (r *memProgressRepo) SaveCounters(_ context.Context, p *progress.UserProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[p.UserID]
	if !ok {
		return progress.ErrProgressNotFound
	}
	stored.TotalStudyTime = p.TotalStudyTime
	stored.QuizzesCompleted = p.QuizzesCompleted
	stored.QuizzesPassed = p.QuizzesPassed
	stored.ResourcesCompleted = p.ResourcesCompleted
	stored.CertificatesEarned = p.CertificatesEarned
	return nil
}

func (r *memProgressRepo) TopByXP(_ context.Context, limit, offset int) ([]*progress.UserProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*progress.UserProgress, 0, len(r.records))
	for _, p := range r.records {
		all = append(all, p.Clone())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TotalXP > all[j].TotalXP })

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memProgressRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records), nil
}

func (r *memProgressRepo) FindStreaksAtRisk(_ context.Context, _ time.Time) ([]*progress.UserProgress, error) {
	return nil, nil
}

type memHistoryRepo struct {
	mu      sync.Mutex
	entries []progress.XPHistoryEntry
}

func (r *memHistoryRepo) Append(_ context.Context, entry progress.XPHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memHistoryRepo) Recent(_ context.Context, userID progress.UserID, limit int) ([]progress.XPHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []progress.XPHistoryEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].UserID == userID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

type memPathRepo struct {
	mu    sync.Mutex
	paths map[learningpath.PathID]*learningpath.LearningPath
}

func newMemPathRepo() *memPathRepo {
	return &memPathRepo{paths: make(map[learningpath.PathID]*learningpath.LearningPath)}
}

func (r *memPathRepo) Create(_ context.Context, lp *learningpath.LearningPath) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *lp
	stored.Modules = append([]learningpath.Module(nil), lp.Modules...)
	r.paths[lp.ID] = &stored
	return nil
}

func (r *memPathRepo) GetByID(_ context.Context, id learningpath.PathID) (*learningpath.LearningPath, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lp, ok := r.paths[id]
	if !ok {
		return nil, learningpath.ErrPathNotFound
	}
	copied := *lp
	copied.Modules = append([]learningpath.Module(nil), lp.Modules...)
	return &copied, nil
}

func (r *memPathRepo) ListByUser(_ context.Context, userID progress.UserID) ([]*learningpath.LearningPath, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*learningpath.LearningPath
	for _, lp := range r.paths {
		if lp.UserID == userID {
			copied := *lp
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memPathRepo) AdvanceFrontier(_ context.Context, id learningpath.PathID, expected int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lp, ok := r.paths[id]
	if !ok {
		return false, learningpath.ErrPathNotFound
	}
	if lp.CompletedModules != expected {
		return false, nil
	}
	lp.CompletedModules++
	return true, nil
}

func (r *memPathRepo) Update(_ context.Context, lp *learningpath.LearningPath) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.paths[lp.ID]
	if !ok {
		return learningpath.ErrPathNotFound
	}
	stored.Title = lp.Title
	stored.Description = lp.Description
	stored.Modules = append([]learningpath.Module(nil), lp.Modules...)
	stored.ActiveLesson = lp.ActiveLesson
	stored.UpdatedAt = lp.UpdatedAt
	return nil
}

func (r *memPathRepo) Delete(_ context.Context, id learningpath.PathID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.paths[id]; !ok {
		return learningpath.ErrPathNotFound
	}
	delete(r.paths, id)
	return nil
}

type memAchievementRepo struct {
	mu     sync.Mutex
	earned map[string]achievement.UserAchievement
}

func newMemAchievementRepo() *memAchievementRepo {
	return &memAchievementRepo{earned: make(map[string]achievement.UserAchievement)}
}

func (r *memAchievementRepo) Insert(_ context.Context, ua achievement.UserAchievement) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ua.UserID.String() + "/" + string(ua.AchievementID)
	if _, ok := r.earned[key]; ok {
		return false, nil
	}
	r.earned[key] = ua
	return true, nil
}

func (r *memAchievementRepo) ListByUser(_ context.Context, userID progress.UserID) ([]achievement.UserAchievement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []achievement.UserAchievement
	for _, ua := range r.earned {
		if ua.UserID == userID {
			out = append(out, ua)
		}
	}
	return out, nil
}

func (r *memAchievementRepo) CountByUser(_ context.Context, userID progress.UserID) (int, error) {
	list, _ := r.ListByUser(context.Background(), userID)
	return len(list), nil
}

type memSettingsRepo struct {
	mu     sync.Mutex
	byUser map[progress.UserID]*settings.UserSettings
}

func newMemSettingsRepo() *memSettingsRepo {
	return &memSettingsRepo{byUser: make(map[progress.UserID]*settings.UserSettings)}
}

func (r *memSettingsRepo) GetOrDefault(_ context.Context, userID progress.UserID) (*settings.UserSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.byUser[userID]; ok {
		copied := *s
		return &copied, nil
	}
	return settings.Defaults(userID), nil
}

func (r *memSettingsRepo) Save(_ context.Context, s *settings.UserSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *s
	r.byUser[s.UserID] = &copied
	return nil
}

// failingGenerator всегда падает: урок должен прийти из fallback-а.
type failingGenerator struct{ calls int }

func (g *failingGenerator) GenerateLesson(context.Context, learningpath.Module, string) (*learningpath.LessonContent, error) {
	g.calls++
	return nil, fmt.Errorf("generator unavailable")
}

// ──────────────────────────────────────────────────────────────────────────────
// TEST SERVER
// ──────────────────────────────────────────────────────────────────────────────

// testEnv exposes the in-memory backends so tests can seed state.
type testEnv struct {
	gen          *failingGenerator
	progressRepo *memProgressRepo
}

func newTestServer(t *testing.T, jwtSecret string) (*Server, *testEnv) {
	t.Helper()

	progressRepo := newMemProgressRepo()
	historyRepo := &memHistoryRepo{}
	pathRepo := newMemPathRepo()
	achRepo := newMemAchievementRepo()
	settingsRepo := newMemSettingsRepo()
	gen := &failingGenerator{}

	addXP := command.NewAddXPHandler(progressRepo, historyRepo, nil)
	recordStreak := command.NewRecordStreakHandler(progressRepo, nil)
	achFlow := saga.NewAchievementFlowSaga(progressRepo, achRepo, addXP, nil)

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	cfg.EnableCORS = false
	cfg.JWTSecret = jwtSecret

	deps := Dependencies{
		AddXPHandler:          addXP,
		RecordStreakHandler:   recordStreak,
		CompleteModuleHandler: command.NewCompleteModuleHandler(pathRepo, addXP, recordStreak, achFlow, nil),
		OpenLessonHandler:     command.NewOpenLessonHandler(pathRepo, gen, nil, time.Second),
		CloseLessonHandler:    command.NewCloseLessonHandler(pathRepo),
		CreatePathHandler:     command.NewCreatePathHandler(pathRepo, nil),
		UpdatePathHandler:     command.NewUpdatePathHandler(pathRepo),
		DeletePathHandler:     command.NewDeletePathHandler(pathRepo, nil),
		UpdateSettingsHandler: command.NewUpdateSettingsHandler(settingsRepo),
		RecordActivityHandler: command.NewRecordActivityHandler(progressRepo, addXP, achFlow),
		AchievementFlow:       achFlow,

		GetProgressHandler:     query.NewGetProgressHandler(progressRepo, historyRepo),
		GetLeaderboardHandler:  query.NewGetLeaderboardHandler(progressRepo, nil),
		GetAchievementsHandler: query.NewGetAchievementsHandler(achRepo),
		ListPathsHandler:       query.NewListPathsHandler(pathRepo),

		SettingsRepo: settingsRepo,
		Logger:       logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError}),
	}

	return NewServer(cfg, deps), &testEnv{gen: gen, progressRepo: progressRepo}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func do(t *testing.T, s *Server, method, path, userID string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

// ──────────────────────────────────────────────────────────────────────────────
// PROGRESS LEDGER
// ──────────────────────────────────────────────────────────────────────────────

func TestGetProgress_CreatesLedgerRecord(t *testing.T) {
	s, _ := newTestServer(t, "")

	// Первое чтение создаёт нулевую запись, а не 404
	code, env := do(t, s, http.MethodGet, "/api/v1/progress", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Success)

	var dto query.ProgressDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Equal(t, "alice", dto.UserID)
	assert.Equal(t, 0, dto.TotalXP)
	assert.Equal(t, 1, dto.Level)
}

func TestGetProgress_RequiresIdentity(t *testing.T) {
	s, _ := newTestServer(t, "")

	code, env := do(t, s, http.MethodGet, "/api/v1/progress", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unauthorized", env.Error.Code)
}

func TestAddXP_SequentialCreditsAccumulate(t *testing.T) {
	s, _ := newTestServer(t, "")

	code, _ := do(t, s, http.MethodPost, "/api/v1/xp", "alice",
		addXPRequest{XPAmount: 250, Reason: "quiz_passed"})
	require.Equal(t, http.StatusOK, code)

	code, env := do(t, s, http.MethodPost, "/api/v1/xp", "alice",
		addXPRequest{XPAmount: 250, Reason: "quiz_passed"})
	require.Equal(t, http.StatusOK, code)

	var result struct {
		TotalXP   int  `json:"total_xp"`
		Level     int  `json:"level"`
		LeveledUp bool `json:"leveled_up"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 500, result.TotalXP)
	assert.Equal(t, 3, result.Level) // floor(sqrt(500/100)) + 1
}

func TestAddXP_RejectsNonPositiveAmount(t *testing.T) {
	s, _ := newTestServer(t, "")

	code, env := do(t, s, http.MethodPost, "/api/v1/xp", "alice",
		addXPRequest{XPAmount: -10})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Code)
}

func TestRecordStreak_SameDayIsNoop(t *testing.T) {
	s, _ := newTestServer(t, "")

	type streakResult struct {
		Outcome       string `json:"outcome"`
		CurrentStreak int    `json:"current_streak"`
	}

	code, env := do(t, s, http.MethodPost, "/api/v1/streak", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	var first streakResult
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.Equal(t, 1, first.CurrentStreak)

	// Второй вызов в тот же календарный день ничего не меняет
	code, env = do(t, s, http.MethodPost, "/api/v1/streak", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	var second streakResult
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.Equal(t, 1, second.CurrentStreak)
	assert.Equal(t, string(progress.StreakOutcomeNoop), second.Outcome)
}

func earnedAchievementIDs(t *testing.T, s *Server, userID string) []string {
	t.Helper()

	code, env := do(t, s, http.MethodGet, "/api/v1/user/achievements", userID, nil)
	require.Equal(t, http.StatusOK, code)

	var earned []query.UserAchievementDTO
	require.NoError(t, json.Unmarshal(env.Data, &earned))

	ids := make([]string, 0, len(earned))
	for _, ua := range earned {
		ids = append(ids, ua.ID)
	}
	return ids
}

func TestAddXP_UnlocksXPAndLevelAchievements(t *testing.T) {
	s, _ := newTestServer(t, "")

	// 10000 XP -> уровень 11: должны открыться пороги уровня и XP
	code, _ := do(t, s, http.MethodPost, "/api/v1/xp", "alice",
		addXPRequest{XPAmount: 10000, Reason: "manual"})
	require.Equal(t, http.StatusOK, code)

	assert.ElementsMatch(t, []string{"level_5", "level_10", "xp_10000"},
		earnedAchievementIDs(t, s, "alice"))

	// Награды (100 + 250 + 1500) начисляются поверх прямого кредита
	code, env := do(t, s, http.MethodGet, "/api/v1/progress", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	var dto query.ProgressDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Equal(t, 11850, dto.TotalXP)
}

func TestAddXP_RewardReasonSkipsEvaluation(t *testing.T) {
	s, _ := newTestServer(t, "")

	// Кредит с reason=achievement_reward не перезапускает оценку
	code, _ := do(t, s, http.MethodPost, "/api/v1/xp", "alice",
		addXPRequest{XPAmount: 10000, Reason: command.ReasonAchievementReward})
	require.Equal(t, http.StatusOK, code)

	assert.Empty(t, earnedAchievementIDs(t, s, "alice"))
}

func TestRecordStreak_UnlocksStreakAchievement(t *testing.T) {
	s, env := newTestServer(t, "")

	// Серия 6 с активностью вчера: сегодняшний вызов продлевает до 7
	p, err := env.progressRepo.GetOrCreate(context.Background(), "alice")
	require.NoError(t, err)
	p.CurrentStreak = 6
	p.LongestStreak = 6
	p.LastActivityDate = time.Now().UTC().AddDate(0, 0, -1)
	require.NoError(t, env.progressRepo.SaveStreak(context.Background(), p))

	code, body := do(t, s, http.MethodPost, "/api/v1/streak", "alice", nil)
	require.Equal(t, http.StatusOK, code)

	var result struct {
		CurrentStreak int `json:"current_streak"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &result))
	require.Equal(t, 7, result.CurrentStreak)

	assert.ElementsMatch(t, []string{"streak_7"}, earnedAchievementIDs(t, s, "alice"))
}

// ──────────────────────────────────────────────────────────────────────────────
// ACTIVITY COUNTERS
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordActivity_QuizUnlocksFirstQuiz(t *testing.T) {
	s, _ := newTestServer(t, "")

	code, env := do(t, s, http.MethodPost, "/api/v1/activity", "alice",
		recordActivityRequest{Activity: "quiz", Passed: true})
	require.Equal(t, http.StatusOK, code)

	var result struct {
		QuizzesCompleted int `json:"quizzes_completed"`
		QuizzesPassed    int `json:"quizzes_passed"`
		XPAwarded        int `json:"xp_awarded"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 1, result.QuizzesCompleted)
	assert.Equal(t, 1, result.QuizzesPassed)
	assert.Equal(t, 50, result.XPAwarded)

	assert.ElementsMatch(t, []string{"first_quiz"}, earnedAchievementIDs(t, s, "alice"))

	// Кредит за квиз плюс награда first_quiz
	code, body := do(t, s, http.MethodGet, "/api/v1/progress", "alice", nil)
	require.Equal(t, http.StatusOK, code)
	var dto query.ProgressDTO
	require.NoError(t, json.Unmarshal(body.Data, &dto))
	assert.Equal(t, 100, dto.TotalXP)
}

func TestRecordActivity_StudyTimeAccumulates(t *testing.T) {
	s, _ := newTestServer(t, "")

	_, _ = do(t, s, http.MethodPost, "/api/v1/activity", "alice",
		recordActivityRequest{Activity: "study_time", Minutes: 40})
	code, env := do(t, s, http.MethodPost, "/api/v1/activity", "alice",
		recordActivityRequest{Activity: "study_time", Minutes: 20})
	require.Equal(t, http.StatusOK, code)

	var result struct {
		TotalStudyTime int `json:"total_study_time"`
		XPAwarded      int `json:"xp_awarded"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 60, result.TotalStudyTime)
	assert.Equal(t, 0, result.XPAwarded)
}

func TestRecordActivity_RejectsUnknownKind(t *testing.T) {
	s, _ := newTestServer(t, "")

	code, env := do(t, s, http.MethodPost, "/api/v1/activity", "alice",
		recordActivityRequest{Activity: "meditation"})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// ACHIEVEMENTS & LEADERBOARD
// ──────────────────────────────────────────────────────────────────────────────

func TestAchievementCatalog_IsPublic(t *testing.T) {
	s, _ := newTestServer(t, "")

	code, env := do(t, s, http.MethodGet, "/api/v1/achievements", "", nil)
	require.Equal(t, http.StatusOK, code)

	var catalog []query.AchievementDTO
	require.NoError(t, json.Unmarshal(env.Data, &catalog))
	assert.NotEmpty(t, catalog)
}

func TestLeaderboard_RanksByTotalXP(t *testing.T) {
	s, _ := newTestServer(t, "")

	_, _ = do(t, s, http.MethodPost, "/api/v1/xp", "alice", addXPRequest{XPAmount: 900, Reason: "manual"})
	_, _ = do(t, s, http.MethodPost, "/api/v1/xp", "bob", addXPRequest{XPAmount: 400, Reason: "manual"})

	code, env := do(t, s, http.MethodGet, "/api/v1/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, code)

	var result query.GetLeaderboardResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "alice", result.Entries[0].UserID)
	assert.Equal(t, 1, result.Entries[0].Rank)
	assert.Equal(t, "bob", result.Entries[1].UserID)
}

// ──────────────────────────────────────────────────────────────────────────────
// LEARNING PATHS
// ──────────────────────────────────────────────────────────────────────────────

func createTestPath(t *testing.T, s *Server, userID string) query.PathDTO {
	t.Helper()

	code, env := do(t, s, http.MethodPost, "/api/v1/learning-paths", userID, map[string]interface{}{
		"title": "Go с нуля",
		"modules": []map[string]interface{}{
			{"title": "Основы", "difficulty": "beginner", "topics": []string{"синтаксис"}},
			{"title": "Горутины", "difficulty": "intermediate"},
		},
	})
	require.Equal(t, http.StatusCreated, code)

	var dto query.PathDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	return dto
}

func TestCompleteModule_AdvancesFrontierAndRejectsReplay(t *testing.T) {
	s, _ := newTestServer(t, "")
	path := createTestPath(t, s, "alice")

	code, env := do(t, s, http.MethodPost,
		"/api/v1/learning-paths/"+path.ID+"/modules/0/complete", "alice", nil)
	require.Equal(t, http.StatusOK, code)

	var result command.CompleteModuleResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 1, result.CompletedModules)
	assert.Equal(t, 50, result.Progress)
	assert.Greater(t, result.XPAwarded, 0)

	// Повтор того же индекса - rejected no-op
	code, env = do(t, s, http.MethodPost,
		"/api/v1/learning-paths/"+path.ID+"/modules/0/complete", "alice", nil)
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "out_of_order", env.Error.Code)
}

func TestCompleteModule_OwnerChecked(t *testing.T) {
	s, _ := newTestServer(t, "")
	path := createTestPath(t, s, "alice")

	code, env := do(t, s, http.MethodPost,
		"/api/v1/learning-paths/"+path.ID+"/modules/0/complete", "mallory", nil)
	assert.Equal(t, http.StatusForbidden, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "forbidden", env.Error.Code)
}

func TestOpenLesson_FallbackThenCacheHit(t *testing.T) {
	s, te := newTestServer(t, "")
	path := createTestPath(t, s, "alice")

	type lessonResult struct {
		Content  *learningpath.LessonContent `json:"content"`
		CacheHit bool                        `json:"cache_hit"`
	}

	// Генератор падает - пользователь всё равно получает урок
	code, env := do(t, s, http.MethodPost,
		"/api/v1/learning-paths/"+path.ID+"/modules/0/lesson", "alice", nil)
	require.Equal(t, http.StatusOK, code)

	var first lessonResult
	require.NoError(t, json.Unmarshal(env.Data, &first))
	require.NotNil(t, first.Content)
	assert.True(t, first.Content.Fallback)
	assert.False(t, first.CacheHit)
	assert.Equal(t, 1, te.gen.calls)

	// Второй вызов отдаёт слот кэша, генератор не трогается
	code, env = do(t, s, http.MethodPost,
		"/api/v1/learning-paths/"+path.ID+"/modules/0/lesson", "alice", nil)
	require.Equal(t, http.StatusOK, code)

	var second lessonResult
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.True(t, second.CacheHit)
	assert.Equal(t, 1, te.gen.calls)
}

func TestOpenLesson_LockedModule(t *testing.T) {
	s, _ := newTestServer(t, "")
	path := createTestPath(t, s, "alice")

	code, env := do(t, s, http.MethodPost,
		"/api/v1/learning-paths/"+path.ID+"/modules/1/lesson", "alice", nil)
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "module_locked", env.Error.Code)
}

func TestDeletePath_SecondDeleteReportsNotFound(t *testing.T) {
	s, _ := newTestServer(t, "")
	path := createTestPath(t, s, "alice")

	code, _ := do(t, s, http.MethodDelete, "/api/v1/learning-paths/"+path.ID, "alice", nil)
	require.Equal(t, http.StatusOK, code)

	code, env := do(t, s, http.MethodDelete, "/api/v1/learning-paths/"+path.ID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// SETTINGS
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdateSettings_PartialPatch(t *testing.T) {
	s, _ := newTestServer(t, "")

	start, end := 23, 7
	code, env := do(t, s, http.MethodPatch, "/api/v1/settings", "alice", map[string]interface{}{
		"quiet_hours_start": start,
		"quiet_hours_end":   end,
	})
	require.Equal(t, http.StatusOK, code)

	var dto settingsDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Equal(t, start, dto.QuietHoursStart)
	assert.Equal(t, end, dto.QuietHoursEnd)
	// Незатронутые поля сохраняют значения по умолчанию
	assert.True(t, dto.StreakRemindersEnabled)
}

func TestUpdateSettings_RejectsInvalidQuietHour(t *testing.T) {
	s, _ := newTestServer(t, "")

	code, env := do(t, s, http.MethodPatch, "/api/v1/settings", "alice", map[string]interface{}{
		"quiet_hours_start": 25,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// BEARER AUTHENTICATION
// ──────────────────────────────────────────────────────────────────────────────

func TestBearerAuth_ValidToken(t *testing.T) {
	const secret = "test-secret"
	s, _ := newTestServer(t, secret)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "bob",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/progress", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var dto query.ProgressDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Equal(t, "bob", dto.UserID)
}

func TestBearerAuth_RejectsBadToken(t *testing.T) {
	s, _ := newTestServer(t, "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/progress", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
