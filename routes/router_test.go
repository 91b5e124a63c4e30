package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/neurowell/neurowell/config"
	"github.com/neurowell/neurowell/models"
	"github.com/neurowell/neurowell/recommend"
	"github.com/neurowell/neurowell/testutil"
	"github.com/neurowell/neurowell/utils"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	now    time.Time
	mr     *miniredis.Miniredis
	cookie *http.Cookie
}

func newHarness(t *testing.T, aiBaseURL string) *harness {
	t.Helper()
	cfg := config.AppConfig{
		JWTSecret:          "router-test-secret-value",
		TokenTTL:           time.Hour,
		GinMode:            "test",
		RateLimitPerMinute: 6000,
		AIBaseURL:          aiBaseURL,
		AITimeout:          2 * time.Second,
		InsightsCacheTTL:   time.Hour,
		ChatCacheTTL:       time.Minute,
	}
	config.Set(cfg)

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	utils.UseRedis(rc)
	t.Cleanup(func() {
		utils.UseRedis(nil)
		_ = rc.Close()
	})

	h := &harness{t: t, db: testutil.NewDB(t), now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), mr: mr}
	h.router = SetupRouter(h.db, recommend.NewClient(cfg, nil), testutil.FixedClock(&h.now))
	return h
}

func (h *harness) do(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (h *harness) signUp(email string) {
	h.t.Helper()
	w, env := h.do(http.MethodPost, "/api/v1/auth/signup", gin.H{"email": email, "password": "correct-horse"})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(h.t, 0, env.Code)
	for _, c := range w.Result().Cookies() {
		if c.Name == utils.SessionCookie {
			h.cookie = c
		}
	}
	require.NotNil(h.t, h.cookie, "session cookie not set")
	assert.True(h.t, h.cookie.HttpOnly)
}

func decode(t *testing.T, raw json.RawMessage, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t, "")
	h.signUp("Ada@Example.com")

	w, env := h.do(http.MethodPost, "/api/v1/auth/signup", gin.H{"email": "ada@example.com", "password": "another-pass"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 40901, env.Code)

	w, _ = h.do(http.MethodPost, "/api/v1/auth/signup", gin.H{"email": "bob@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = h.do(http.MethodPost, "/api/v1/auth/signin", gin.H{"email": "ada@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40106, env.Code)

	w, _ = h.do(http.MethodPost, "/api/v1/auth/signin", gin.H{"email": "ada@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = h.do(http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Email   string `json:"email"`
		Streaks int    `json:"streaks"`
	}
	decode(t, env.Data, &me)
	assert.Equal(t, "ada@example.com", me.Email)
	assert.Zero(t, me.Streaks)

	w, _ = h.do(http.MethodPost, "/api/v1/auth/signout", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = h.do(http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40104, env.Code)
}

func TestSignUpConcurrentSameEmail(t *testing.T) {
	h := newHarness(t, "")
	body, err := json.Marshal(gin.H{"email": "twin@example.com", "password": "correct-horse"})
	require.NoError(t, err)

	const n = 5
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.router.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	var created, conflicts int
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, conflicts)

	var rows int64
	require.NoError(t, h.db.Model(&models.User{}).Where("email = ?", "twin@example.com").Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestOAuthRedirectRejectsUnknownProvider(t *testing.T) {
	h := newHarness(t, "")
	w, env := h.do(http.MethodGet, "/api/v1/auth/oauth/myspace/login", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40004, env.Code)

	w, env = h.do(http.MethodGet, "/api/v1/auth/oauth/github/callback?code=x&state=never-issued", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40006, env.Code)
}

func TestOnboarding(t *testing.T) {
	h := newHarness(t, "")
	h.signUp("onboard@example.com")

	_, env := h.do(http.MethodGet, "/api/v1/onboarding/status", nil)
	assert.JSONEq(t, `{"completed":false}`, string(env.Data))

	w, env := h.do(http.MethodPost, "/api/v1/onboarding", gin.H{
		"name":                 "Ada <script>alert(1)</script>",
		"age":                  29,
		"has_mental_issue":     true,
		"mental_issue_details": "anxiety",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var user struct {
		Name    string  `json:"name"`
		Details *string `json:"mental_issue_details"`
		Done    bool    `json:"onboarding_completed"`
		Streaks int     `json:"streaks"`
	}
	decode(t, env.Data, &user)
	assert.Equal(t, "Ada", user.Name)
	require.NotNil(t, user.Details)
	assert.Equal(t, "anxiety", *user.Details)
	assert.True(t, user.Done)

	_, env = h.do(http.MethodGet, "/api/v1/onboarding/status", nil)
	assert.JSONEq(t, `{"completed":true}`, string(env.Data))

	w, _ = h.do(http.MethodPost, "/api/v1/onboarding", gin.H{"age": 500})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckInLifecycle(t *testing.T) {
	h := newHarness(t, "")
	h.signUp("streak@example.com")
	payload := gin.H{"mood": 7, "stress": 4, "sleep": 8, "productivity": 6, "notes": "<b>good</b> day"}

	w, env := h.do(http.MethodPost, "/api/v1/checkins", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var accepted struct {
		Streak  int `json:"streak"`
		CheckIn struct {
			Notes *string `json:"notes"`
		} `json:"check_in"`
	}
	decode(t, env.Data, &accepted)
	assert.Equal(t, 1, accepted.Streak)
	require.NotNil(t, accepted.CheckIn.Notes)
	assert.Equal(t, "good day", *accepted.CheckIn.Notes)

	h.now = h.now.Add(3 * time.Hour)
	w, env = h.do(http.MethodPost, "/api/v1/checkins", payload)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 42930, env.Code)
	assert.Equal(t, "You can only submit once every 24 hours.", env.Message)
	assert.Equal(t, "75600", w.Header().Get("Retry-After"))
	var rejected struct {
		Streak int `json:"streak"`
	}
	decode(t, env.Data, &rejected)
	assert.Equal(t, 1, rejected.Streak)

	h.now = h.now.Add(22 * time.Hour)
	w, env = h.do(http.MethodPost, "/api/v1/checkins", payload)
	require.Equal(t, http.StatusCreated, w.Code)
	decode(t, env.Data, &accepted)
	assert.Equal(t, 2, accepted.Streak)

	w, _ = h.do(http.MethodPost, "/api/v1/checkins", gin.H{"mood": 11, "stress": 4, "sleep": 8, "productivity": 6})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = h.do(http.MethodPost, "/api/v1/checkins", gin.H{"stress": 4, "sleep": 8, "productivity": 6})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, env = h.do(http.MethodGet, "/api/v1/checkins/streak", nil)
	var st struct {
		Current    int  `json:"current_streak"`
		Broken     bool `json:"streak_broken"`
		CanCheckIn bool `json:"can_check_in"`
	}
	decode(t, env.Data, &st)
	assert.Equal(t, 2, st.Current)
	assert.False(t, st.Broken)
	assert.False(t, st.CanCheckIn)

	_, env = h.do(http.MethodGet, "/api/v1/checkins/recent", nil)
	var recent struct {
		CheckIns []json.RawMessage `json:"check_ins"`
	}
	decode(t, env.Data, &recent)
	assert.Len(t, recent.CheckIns, 2)

	_, env = h.do(http.MethodGet, "/api/v1/checkins/week?tz=UTC", nil)
	var week struct {
		Days []struct {
			Date    string `json:"date"`
			HasData bool   `json:"has_data"`
		} `json:"days"`
	}
	decode(t, env.Data, &week)
	require.Len(t, week.Days, 7)
	assert.Equal(t, "2025-03-11", week.Days[6].Date)
	assert.True(t, week.Days[6].HasData)
	assert.True(t, week.Days[5].HasData)
	assert.False(t, week.Days[0].HasData)

	// Two silent days later the streak reads as broken without being written.
	h.now = h.now.Add(50 * time.Hour)
	_, env = h.do(http.MethodGet, "/api/v1/checkins/streak", nil)
	decode(t, env.Data, &st)
	assert.Zero(t, st.Current)
	assert.True(t, st.Broken)
	assert.True(t, st.CanCheckIn)
}

func TestCheckInUnknownUser(t *testing.T) {
	h := newHarness(t, "")
	token, _, err := utils.GenerateToken("00000000-0000-0000-0000-000000000000", "ghost@example.com", time.Hour)
	require.NoError(t, err)
	h.cookie = &http.Cookie{Name: utils.SessionCookie, Value: token}

	w, env := h.do(http.MethodPost, "/api/v1/checkins", gin.H{"mood": 5, "stress": 5, "sleep": 7, "productivity": 5})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40410, env.Code)
}

func TestInsightsFallback(t *testing.T) {
	h := newHarness(t, "")
	h.signUp("insights@example.com")
	require.NoError(t, h.db.Create(&models.Counsellor{
		ID: "c-1", Name: "Dr. Calm", Specialties: []string{"stress-management", "anxiety"}, Rating: 4.9,
	}).Error)

	w, _ := h.do(http.MethodPost, "/api/v1/checkins", gin.H{"mood": 3, "stress": 9, "sleep": 5, "productivity": 4})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := h.do(http.MethodGet, "/api/v1/insights/wellness", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var analysis struct {
		DataPoints int `json:"data_points"`
	}
	decode(t, env.Data, &analysis)
	assert.Equal(t, 1, analysis.DataPoints)

	_, env = h.do(http.MethodGet, "/api/v1/insights/activities", nil)
	var acts recommend.Activities
	decode(t, env.Data, &acts)
	assert.Equal(t, recommend.SourceFallback, acts.Source)
	assert.NotEmpty(t, acts.Activities)

	_, env = h.do(http.MethodGet, "/api/v1/insights/counsellors", nil)
	var recs recommend.CounsellorRecommendations
	decode(t, env.Data, &recs)
	assert.Equal(t, recommend.SourceFallback, recs.Source)
	require.Len(t, recs.Recommendations, 1)
	assert.Equal(t, "c-1", recs.Recommendations[0].CounsellorID)

	_, env = h.do(http.MethodPost, "/api/v1/insights/chat", gin.H{"mode": "proactive"})
	var reply recommend.ChatReply
	decode(t, env.Data, &reply)
	assert.Equal(t, "I noticed your mood is at 3/10 and stress at 9/10. What's been going on lately?", reply.Reply)

	w, env = h.do(http.MethodPost, "/api/v1/insights/chat", gin.H{"mode": "chat"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40051, env.Code)

	// Fallback content is not cached.
	assert.False(t, h.mr.Exists(utils.InsightsCacheKey(h.userID(), "activities")))
}

func (h *harness) userID() string {
	h.t.Helper()
	claims, err := utils.ParseToken(h.cookie.Value)
	require.NoError(h.t, err)
	return claims.UserID
}

func TestInsightsRemoteCachedAndInvalidated(t *testing.T) {
	var calls atomic.Int32
	ai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"activities":[{"id":"walk","title":"Walk","description":"Go outside"}]}`))
	}))
	defer ai.Close()

	h := newHarness(t, ai.URL)
	h.signUp("remote@example.com")

	for i := 0; i < 2; i++ {
		_, env := h.do(http.MethodGet, "/api/v1/insights/activities", nil)
		var acts recommend.Activities
		decode(t, env.Data, &acts)
		assert.Equal(t, recommend.SourceRemote, acts.Source)
		require.Len(t, acts.Activities, 1)
		assert.Equal(t, "walk", acts.Activities[0].ID)
	}
	assert.Equal(t, int32(1), calls.Load())

	w, _ := h.do(http.MethodPost, "/api/v1/checkins", gin.H{"mood": 6, "stress": 3, "sleep": 7, "productivity": 6})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, h.mr.Exists(utils.InsightsCacheKey(h.userID(), "activities")))

	h.do(http.MethodGet, "/api/v1/insights/activities", nil)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCounsellorDirectory(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.db.Create(&[]models.Counsellor{
		{ID: "a", Name: "Dr. Ames", Specialties: []string{"trauma", "art-therapy"}, Rating: 4.2},
		{ID: "b", Name: "Dr. Brook", Specialties: []string{"anxiety"}, Rating: 4.8, Bio: "Mindfulness first"},
	}).Error)

	_, env := h.do(http.MethodGet, "/api/v1/counsellors", nil)
	var list struct {
		Counsellors []models.Counsellor `json:"counsellors"`
		Total       int                 `json:"total"`
	}
	decode(t, env.Data, &list)
	require.Equal(t, 2, list.Total)
	assert.Equal(t, "b", list.Counsellors[0].ID)
	assert.Equal(t, []string{"English"}, list.Counsellors[0].Languages)

	_, env = h.do(http.MethodGet, "/api/v1/counsellors?specialty=trauma", nil)
	decode(t, env.Data, &list)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "a", list.Counsellors[0].ID)

	_, env = h.do(http.MethodGet, "/api/v1/counsellors?q=mindful", nil)
	decode(t, env.Data, &list)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "b", list.Counsellors[0].ID)

	_, env = h.do(http.MethodGet, "/api/v1/counsellors/specialties", nil)
	var sp struct {
		Specialties []string `json:"specialties"`
	}
	decode(t, env.Data, &sp)
	assert.Contains(t, sp.Specialties, "art-therapy")
	assert.Contains(t, sp.Specialties, "general-counseling")
	assert.IsNonDecreasing(t, sp.Specialties)
	assert.Len(t, sp.Specialties, len(models.PredefinedSpecialties)+1)
}

func TestStatsAndPlumbing(t *testing.T) {
	h := newHarness(t, "")
	h.signUp("stats@example.com")
	w, _ := h.do(http.MethodPost, "/api/v1/checkins", gin.H{"mood": 6, "stress": 3, "sleep": 7, "productivity": 6})
	require.Equal(t, http.StatusCreated, w.Code)
	lapsedAt := h.now.Add(-72 * time.Hour)
	testutil.CreateUser(t, h.db, "lapsed@example.com", 5, &lapsedAt)
	edgeAt := h.now.Add(-48 * time.Hour)
	testutil.CreateUser(t, h.db, "edge@example.com", 2, &edgeAt)

	_, env := h.do(http.MethodGet, "/api/v1/stats", nil)
	var stats map[string]int64
	decode(t, env.Data, &stats)
	assert.Equal(t, int64(3), stats["user_count"])
	assert.Equal(t, int64(1), stats["check_in_count"])
	assert.Equal(t, int64(1), stats["today_check_ins"])
	assert.Equal(t, int64(1), stats["active_streak_count"])

	w, _ = h.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = h.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "neurowell_checkin_submissions_total")

	w, env = h.do(http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40400, env.Code)

	h.cookie = nil
	w, _ = h.do(http.MethodGet, "/home/dashboard", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth", w.Header().Get("Location"))

	w, env = h.do(http.MethodGet, "/api/v1/checkins/streak", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40101, env.Code)
}
