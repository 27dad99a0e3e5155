package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"memoria.io/portal/internal/api/handlers"
	"memoria.io/portal/internal/api/middleware"
	"memoria.io/portal/internal/config"
	"memoria.io/portal/internal/counts"
	"memoria.io/portal/internal/domain"
	"memoria.io/portal/internal/moderation"
	"memoria.io/portal/internal/notification"
	"memoria.io/portal/internal/pkg/logger"
	"memoria.io/portal/internal/pkg/worker"
	"memoria.io/portal/internal/refresh"
	"memoria.io/portal/internal/registry"
	"memoria.io/portal/internal/taxonomy"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

type testEnv struct {
	router     *gin.Engine
	reg        *registry.MemoryRegistry
	store      *notification.MemoryStore
	bc         *refresh.Broadcaster
	token      string
	adminToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	pools, err := worker.NewPools(context.Background(), worker.DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(pools.Shutdown)

	reg := registry.NewMemoryRegistry()
	store := notification.NewMemoryStore()
	projector := counts.NewProjector(reg)
	bc := refresh.NewBroadcaster(64)
	coordinator := refresh.NewCoordinator(reg, projector, bc, pools, config.RefreshConfig{
		PollInterval: time.Hour,
		MaxBackoff:   time.Hour,
		BufferSize:   64,
	})
	dispatcher := notification.NewDispatcher(store)
	gateway := moderation.NewGateway(reg, projector, dispatcher, coordinator)

	taxonomies := taxonomy.NewCache()
	tax, err := taxonomy.New(taxonomy.Document{
		PeriodID: "period-2026",
		Departments: []taxonomy.Department{{
			Name:       "College of Computing",
			Programs:   []string{"BSIT"},
			YearLevels: []string{"1st Year"},
			Sections: []taxonomy.SectionGroup{
				{Program: "BSIT", YearLevel: "1st Year", Sections: []string{"A", "B"}},
			},
		}},
	})
	require.NoError(t, err)
	taxonomies.Put(tax)

	jwtCfg := middleware.JWTConfig{
		SigningKey: []byte("router-test-signing-key-0123456789ab"),
		Issuer:     "memoria-portal",
		ExpiresIn:  time.Hour,
	}
	server := handlers.NewServer(handlers.ServerDeps{
		Registry:    reg,
		Gateway:     gateway,
		Projector:   projector,
		Store:       store,
		Dispatcher:  dispatcher,
		Taxonomies:  taxonomies,
		Broadcaster: bc,
		Pools:       pools,
		JWTCfg:      jwtCfg,
	})

	token, _, err := middleware.GenerateToken(jwtCfg, "rev-1", "alice", []string{"moderator"})
	require.NoError(t, err)
	adminToken, _, err := middleware.GenerateToken(jwtCfg, "rev-0", "root", []string{"admin"})
	require.NoError(t, err)

	return &testEnv{
		router:     newRouter(server, jwtCfg.SigningKey),
		reg:        reg,
		store:      store,
		bc:         bc,
		token:      token,
		adminToken: adminToken,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return e.doAs(t, e.token, method, path, body)
}

func (e *testEnv) doAs(t *testing.T, token, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seed(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, e.reg.Create(context.Background(), &domain.Submission{
		ID:          id,
		PeriodID:    "period-2026",
		Status:      domain.StatusPending,
		SubmittedAt: time.Now(),
		Subject: domain.Subject{
			Role:    domain.RoleStudent,
			Student: &domain.StudentProfile{FullName: "Juan Dela Cruz", Department: "College of Computing"},
		},
	}))
}

func TestRoutesRequireAuthentication(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/periods/period-2026/submissions", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Health stays public.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestIssueTokenGrantsAccess(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token",
		strings.NewReader(`{"reviewer_id":"rev-9","username":"bob"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/reason-codes", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestModerationFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "sub-1")

	// Reject with an urgent reason.
	w := env.do(t, http.MethodPost, "/api/v1/submissions/sub-1/reject",
		`{"reasons":["INAPPROPRIATE_CONTENT"],"note":""}`)
	require.Equal(t, http.StatusOK, w.Code)

	var rejected domain.Submission
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rejected))
	require.Equal(t, domain.StatusRejected, rejected.Status)
	require.Equal(t, "rev-1", rejected.ReviewedBy, "reviewer comes from the token")

	// The owner's inbox received an urgent moderation notice.
	w = env.doAs(t, env.adminToken, http.MethodGet, "/api/v1/notifications?scope=subject:sub-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var inbox struct {
		Items []domain.Notification `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inbox))
	require.Len(t, inbox.Items, 1)
	require.Equal(t, domain.CategoryModeration, inbox.Items[0].Category)
	require.Equal(t, domain.PriorityUrgent, inbox.Items[0].Priority)

	// Counts reflect the decision.
	w = env.do(t, http.MethodGet, "/api/v1/periods/period-2026/counts", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.EqualValues(t, 1, snap["rejected"])
	require.EqualValues(t, 0, snap["pending"])

	// Second decision on a decided submission conflicts.
	w = env.do(t, http.MethodPost, "/api/v1/submissions/sub-1/approve", "")
	require.Equal(t, http.StatusConflict, w.Code)

	// Reopen puts it back in the queue and archives the rejection.
	w = env.do(t, http.MethodPost, "/api/v1/submissions/sub-1/reopen", "")
	require.Equal(t, http.StatusOK, w.Code)
	var reopened domain.Submission
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reopened))
	require.Equal(t, domain.StatusPending, reopened.Status)
	require.Equal(t, 1, reopened.ReviewCycle)

	w = env.do(t, http.MethodGet, "/api/v1/submissions/sub-1/archive", "")
	require.Equal(t, http.StatusOK, w.Code)
	var archive struct {
		Items []domain.ArchivedDecision `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &archive))
	require.Len(t, archive.Items, 1)
	require.Equal(t, domain.StatusRejected, archive.Items[0].Outcome)
}

func TestRejectWithoutReasonsIsRefused(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "sub-1")

	w := env.do(t, http.MethodPost, "/api/v1/submissions/sub-1/reject",
		`{"reasons":[],"note":""}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "EMPTY_REASON_SET", body["code"])

	w = env.do(t, http.MethodGet, "/api/v1/submissions/sub-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var sub domain.Submission
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
	require.Equal(t, domain.StatusPending, sub.Status)
}

func TestSubmissionListFiltering(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "sub-1")
	env.seed(t, "sub-2")

	w := env.do(t, http.MethodPost, "/api/v1/submissions/sub-1/approve", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/periods/period-2026/submissions?status=PENDING", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Items []domain.Submission `json:"items"`
		Total int                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Equal(t, 1, listing.Total)
	require.Equal(t, "sub-2", listing.Items[0].ID)

	w = env.do(t, http.MethodGet, "/api/v1/periods/period-2026/submissions?status=BOGUS", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationEndpointsAreScopedToCaller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// One record for the caller's scope, one for someone else.
	require.NoError(t, env.store.Insert(ctx, &domain.Notification{
		ID: "n-mine", Scope: "reviewer:rev-1", PeriodID: "period-2026",
		Category: domain.CategoryGeneral, Priority: domain.PriorityLow,
		RenderedTitle: "t", RenderedBody: "b", CreatedAt: time.Now(),
	}))
	require.NoError(t, env.store.Insert(ctx, &domain.Notification{
		ID: "n-other", Scope: "reviewer:rev-2", PeriodID: "period-2026",
		Category: domain.CategoryGeneral, Priority: domain.PriorityLow,
		RenderedTitle: "t", RenderedBody: "b", CreatedAt: time.Now(),
	}))

	w := env.do(t, http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Items []domain.Notification `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Len(t, listing.Items, 1)
	require.Equal(t, "n-mine", listing.Items[0].ID)

	w = env.do(t, http.MethodGet, "/api/v1/notifications/unread-count", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"count":1}`, w.Body.String())

	// The caller cannot touch another scope's record.
	w = env.do(t, http.MethodPost, "/api/v1/notifications/n-other/read", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/notifications/n-mine/read", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"deleted":1}`, w.Body.String())

	other, err := env.store.List(ctx, "reviewer:rev-2", notification.ListFilter{})
	require.NoError(t, err)
	require.Len(t, other, 1, "other scope untouched by bulk delete")
}

func TestNotificationScopeParameterAccess(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "sub-1")

	w := env.do(t, http.MethodPost, "/api/v1/submissions/sub-1/reject",
		`{"reasons":["INVALID_FORMAT"],"note":""}`)
	require.Equal(t, http.StatusOK, w.Code)

	// A reviewer cannot name an owner inbox or another reviewer's inbox.
	for _, scope := range []string{"subject:sub-1", "reviewer:rev-2"} {
		w = env.do(t, http.MethodGet, "/api/v1/notifications?scope="+scope, "")
		require.Equal(t, http.StatusForbidden, w.Code, "scope %s", scope)
	}

	// Naming your own inbox explicitly is the same as naming none.
	w = env.do(t, http.MethodGet, "/api/v1/notifications?scope=reviewer:rev-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	// Admins may read any scope, including the owner's inbox.
	w = env.doAs(t, env.adminToken, http.MethodGet, "/api/v1/notifications?scope=subject:sub-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var inbox struct {
		Items []domain.Notification `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inbox))
	require.Len(t, inbox.Items, 1)
	require.Equal(t, domain.CategoryModeration, inbox.Items[0].Category)
}

func TestTaxonomyEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet,
		"/api/v1/periods/period-2026/taxonomy?department=College+of+Computing&program=BSIT&yearLevel=1st+Year", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Departments []string `json:"departments"`
		Programs    []string `json:"programs"`
		Sections    []string `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, []string{"College of Computing"}, body.Departments)
	require.Equal(t, []string{"BSIT"}, body.Programs)
	require.Equal(t, []string{"A", "B"}, body.Sections)

	w = env.do(t, http.MethodPost, "/api/v1/periods/period-2026/taxonomy/resolve",
		`{"field":"department","newValue":"College of Computing","selection":{"department":"","program":"BSCS","yearLevel":"1st Year","section":"A"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resolved struct {
		Selection taxonomy.Selection `json:"selection"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resolved))
	require.Equal(t, "College of Computing", resolved.Selection.Department)
	require.Empty(t, resolved.Selection.Program, "BSCS is not offered here")
	require.Equal(t, "1st Year", resolved.Selection.YearLevel)

	w = env.do(t, http.MethodGet, "/api/v1/periods/period-1999/taxonomy", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegistryEventWebhook(t *testing.T) {
	env := newTestEnv(t)

	sub := env.bc.Subscribe(refresh.TopicCounts)
	defer env.bc.Unsubscribe(sub)

	w := env.do(t, http.MethodPost, "/api/v1/registry-events",
		`{"kind":"SUBMISSION_CREATED","submission_id":"sub-7","period_id":"period-2026","subject_name":"Maria Clara"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	// The review team's shared inbox is readable by any reviewer.
	w = env.do(t, http.MethodGet, "/api/v1/notifications?scope=reviewers:period-2026", "")
	require.Equal(t, http.StatusOK, w.Code)
	var inbox struct {
		Items []domain.Notification `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inbox))
	require.Len(t, inbox.Items, 1)
	require.Equal(t, domain.CategoryGeneral, inbox.Items[0].Category)

	select {
	case sig := <-sub.C:
		require.Equal(t, "period-2026", sig.PeriodID)
	default:
		t.Fatal("expected a counts signal from the webhook")
	}

	w = env.do(t, http.MethodPost, "/api/v1/registry-events", `{"kind":"NOPE","submission_id":"s","period_id":"p"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminPurgeRequiresAdminRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Insert(ctx, &domain.Notification{
		ID: "n-1", Scope: "reviewer:rev-1", PeriodID: "period-2026",
		Category: domain.CategoryGeneral, Priority: domain.PriorityLow,
		RenderedTitle: "t", RenderedBody: "b", CreatedAt: time.Now(),
	}))

	// The default test token only carries the moderator role.
	w := env.do(t, http.MethodDelete, "/api/v1/system/notifications", "")
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.doAs(t, env.adminToken, http.MethodDelete, "/api/v1/system/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"deleted":1}`, w.Body.String())
}

func TestWorkerMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/system/workers", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Contains(t, body, "pools")
}
