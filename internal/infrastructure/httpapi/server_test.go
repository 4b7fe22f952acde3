package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MorningDigest/internal/domain"
	"MorningDigest/internal/schedule"
	"MorningDigest/internal/usecase"
)

type fakeRunner struct {
	requests []usecase.RunRequest
	report   usecase.RunReport
	err      error
	issue    *domain.DigestIssue
	regenErr error
}

func (f *fakeRunner) Run(_ context.Context, req usecase.RunRequest) (usecase.RunReport, error) {
	f.requests = append(f.requests, req)
	return f.report, f.err
}

func (f *fakeRunner) Regenerate(_ context.Context, groupID string) (*domain.DigestIssue, error) {
	if f.regenErr != nil {
		return nil, f.regenErr
	}
	return f.issue, nil
}

type fakeGroups []domain.KeywordGroup

func (f fakeGroups) ListKeywordGroups(context.Context) ([]domain.KeywordGroup, error) {
	return f, nil
}

func serve(t *testing.T, s *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRunPostDefaultsBypassToSendEmails(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{report: usecase.RunReport{Stats: usecase.RunStats{GroupsProcessed: 1, Successes: 1}}}
	s := New(Options{Runner: runner})

	rec := serve(t, s, http.MethodPost, "/api/digests/run",
		`{"groupIds":["g1"],"sendEmails":true,"recipients":["a@example.com"]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, runner.requests, 1)
	req := runner.requests[0]
	assert.Equal(t, []string{"g1"}, req.GroupIDs)
	assert.True(t, req.SendEmails)
	assert.True(t, req.BypassSchedule)
	assert.Equal(t, []string{"a@example.com"}, req.Recipients)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(1), body["stats"].(map[string]any)["successes"])
}

func TestRunPostEmptyBodyAndExplicitBypass(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s := New(Options{Runner: runner})

	rec := serve(t, s, http.MethodPost, "/api/digests/run", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, s, http.MethodPost, "/api/digests/run", `{"sendEmails":true,"bypassSchedule":false}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, runner.requests, 2)
	assert.False(t, runner.requests[0].SendEmails)
	assert.False(t, runner.requests[0].BypassSchedule)
	assert.True(t, runner.requests[1].SendEmails)
	assert.False(t, runner.requests[1].BypassSchedule)
}

func TestRunPostRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s := New(Options{Runner: runner})

	rec := serve(t, s, http.MethodPost, "/api/digests/run", `{"recipients":["ok@example.com","not-an-email"]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "recipients[1] must be a valid email address")

	rec = serve(t, s, http.MethodPost, "/api/digests/run", `{"groupIds":["g1"," "]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "groupIds[1] must not be empty")

	rec = serve(t, s, http.MethodPost, "/api/digests/run", `{"groupIds":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, s, http.MethodGet, "/api/digests/run?recipients=nobody", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, runner.requests)
}

func TestRunGet(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s := New(Options{Runner: runner})

	rec := serve(t, s, http.MethodGet, "/api/digests/run?groupIds=a,,b&sendEmails=true&recipients=x@example.com,%20y@example.com", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, runner.requests, 1)
	req := runner.requests[0]
	assert.Equal(t, []string{"a", "b"}, req.GroupIDs)
	assert.True(t, req.BypassSchedule)
	assert.Equal(t, []string{"x@example.com", "y@example.com"}, req.Recipients)
}

func TestRunFailureReturns500(t *testing.T) {
	t.Parallel()

	s := New(Options{Runner: &fakeRunner{err: errors.New("database unavailable")}})
	rec := serve(t, s, http.MethodGet, "/api/digests/run", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "database unavailable")
}

func TestCronTrigger(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s := New(Options{Runner: runner, CronSecret: "s3cret"})

	rec := serve(t, s, http.MethodPost, "/api/cron/trigger", "", map[string]string{"x-cron-secret": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, runner.requests)

	rec = serve(t, s, http.MethodPost, "/api/cron/trigger", "", map[string]string{"x-cron-secret": "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, runner.requests, 1)
	assert.Equal(t, usecase.RunRequest{SendEmails: true, Trigger: "cron"}, runner.requests[0])
}

func TestCronTriggerWithoutSecret(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	s := New(Options{Runner: runner})
	rec := serve(t, s, http.MethodPost, "/api/cron/trigger", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListGroupsIncludesNextDelivery(t *testing.T) {
	t.Parallel()

	// Monday 08:30 in Seoul
	clock := schedule.FixedClock(time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC))
	groups := fakeGroups{{ID: "g1", Name: "AI", Timezone: "Asia/Seoul", SendTime: "09:00", Days: []string{"mon"}}}
	s := New(Options{Runner: &fakeRunner{}, Groups: groups, Evaluator: schedule.NewEvaluator(clock)})

	rec := serve(t, s, http.MethodGet, "/api/groups", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []struct {
			ID           string `json:"id"`
			NextDelivery string `json:"nextDelivery"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "g1", body.Data[0].ID)
	assert.Equal(t, "오늘 09:00", body.Data[0].NextDelivery)
}

func TestRegenerate(t *testing.T) {
	t.Parallel()

	ok := New(Options{Runner: &fakeRunner{issue: &domain.DigestIssue{ID: "issue-2"}}})
	rec := serve(t, ok, http.MethodPost, "/api/groups/g1/regenerate", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "issue-2")

	missing := New(Options{Runner: &fakeRunner{regenErr: domain.ErrGroupNotFound}})
	rec = serve(t, missing, http.MethodPost, "/api/groups/zzz/regenerate", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	empty := New(Options{Runner: &fakeRunner{regenErr: domain.ErrNoArticles}})
	rec = serve(t, empty, http.MethodPost, "/api/groups/g1/regenerate", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	s := New(Options{Runner: &fakeRunner{}})
	assert.Equal(t, http.StatusOK, serve(t, s, http.MethodGet, "/healthz", "", nil).Code)

	rec := serve(t, s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
