package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-regula/internal/common/clock"
	"go-regula/internal/database"
	"go-regula/internal/features/systemlog"
	"go-regula/internal/testsupport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	db       *database.Database
	clock    *clock.Fake
	recorder *systemlog.MemoryRecorder
	svc      *WebhookServiceImpl
}

func newFixture(t *testing.T, secret string) *fixture {
	t.Helper()
	db := testsupport.MustOpenDB(t)
	clk := testsupport.NewClock()
	rec := &systemlog.MemoryRecorder{}

	now := database.FormatTime(clk.Now())
	_, err := db.Exec(context.Background(),
		`INSERT INTO workflows (id, title, status, step_start_time, is_escalated, requester_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, "wf-1", "Laptop purchase", "SUBMITTED", now, false, "u1", now, now)
	require.NoError(t, err)

	return &fixture{
		db:       db,
		clock:    clk,
		recorder: rec,
		svc: &WebhookServiceImpl{
			Repo:          NewDeliveryRepository(db),
			HttpClient:    &http.Client{Timeout: 2 * time.Second},
			SigningSecret: secret,
			Clock:         clk,
			Recorder:      rec,
			Logger:        zap.NewNop(),
		},
	}
}

func (f *fixture) get(t *testing.T, id string) DeliveryRecord {
	t.Helper()
	recent, err := f.svc.Repo.ListRecent(context.Background(), 100)
	require.NoError(t, err)
	for _, r := range recent {
		if r.ID == id {
			return r.DeliveryRecord
		}
	}
	t.Fatalf("delivery %s not found", id)
	return DeliveryRecord{}
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Minute, Backoff(1))
	assert.Equal(t, 4*time.Minute, Backoff(2))
	assert.Equal(t, 8*time.Minute, Backoff(3))
	assert.Equal(t, 16*time.Minute, Backoff(4))
}

func TestDeliverySuccess(t *testing.T) {
	var (
		mu      sync.Mutex
		headers http.Header
		body    []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		headers = r.Header.Clone()
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	f := newFixture(t, "")
	ctx := context.Background()
	rec, err := f.svc.Enqueue(ctx, "wf-1", srv.URL, "workflow.submit", map[string]string{"hello": "world"})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rec.Status)
	assert.Zero(t, rec.Attempt)

	res, err := f.svc.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Claimed: 1, Succeeded: 1}, res)

	got := f.get(t, rec.ID)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.Zero(t, got.Attempt, "a successful send is not a failed attempt")
	require.NotNil(t, got.LastStatusCode)
	assert.Equal(t, http.StatusNoContent, *got.LastStatusCode)
	assert.Nil(t, got.LastError)

	mu.Lock()
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "Regula-Webhook", headers.Get("User-Agent"))
	assert.Equal(t, "workflow.submit", headers.Get("X-Regula-Event"))
	assert.Equal(t, rec.ID, headers.Get("X-Regula-Delivery"))
	assert.Empty(t, headers.Get("X-Regula-Signature"))
	assert.JSONEq(t, `{"hello":"world"}`, string(body))
	mu.Unlock()

	assert.Len(t, f.recorder.OfType(systemlog.EventWebhookSent), 1)

	res, err = f.svc.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Claimed, "a delivered record is never retried")
}

func TestDeliverySignsPayload(t *testing.T) {
	var sig atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		sig.Store(r.Header.Get("X-Regula-Signature") + "|" + Sign("s3cret", body))
	}))
	defer srv.Close()

	f := newFixture(t, "s3cret")
	_, err := f.svc.Enqueue(context.Background(), "wf-1", srv.URL, "workflow.approve", map[string]int{"n": 1})
	require.NoError(t, err)
	_, err = f.svc.ProcessBatch(context.Background())
	require.NoError(t, err)

	header, want, ok := strings.Cut(sig.Load().(string), "|")
	require.True(t, ok)
	assert.Equal(t, "sha256="+want, header)
}

func TestFailureBacksOffThenAborts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newFixture(t, "")
	ctx := context.Background()
	rec, err := f.svc.Enqueue(ctx, "wf-1", srv.URL, "workflow.reject", map[string]string{})
	require.NoError(t, err)

	for attempt := 1; attempt < MaxAttempts; attempt++ {
		res, err := f.svc.ProcessBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Failed, "attempt %d", attempt)

		got := f.get(t, rec.ID)
		assert.Equal(t, StatusFailed, got.Status)
		assert.Equal(t, attempt, got.Attempt)
		assert.True(t, got.NextRetryAt.Equal(f.clock.Now().Add(Backoff(attempt))),
			"attempt %d: next retry %s", attempt, got.NextRetryAt)
		require.NotNil(t, got.LastStatusCode)
		assert.Equal(t, http.StatusInternalServerError, *got.LastStatusCode)
		require.NotNil(t, got.LastError)

		// not due yet
		f.clock.Advance(Backoff(attempt) - time.Second)
		res, err = f.svc.ProcessBatch(ctx)
		require.NoError(t, err)
		assert.Zero(t, res.Claimed)

		f.clock.Advance(time.Second)
	}

	res, err := f.svc.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Aborted)

	got := f.get(t, rec.ID)
	assert.Equal(t, StatusAborted, got.Status)
	assert.Equal(t, MaxAttempts, got.Attempt)
	assert.Equal(t, int32(MaxAttempts), calls.Load())

	f.clock.Advance(24 * time.Hour)
	res, err = f.svc.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Claimed, "aborted records are terminal")

	assert.Len(t, f.recorder.OfType(systemlog.EventWebhookFailed), MaxAttempts-1)
	assert.Len(t, f.recorder.OfType(systemlog.EventWebhookAborted), 1)
}

func TestRetryThenSuccessKeepsFailureCount(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := newFixture(t, "")
	ctx := context.Background()
	rec, err := f.svc.Enqueue(ctx, "wf-1", srv.URL, "workflow.approve", map[string]string{})
	require.NoError(t, err)

	res, err := f.svc.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	f.clock.Advance(Backoff(1))
	res, err = f.svc.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)

	got := f.get(t, rec.ID)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.Equal(t, 1, got.Attempt)
	assert.Nil(t, got.LastError)
	require.NotNil(t, got.LastStatusCode)
	assert.Equal(t, http.StatusOK, *got.LastStatusCode)
}

func TestUnreachableEndpointRecordsNoStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := newFixture(t, "")
	rec, err := f.svc.Enqueue(context.Background(), "wf-1", url, "workflow.submit", map[string]string{})
	require.NoError(t, err)

	_, err = f.svc.ProcessBatch(context.Background())
	require.NoError(t, err)

	got := f.get(t, rec.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Nil(t, got.LastStatusCode)
	assert.NotNil(t, got.LastError)
}

func TestBatchIsLimitedAndOldestFirst(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		order = append(order, r.Header.Get("X-Regula-Delivery"))
		mu.Unlock()
	}))
	defer srv.Close()

	f := newFixture(t, "")
	ctx := context.Background()
	var ids []string
	for i := 0; i < BatchSize+3; i++ {
		rec, err := f.svc.Enqueue(ctx, "wf-1", srv.URL, "workflow.submit", map[string]int{"i": i})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
		f.clock.Advance(time.Second)
	}

	res, err := f.svc.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, BatchSize, res.Claimed)
	assert.Equal(t, ids[:BatchSize], order)

	res, err = f.svc.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Claimed)
}

func TestEnqueueJoinsTransaction(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	err := f.db.WithTx(ctx, func(ctx context.Context) error {
		_, err := f.svc.Enqueue(ctx, "wf-1", "http://example.invalid", "workflow.submit", map[string]string{})
		require.NoError(t, err)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	st, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Total)
}

func TestStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Regula-Event") == "workflow.reject" {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	f := newFixture(t, "")
	ctx := context.Background()
	for _, ev := range []string{"workflow.submit", "workflow.approve", "workflow.execute", "workflow.reject"} {
		_, err := f.svc.Enqueue(ctx, "wf-1", srv.URL, ev, map[string]string{})
		require.NoError(t, err)
	}
	_, err := f.svc.ProcessBatch(ctx)
	require.NoError(t, err)

	st, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 3, st.Succeeded)
	assert.Equal(t, 1, st.Failures)
	assert.Equal(t, "25.0%", st.FailureRate)

	recent, err := f.svc.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 4)
	assert.Equal(t, "Laptop purchase", recent[0].WorkflowTitle)
}
