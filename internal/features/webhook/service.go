package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-regula/internal/common/clock"
	"go-regula/internal/common/models"
	"go-regula/internal/config"
	"go-regula/internal/features/systemlog"
	"go-regula/internal/telemetry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	userAgent       = "Regula-Webhook"
	headerEvent     = "X-Regula-Event"
	headerDelivery  = "X-Regula-Delivery"
	headerSignature = "X-Regula-Signature"
	maxResponseBody = 64 << 10
)

// WebhookService is the durable outbound delivery queue.
type WebhookService interface {
	// Enqueue stores a PENDING record due immediately. It joins the caller's
	// transaction when one is active.
	Enqueue(ctx context.Context, workflowID, url, event string, payload any) (*DeliveryRecord, error)
	ProcessBatch(ctx context.Context) (BatchResult, error)
	ListRecent(ctx context.Context, limit int) ([]RecentDelivery, error)
	Stats(ctx context.Context) (Stats, error)
}

type WebhookServiceImpl struct {
	Repo          DeliveryRepository
	HttpClient    *http.Client
	SigningSecret string
	Clock         clock.Clock
	Recorder      systemlog.Recorder
	Metrics       *telemetry.Metrics
	Logger        *zap.Logger
}

func NewWebhookService(
	repo DeliveryRepository,
	client *http.Client,
	cfg *config.Config,
	clk clock.Clock,
	recorder systemlog.Recorder,
	metrics *telemetry.Metrics,
	logger *zap.Logger,
) WebhookService {
	return &WebhookServiceImpl{
		Repo:          repo,
		HttpClient:    client,
		SigningSecret: cfg.WebhookSigningSecret,
		Clock:         clk,
		Recorder:      recorder,
		Metrics:       metrics,
		Logger:        logger,
	}
}

// NewHTTPClient returns the client used for callbacks.
func NewHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.WebhookTimeout}
}

func (s *WebhookServiceImpl) Enqueue(ctx context.Context, workflowID, url, event string, payload any) (*DeliveryRecord, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}

	now := s.Clock.Now()
	rec := &DeliveryRecord{
		ID:          uuid.NewString(),
		WorkflowID:  workflowID,
		URL:         url,
		Event:       event,
		Payload:     body,
		Status:      StatusPending,
		Attempt:     0,
		NextRetryAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ProcessBatch attempts up to BatchSize due records, oldest first. A
// failure to persist one outcome does not stop the rest of the batch.
func (s *WebhookServiceImpl) ProcessBatch(ctx context.Context) (BatchResult, error) {
	var result BatchResult

	due, err := s.Repo.ListDue(ctx, s.Clock.Now(), BatchSize)
	if err != nil {
		return result, err
	}
	result.Claimed = len(due)

	var errs []error
	for i := range due {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		rec := &due[i]

		code, sendErr := s.send(ctx, rec)
		s.applyOutcome(rec, code, sendErr)

		if err := s.Repo.UpdateOutcome(ctx, rec); err != nil {
			s.Logger.Error("Failed to persist delivery outcome",
				zap.String("delivery_id", rec.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}

		switch rec.Status {
		case StatusSuccess:
			result.Succeeded++
		case StatusAborted:
			result.Aborted++
		default:
			result.Failed++
		}
		s.Metrics.Delivery(ctx, string(rec.Status))
		s.record(rec)
	}

	return result, errors.Join(errs...)
}

// applyOutcome moves rec to its next state. Attempt counts failed sends only.
func (s *WebhookServiceImpl) applyOutcome(rec *DeliveryRecord, code int, sendErr error) {
	now := s.Clock.Now()
	rec.UpdatedAt = now
	if code != 0 {
		rec.LastStatusCode = &code
	} else {
		rec.LastStatusCode = nil
	}

	if sendErr == nil {
		rec.Status = StatusSuccess
		rec.LastError = nil
		return
	}

	rec.Attempt++
	msg := sendErr.Error()
	rec.LastError = &msg
	if rec.Attempt >= MaxAttempts {
		rec.Status = StatusAborted
		return
	}
	rec.Status = StatusFailed
	rec.NextRetryAt = now.Add(Backoff(rec.Attempt))
}

// send posts the stored payload. A non-2xx response is an error; the status
// code is returned whenever a response arrived.
func (s *WebhookServiceImpl) send(ctx context.Context, rec *DeliveryRecord) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rec.URL, bytes.NewReader(rec.Payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(headerEvent, rec.Event)
	req.Header.Set(headerDelivery, rec.ID)
	if s.SigningSecret != "" {
		req.Header.Set(headerSignature, "sha256="+Sign(s.SigningSecret, rec.Payload))
	}

	resp, err := s.HttpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *WebhookServiceImpl) record(rec *DeliveryRecord) {
	if s.Recorder == nil {
		return
	}

	meta := map[string]any{
		"deliveryId": rec.ID,
		"event":      rec.Event,
		"url":        rec.URL,
		"attempt":    rec.Attempt,
	}
	if rec.LastStatusCode != nil {
		meta["statusCode"] = *rec.LastStatusCode
	}
	if rec.LastError != nil {
		meta["error"] = *rec.LastError
	}

	var e systemlog.Event
	switch rec.Status {
	case StatusSuccess:
		e = systemlog.NewEvent(systemlog.EventWebhookSent, models.SystemActor, rec.WorkflowID, systemlog.StatusSuccess,
			fmt.Sprintf("Delivered %s to %s", rec.Event, rec.URL), meta)
	case StatusAborted:
		e = systemlog.NewEvent(systemlog.EventWebhookAborted, models.SystemActor, rec.WorkflowID, systemlog.StatusFailure,
			fmt.Sprintf("Gave up delivering %s to %s after %d attempts", rec.Event, rec.URL, rec.Attempt), meta)
	default:
		meta["nextRetryAt"] = rec.NextRetryAt.Format(time.RFC3339)
		e = systemlog.NewEvent(systemlog.EventWebhookFailed, models.SystemActor, rec.WorkflowID, systemlog.StatusFailure,
			fmt.Sprintf("Delivery of %s to %s failed, retrying", rec.Event, rec.URL), meta)
	}
	s.Recorder.Record(e)
}

func (s *WebhookServiceImpl) ListRecent(ctx context.Context, limit int) ([]RecentDelivery, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.Repo.ListRecent(ctx, limit)
}

// Stats counts records by status. Failures covers FAILED and ABORTED.
func (s *WebhookServiceImpl) Stats(ctx context.Context) (Stats, error) {
	counts, err := s.Repo.CountByStatus(ctx)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{
		Pending:   counts[StatusPending],
		Succeeded: counts[StatusSuccess],
		Aborted:   counts[StatusAborted],
		Failures:  counts[StatusFailed] + counts[StatusAborted],
	}
	for _, n := range counts {
		st.Total += n
	}
	rate := 0.0
	if st.Total > 0 {
		rate = float64(st.Failures) / float64(st.Total) * 100
	}
	st.FailureRate = fmt.Sprintf("%.1f%%", rate)
	return st, nil
}
