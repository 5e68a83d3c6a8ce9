package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

var _ WebhookNotifier = (*webhookNotifier)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestNotifyReviewCompleted_PostsJSON はイベントがJSONでPOSTされることをテストする。
func TestNotifyReviewCompleted_PostsJSON(t *testing.T) {
	var gotMethod, gotContentType, gotHeaderID string
	var gotPayload webhookPayload

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotHeaderID = r.Header.Get("X-Delivery-ID")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	notifier := NewWebhookNotifier(ts.Client(), testLogger(), ts.URL)
	event := ReviewEvent{
		PredictionID: "pred-1",
		UserID:       "u1",
		CropType:     "wheat",
		ReviewedAt:   time.Date(2026, time.August, 10, 12, 0, 0, 0, time.UTC),
	}

	if err := notifier.NotifyReviewCompleted(context.Background(), event); err != nil {
		t.Fatalf("NotifyReviewCompleted() error = %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if gotPayload.ReviewEvent != event {
		t.Errorf("payload = %+v, want %+v", gotPayload.ReviewEvent, event)
	}
	if _, err := uuid.Parse(gotPayload.DeliveryID); err != nil {
		t.Errorf("delivery_id = %q, want a valid UUID: %v", gotPayload.DeliveryID, err)
	}
	if gotHeaderID != gotPayload.DeliveryID {
		t.Errorf("X-Delivery-ID = %q, want %q", gotHeaderID, gotPayload.DeliveryID)
	}
}

// TestNotifyReviewCompleted_UniqueDeliveryID は送信ごとにdelivery_idが変わることをテストする。
func TestNotifyReviewCompleted_UniqueDeliveryID(t *testing.T) {
	var ids []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		ids = append(ids, p.DeliveryID)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	notifier := NewWebhookNotifier(ts.Client(), testLogger(), ts.URL)
	event := ReviewEvent{PredictionID: "pred-1", UserID: "u1", CropType: "corn"}

	for i := 0; i < 2; i++ {
		if err := notifier.NotifyReviewCompleted(context.Background(), event); err != nil {
			t.Fatalf("NotifyReviewCompleted() error = %v", err)
		}
	}
	if len(ids) != 2 || ids[0] == ids[1] {
		t.Errorf("delivery IDs = %v, want two distinct IDs", ids)
	}
}

// TestNotifyReviewCompleted_ErrorStatus はエラーステータスがエラーとして返ることをテストする。
func TestNotifyReviewCompleted_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	notifier := NewWebhookNotifier(ts.Client(), testLogger(), ts.URL)
	err := notifier.NotifyReviewCompleted(context.Background(), ReviewEvent{PredictionID: "pred-1"})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

// TestNotifyReviewCompleted_DisabledWhenURLEmpty はURL未設定時に何も送信されないことをテストする。
func TestNotifyReviewCompleted_DisabledWhenURLEmpty(t *testing.T) {
	notifier := NewWebhookNotifier(http.DefaultClient, testLogger(), "")

	if notifier.Enabled() {
		t.Error("notifier with empty URL should be disabled")
	}
	if err := notifier.NotifyReviewCompleted(context.Background(), ReviewEvent{}); err != nil {
		t.Errorf("disabled notifier should be a no-op, got error: %v", err)
	}
}

// TestNotifyReviewCompleted_ContextCancelled はコンテキスト取り消しが伝播することをテストする。
func TestNotifyReviewCompleted_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	notifier := NewWebhookNotifier(ts.Client(), testLogger(), ts.URL)
	if err := notifier.NotifyReviewCompleted(ctx, ReviewEvent{PredictionID: "pred-1"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
