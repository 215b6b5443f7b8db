package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(attempts int) *Client {
	return NewClient(Config{
		SigningSecret:  "test-secret",
		Timeout:        2 * time.Second,
		MaxAttempts:    attempts,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
	})
}

func TestSendSignsEvent(t *testing.T) {
	var (
		gotSig, wantSig string
		gotTS, gotEvt   string
		got             Event
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotSig = r.Header.Get(HeaderSignature)
		gotTS = r.Header.Get(HeaderTimestamp)
		gotEvt = r.Header.Get(HeaderEvent)
		_ = json.Unmarshal(body, &got)

		mac := hmac.New(sha256.New, []byte("test-secret"))
		mac.Write([]byte(gotTS + "."))
		mac.Write(body)
		wantSig = "sha256=" + hex.EncodeToString(mac.Sum(nil))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := testClient(1).Send(context.Background(), srv.URL, Event{
		Type:    EventCompleted,
		JobID:   "job-1",
		Status:  "succeeded",
		Outputs: []string{"outputs/job-1/a_1_0.png"},
		At:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if gotTS == "" {
		t.Fatal("expected timestamp header")
	}
	if gotSig != wantSig {
		t.Fatalf("expected signature %q, got %q", wantSig, gotSig)
	}
	if gotEvt != EventCompleted {
		t.Fatalf("expected event header %q, got %q", EventCompleted, gotEvt)
	}
	if got.JobID != "job-1" {
		t.Fatalf("expected job_id job-1, got %q", got.JobID)
	}
	if !slices.Equal(got.Outputs, []string{"outputs/job-1/a_1_0.png"}) {
		t.Fatalf("unexpected outputs %v", got.Outputs)
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := testClient(3).Send(context.Background(), srv.URL, Event{Type: EventFailed, JobID: "job-2"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	if err := testClient(5).Send(context.Background(), srv.URL, Event{Type: EventFailed, JobID: "job-3"}); err == nil {
		t.Fatal("expected error for 410 response")
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected 1 attempt, got %d", n)
	}
}

func TestSendSkipsEmptyEndpoint(t *testing.T) {
	if err := testClient(1).Send(context.Background(), " ", Event{Type: EventCompleted}); err != nil {
		t.Fatalf("expected no error for blank endpoint, got %v", err)
	}
}
