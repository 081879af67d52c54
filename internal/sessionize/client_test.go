package sessionize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestClient(retries int) *Client {
	return NewClient(Config{
		Timeout:    2 * time.Second,
		Retries:    retries,
		RetryDelay: time.Millisecond,
	})
}

func sessionTitles(objects []map[string]any) []string {
	out := make([]string, 0, len(objects))
	for _, o := range objects {
		title, _ := o["title"].(string)
		out = append(out, title)
	}
	return out
}

func TestFetch_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "bare array",
			body: `[{"title": "A"}, {"title": "B"}]`,
			want: []string{"A", "B"},
		},
		{
			name: "all endpoint object",
			body: `{"sessions": [{"title": "A"}], "speakers": []}`,
			want: []string{"A"},
		},
		{
			name: "grouped sessions",
			body: `[{"groupId": null, "groupName": "All", "sessions": [{"title": "A"}, {"title": "B"}]},
			        {"groupName": "Day 2", "sessions": [{"title": "C"}]}]`,
			want: []string{"A", "B", "C"},
		},
		{
			name: "empty array",
			body: `[]`,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			got, err := newTestClient(0).Fetch(context.Background(), server.URL)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, sessionTitles(got)); diff != "" {
				t.Errorf("titles mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetch_KeepsNumbers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"title": "A", "duration": 45}]`))
	}))
	defer server.Close()

	got, err := newTestClient(0).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if n, ok := got[0]["duration"].(json.Number); !ok || n.String() != "45" {
		t.Errorf("duration = %#v, want json.Number 45", got[0]["duration"])
	}
}

func TestFetch_SendsHeaders(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(Config{UserAgent: "talkshelf-test/2.0"})
	if _, err := client.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotUA != "talkshelf-test/2.0" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "talkshelf-test/2.0")
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
}

func TestFetch_RetriesTransientStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		failures  int32
		retries   int
		wantCalls int32
		wantErr   bool
	}{
		{"429 then success", http.StatusTooManyRequests, 2, 3, 3, false},
		{"503 then success", http.StatusServiceUnavailable, 1, 3, 2, false},
		{"retries exhausted", http.StatusBadGateway, 10, 2, 3, true},
		{"404 is not retried", http.StatusNotFound, 10, 3, 1, true},
		{"403 is not retried", http.StatusForbidden, 10, 3, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) <= tt.failures {
					w.WriteHeader(tt.status)
					return
				}
				w.Write([]byte(`[{"title": "ok"}]`))
			}))
			defer server.Close()

			_, err := newTestClient(tt.retries).Fetch(context.Background(), server.URL)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Fetch() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("server called %d times, want %d", got, tt.wantCalls)
			}

			if tt.wantErr {
				var statusErr *StatusError
				if !errors.As(err, &statusErr) || statusErr.StatusCode != tt.status {
					t.Errorf("error = %v, want StatusError %d", err, tt.status)
				}
			}
		})
	}
}

func TestFetch_InvalidBodies(t *testing.T) {
	bodies := map[string]string{
		"html":             `<html>maintenance</html>`,
		"empty":            ``,
		"object no list":   `{"speakers": []}`,
		"scalar":           `"sessions"`,
		"truncated":        `[{"title": "A"`,
		"group non-object": `[{"groupName": "x", "sessions": [1, 2]}]`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			_, err := newTestClient(0).Fetch(context.Background(), server.URL)
			if !errors.Is(err, ErrInvalidResponse) {
				t.Errorf("Fetch() error = %v, want ErrInvalidResponse", err)
			}
		})
	}
}

func TestFetch_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(1).Fetch(context.Background(), url)
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("Fetch() error = %v, want ErrRequestFailed", err)
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{Retries: 5, RetryDelay: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Fetch(ctx, server.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Fetch() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Fetch() took %v, should stop when ctx ends", elapsed)
	}
}

func TestStatusError_Message(t *testing.T) {
	err := &StatusError{StatusCode: 500}
	if got, want := err.Error(), "sessionize returned status 500"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
