package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/transcriptgpa/internal/domain/transcript/prereq"
)

func newTestClient(t *testing.T, h http.HandlerFunc, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", Model: "mistral", Timeout: 5 * time.Second, MaxRetries: retries}, zerolog.Nop())
}

func TestExtractCoursesSendsInstructionAndText(t *testing.T) {
	var got generateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Fatalf("path: want=/api/generate got=%s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Response: `[{"course_code":"MATH 163"}]`, Done: true})
	}, 0)

	out, err := c.ExtractCourses(context.Background(), "MATH 163 Stats 3 A", "Extract courses.")
	if err != nil {
		t.Fatalf("ExtractCourses: %v", err)
	}
	if string(out) != `[{"course_code":"MATH 163"}]` {
		t.Fatalf("answer: got=%s", out)
	}
	if got.Model != "mistral" || got.Stream {
		t.Fatalf("request: want model=mistral stream=false got=%+v", got)
	}
	if got.Prompt != "Extract courses.\n\nMATH 163 Stats 3 A" {
		t.Fatalf("prompt: got=%q", got.Prompt)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "ok", Done: true})
	}, 2)

	out, err := c.Generate(context.Background(), "", "hi", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "ok" || calls.Load() != 2 {
		t.Fatalf("retry: want=ok/2 got=%s/%d", out, calls.Load())
	}
}

func TestClientReturnsHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}, 3)

	_, err := c.Generate(context.Background(), "", "hi", "")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("want *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Fatalf("status: want=404 got=%d", httpErr.StatusCode)
	}
}

func TestScorerParsesJudgment(t *testing.T) {
	tests := []struct {
		name     string
		answer   string
		score    float64
		category string
		wantErr  bool
	}{
		{"well formed", `{"score":0.82,"category":"Strong","rationale":"same topic"}`, 0.82, prereq.CategoryStrong, false},
		{"clamped with derived category", `{"score":1.7,"category":"excellent"}`, 1, prereq.CategoryStrong, false},
		{"weak", `{"score":0.1,"category":"weak"}`, 0.1, prereq.CategoryWeak, false},
		{"not json", `maybe`, 0, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var req generateRequest
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&req)
				_ = json.NewEncoder(w).Encode(generateResponse{Response: tc.answer, Done: true})
			}, 0)

			j, err := NewScorer(c).Score(context.Background(), "MATH 163 - Statistics", "STAT 200 - Intro Stats")
			if tc.wantErr {
				if err == nil {
					t.Fatalf("want error, got %+v", j)
				}
				return
			}
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if req.Format != "json" {
				t.Fatalf("format: want=json got=%q", req.Format)
			}
			if j.Score != tc.score || j.Category != tc.category {
				t.Fatalf("judgment: want=%v/%s got=%v/%s", tc.score, tc.category, j.Score, j.Category)
			}
		})
	}
}
