package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"mediaintel/internal/domain/dashboard"
)

func testDashboard() *dashboard.Dashboard {
	return &dashboard.Dashboard{
		DatasetID: "ds-1",
		Summary:   dashboard.Summary{TotalMentions: 4, TotalEngagements: 380, PositiveShare: 0.5},
		Charts: []dashboard.Chart{
			{ID: "a", Title: "Platform Engagement", Insights: []string{"Facebook leads."}},
			{ID: "b", Title: "Empty", Empty: true, Insights: []string{"No data available for the current filters."}},
		},
	}
}

func TestNewSummarizerWithoutKey(t *testing.T) {
	if s := NewSummarizer(Config{}); s != nil {
		t.Fatal("expected nil summarizer without an API key")
	}
}

func TestSummarize(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) == 2 {
			prompt = req.Messages[1].Content
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Coverage was upbeat.  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	s := NewSummarizer(Config{APIKey: "test", BaseURL: srv.URL + "/v1"})
	got, err := s.Summarize(context.Background(), testDashboard())
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if got != "Coverage was upbeat." {
		t.Errorf("unexpected summary %q", got)
	}

	if !strings.Contains(prompt, "Platform Engagement: Facebook leads.") {
		t.Errorf("prompt is missing insights: %q", prompt)
	}
	if strings.Contains(prompt, "No data available") {
		t.Errorf("prompt should skip empty charts: %q", prompt)
	}
}

func TestSummarizeEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	s := NewSummarizer(Config{APIKey: "test", BaseURL: srv.URL})
	if _, err := s.Summarize(context.Background(), testDashboard()); err == nil {
		t.Fatal("expected an error for an empty response")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc"},
		{"caf\u00e9 au lait", 4, "caf"},
		{"caf\u00e9 au lait", 5, "caf\u00e9"},
		{"\u00e9\u00e9", 1, ""},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestBuildPromptKeepsRunesWhole(t *testing.T) {
	d := testDashboard()
	long := "x" + strings.Repeat("\u00e9", maxPromptLength)
	d.Charts[0].Insights = []string{long}

	prompt := buildPrompt(d)
	if len(prompt) > maxPromptLength {
		t.Errorf("prompt has %d bytes, limit is %d", len(prompt), maxPromptLength)
	}
	if !utf8.ValidString(prompt) {
		t.Error("prompt ends with a split rune")
	}
}
