package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "github.com/louisbranch/fieldschool/internal/platform/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{
		BaseURL:     srv.URL,
		APIKey:      "anon-key",
		AccessToken: "user-token",
		HTTPClient:  srv.Client(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for empty base url")
	}
	if _, err := NewClient(Config{BaseURL: "ftp://example.com"}); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestListLessonsSendsQueryAndHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/lessons" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/rest/v1/lessons")
		}
		if got := r.URL.Query().Get("language"); got != "eq.pt-BR" {
			t.Errorf("language = %q, want %q", got, "eq.pt-BR")
		}
		if got := r.URL.Query().Get("order"); got != "position.asc" {
			t.Errorf("order = %q, want %q", got, "position.asc")
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("apikey = %q, want %q", got, "anon-key")
		}
		if got := r.Header.Get("Authorization"); got != "Bearer user-token" {
			t.Errorf("authorization = %q, want %q", got, "Bearer user-token")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"l1","title":"Solo","language":"pt-BR","position":1,"points":10}]`))
	})

	lessons, err := client.ListLessons(context.Background(), "pt-BR")
	if err != nil {
		t.Fatalf("list lessons: %v", err)
	}
	if len(lessons) != 1 {
		t.Fatalf("lessons = %d, want 1", len(lessons))
	}
	if lessons[0].ID != "l1" || lessons[0].Points != 10 {
		t.Fatalf("lesson = %+v", lessons[0])
	}
}

func TestBearerFallsBackToAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer anon-key" {
			t.Errorf("authorization = %q, want %q", got, "Bearer anon-key")
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "anon-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.ListQuests(context.Background(), "en"); err != nil {
		t.Fatalf("list quests: %v", err)
	}
}

func TestListQuestsDecodesLessonIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/quests" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/rest/v1/quests")
		}
		_, _ = w.Write([]byte(`[{"id":"q1","title":"Water","reward_points":50,"lesson_ids":["l1","l2"]}]`))
	})

	quests, err := client.ListQuests(context.Background(), "en")
	if err != nil {
		t.Fatalf("list quests: %v", err)
	}
	if len(quests) != 1 || len(quests[0].LessonIDs) != 2 || quests[0].RewardPoints != 50 {
		t.Fatalf("quests = %+v", quests)
	}
}

func TestGetProfile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("user_id"); got != "eq.user-1" {
			t.Errorf("user_id = %q, want %q", got, "eq.user-1")
		}
		_, _ = w.Write([]byte(`[{"user_id":"user-1","display_name":"Amina","score":120,"level":3}]`))
	})

	profile, err := client.GetProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.DisplayName != "Amina" || profile.Score != 120 {
		t.Fatalf("profile = %+v", profile)
	}
}

func TestGetProfileMissingIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := client.GetProfile(context.Background(), "ghost")
	if got := apperrors.CodeOf(err); got != apperrors.CodeBackendNotFound {
		t.Fatalf("code = %q, want %q", got, apperrors.CodeBackendNotFound)
	}
}

func TestListCompletionsOrdersNewestFirst(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/lesson_completions" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/rest/v1/lesson_completions")
		}
		if got := r.URL.Query().Get("order"); got != "completed_at.desc" {
			t.Errorf("order = %q, want %q", got, "completed_at.desc")
		}
		_, _ = w.Write([]byte(`[{"user_id":"u","lesson_id":"l1","score":9,"completed_at":"2026-03-01T10:00:00Z"}]`))
	})

	completions, err := client.ListCompletions(context.Background(), "u")
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if len(completions) != 1 || !completions[0].CompletedAt.Equal(want) {
		t.Fatalf("completions = %+v", completions)
	}
}

func TestStatusCodesMapToErrorCodes(t *testing.T) {
	cases := map[int]apperrors.Code{
		http.StatusUnauthorized:        apperrors.CodeBackendUnauthorized,
		http.StatusNotFound:            apperrors.CodeBackendNotFound,
		http.StatusServiceUnavailable:  apperrors.CodeBackendUnavailable,
		http.StatusBadRequest:          apperrors.CodeBackendBadResponse,
		http.StatusInternalServerError: apperrors.CodeBackendUnavailable,
	}
	for status, want := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", status)
		})
		_, err := client.ListLessons(context.Background(), "en")
		if got := apperrors.CodeOf(err); got != want {
			t.Fatalf("status %d: code = %q, want %q", status, got, want)
		}
		if !strings.Contains(err.Error(), "list lessons") {
			t.Fatalf("error = %q, want list lessons context", err.Error())
		}
	}
}

func TestMalformedBodyIsBadResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})

	_, err := client.ListLessons(context.Background(), "en")
	if !errors.Is(err, apperrors.New(apperrors.CodeBackendBadResponse, "")) {
		t.Fatalf("error = %v, want bad response", err)
	}
}

func TestUnreachableBackendIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client, err := NewClient(Config{BaseURL: url, Timeout: time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.ListLessons(context.Background(), "en")
	if got := apperrors.CodeOf(err); got != apperrors.CodeBackendUnavailable {
		t.Fatalf("code = %q, want %q", got, apperrors.CodeBackendUnavailable)
	}
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	client, err := func() (*Client, error) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(srv.Close)
		t.Cleanup(func() { close(release) })
		return NewClient(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	}()
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.ListLessons(context.Background(), "en")
	if got := apperrors.CodeOf(err); got != apperrors.CodeBackendUnavailable {
		t.Fatalf("code = %q, want %q", got, apperrors.CodeBackendUnavailable)
	}
}
