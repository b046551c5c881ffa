package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/louisbranch/fieldschool/internal/platform/cachedquery"
	apperrors "github.com/louisbranch/fieldschool/internal/platform/errors"
	"github.com/louisbranch/fieldschool/internal/platform/i18n"
	"github.com/louisbranch/fieldschool/internal/services/hub/backend"
)

// Backend is the read surface the dashboard fetches from.
type Backend interface {
	ListLessons(ctx context.Context, language string) ([]backend.Lesson, error)
	ListQuests(ctx context.Context, language string) ([]backend.Quest, error)
	GetProfile(ctx context.Context, userID string) (backend.Profile, error)
	ListCompletions(ctx context.Context, userID string) ([]backend.Completion, error)
}

// DashboardConfig wires a Dashboard.
type DashboardConfig struct {
	Store   cachedquery.Store
	Backend Backend
	UserID  string
	// Language is resolved through i18n.Resolve.
	Language string
	// RequestTimeout caps each producer call. Zero disables the cap.
	RequestTimeout time.Duration
	// Fenced discards results of superseded attempts in every query.
	Fenced bool
	Logf   func(string, ...any)
}

// Dashboard keeps one cached query per dashboard feature.
type Dashboard struct {
	backend Backend
	userID  string
	timeout time.Duration
	logf    func(string, ...any)

	mu       sync.Mutex
	language language.Tag

	lessons     *cachedquery.Query[[]backend.Lesson]
	quests      *cachedquery.Query[[]backend.Quest]
	profile     *cachedquery.Query[backend.Profile]
	completions *cachedquery.Query[[]backend.Completion]
}

// View is the merged dashboard state.
type View struct {
	Language    string               `json:"language"`
	UserID      string               `json:"user_id"`
	Lessons     []backend.Lesson     `json:"lessons"`
	Quests      []QuestView          `json:"quests"`
	Profile     *backend.Profile     `json:"profile,omitempty"`
	Completions []backend.Completion `json:"completions"`
	Progress    Progress             `json:"progress"`
	Offline     bool                 `json:"offline"`
	Loading     bool                 `json:"loading"`
	Refreshing  bool                 `json:"refreshing"`
	Notice      string               `json:"notice,omitempty"`
}

// NewDashboard builds the feature queries. Nothing is fetched until Load.
func NewDashboard(cfg DashboardConfig) (*Dashboard, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("dashboard backend is required")
	}
	userID := strings.TrimSpace(cfg.UserID)
	if userID == "" {
		return nil, fmt.Errorf("dashboard user id is required")
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	d := &Dashboard{
		backend:  cfg.Backend,
		userID:   userID,
		timeout:  cfg.RequestTimeout,
		logf:     cfg.Logf,
		language: i18n.Resolve(cfg.Language),
	}

	var err error
	d.lessons, err = cachedquery.New(LessonsKey(d.language), d.lessonsProducer(d.language), cachedquery.Options[[]backend.Lesson]{
		Store: cfg.Store, Fenced: cfg.Fenced, Logf: cfg.Logf,
	})
	if err != nil {
		return nil, fmt.Errorf("lessons query: %w", err)
	}
	d.quests, err = cachedquery.New(QuestsKey(d.language), d.questsProducer(d.language), cachedquery.Options[[]backend.Quest]{
		Store: cfg.Store, Fenced: cfg.Fenced, Logf: cfg.Logf,
	})
	if err != nil {
		return nil, fmt.Errorf("quests query: %w", err)
	}
	d.profile, err = cachedquery.New(ProfileKey(userID), d.profileProducer(), cachedquery.Options[backend.Profile]{
		Store: cfg.Store, Fenced: cfg.Fenced, Logf: cfg.Logf,
	})
	if err != nil {
		return nil, fmt.Errorf("profile query: %w", err)
	}
	d.completions, err = cachedquery.New(CompletionsKey(userID), d.completionsProducer(), cachedquery.Options[[]backend.Completion]{
		Store: cfg.Store, Fenced: cfg.Fenced, Logf: cfg.Logf,
	})
	if err != nil {
		return nil, fmt.Errorf("completions query: %w", err)
	}
	return d, nil
}

// Load runs the automatic load of every feature and waits for all of them.
func (d *Dashboard) Load(ctx context.Context) error {
	return waitAll(ctx,
		d.lessons.Activate(ctx),
		d.quests.Activate(ctx),
		d.profile.Activate(ctx),
		d.completions.Activate(ctx),
	)
}

// Refresh reloads every feature while keeping current values visible.
func (d *Dashboard) Refresh(ctx context.Context) error {
	return waitAll(ctx,
		d.lessons.Refresh(ctx),
		d.quests.Refresh(ctx),
		d.profile.Refresh(ctx),
		d.completions.Refresh(ctx),
	)
}

// SetLanguage switches the language-scoped features to value and waits for
// their fresh load. Profile and completions are untouched.
func (d *Dashboard) SetLanguage(ctx context.Context, value string) error {
	tag := i18n.Resolve(value)
	d.mu.Lock()
	d.language = tag
	d.mu.Unlock()

	return waitAll(ctx,
		d.lessons.SetKey(ctx, LessonsKey(tag), d.lessonsProducer(tag)),
		d.quests.SetKey(ctx, QuestsKey(tag), d.questsProducer(tag)),
	)
}

// Language returns the resolved content language.
func (d *Dashboard) Language() language.Tag {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.language
}

// View merges the feature snapshots.
func (d *Dashboard) View() View {
	tag := d.Language()
	lessons := d.lessons.Snapshot()
	quests := d.quests.Snapshot()
	profile := d.profile.Snapshot()
	completions := d.completions.Snapshot()

	progress, questViews := ComputeProgress(lessons.Data, quests.Data, completions.Data)
	view := View{
		Language:    tag.String(),
		UserID:      d.userID,
		Lessons:     nonNil(lessons.Data),
		Quests:      questViews,
		Completions: nonNil(completions.Data),
		Progress:    progress,
		Offline:     lessons.Offline || quests.Offline || profile.Offline || completions.Offline,
		Loading:     lessons.Loading || quests.Loading || profile.Loading || completions.Loading,
		Refreshing:  lessons.Refreshing || quests.Refreshing || profile.Refreshing || completions.Refreshing,
	}
	if profile.HasData {
		p := profile.Data
		view.Profile = &p
	}
	if view.Offline {
		hasData := lessons.HasData || quests.HasData || profile.HasData || completions.HasData
		notice := i18n.NoticeNoData
		if hasData {
			notice = i18n.NoticeOffline
		}
		view.Notice = i18n.Printer(tag).Sprintf(notice)
	}
	return view
}

// Close tears down every feature query.
func (d *Dashboard) Close() {
	d.lessons.Close()
	d.quests.Close()
	d.profile.Close()
	d.completions.Close()
}

func (d *Dashboard) lessonsProducer(tag language.Tag) cachedquery.Producer[[]backend.Lesson] {
	lang := tag.String()
	return producer(d, "lessons", func(ctx context.Context) ([]backend.Lesson, error) {
		return d.backend.ListLessons(ctx, lang)
	})
}

func (d *Dashboard) questsProducer(tag language.Tag) cachedquery.Producer[[]backend.Quest] {
	lang := tag.String()
	return producer(d, "quests", func(ctx context.Context) ([]backend.Quest, error) {
		return d.backend.ListQuests(ctx, lang)
	})
}

func (d *Dashboard) profileProducer() cachedquery.Producer[backend.Profile] {
	return producer(d, "profile", func(ctx context.Context) (backend.Profile, error) {
		return d.backend.GetProfile(ctx, d.userID)
	})
}

func (d *Dashboard) completionsProducer() cachedquery.Producer[[]backend.Completion] {
	return producer(d, "completions", func(ctx context.Context) ([]backend.Completion, error) {
		return d.backend.ListCompletions(ctx, d.userID)
	})
}

// producer applies the request timeout and logs failures, which cached
// queries otherwise absorb into the offline flag.
func producer[T any](d *Dashboard, feature string, fetch func(context.Context) (T, error)) cachedquery.Producer[T] {
	return func(ctx context.Context) (T, error) {
		if d.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}
		value, err := fetch(ctx)
		if err != nil {
			code := apperrors.CodeOf(err)
			if code.Retryable() {
				d.logf("fetch %s (%s), retrying on next refresh: %v", feature, code, err)
			} else {
				d.logf("fetch %s (%s): %v", feature, code, err)
			}
		}
		return value, err
	}
}

func waitAll(ctx context.Context, done ...<-chan struct{}) error {
	for _, ch := range done {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
