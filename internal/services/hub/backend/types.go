package backend

import "time"

// Lesson is one unit of agricultural course content.
type Lesson struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Topic    string `json:"topic"`
	Language string `json:"language"`
	Position int    `json:"position"`
	Points   int    `json:"points"`
}

// Quest groups lessons behind a shared reward.
type Quest struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Language     string   `json:"language"`
	Position     int      `json:"position"`
	RewardPoints int      `json:"reward_points"`
	LessonIDs    []string `json:"lesson_ids"`
}

// Profile is the learner's public score card.
type Profile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
	Level       int    `json:"level"`
	StreakDays  int    `json:"streak_days"`
}

// Completion records one finished lesson.
type Completion struct {
	UserID      string    `json:"user_id"`
	LessonID    string    `json:"lesson_id"`
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
}
