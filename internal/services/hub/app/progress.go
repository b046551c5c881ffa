package server

import "github.com/louisbranch/fieldschool/internal/services/hub/backend"

// Progress summarizes how far the learner is through the current course.
type Progress struct {
	CompletedLessons int `json:"completed_lessons"`
	TotalLessons     int `json:"total_lessons"`
	Percent          int `json:"percent"`
	PointsEarned     int `json:"points_earned"`
	QuestPoints      int `json:"quest_points"`
	QuestsCompleted  int `json:"quests_completed"`
	TotalQuests      int `json:"total_quests"`
}

// QuestView is a quest annotated with the learner's progress on it.
type QuestView struct {
	backend.Quest
	CompletedLessons int  `json:"completed_lessons"`
	Completed        bool `json:"completed"`
}

// ComputeProgress derives course progress from the lessons and quests in view
// and the learner's completion records. Completions for lessons outside the
// current lesson list do not count toward lessons or quests.
func ComputeProgress(lessons []backend.Lesson, quests []backend.Quest, completions []backend.Completion) (Progress, []QuestView) {
	completed := make(map[string]struct{}, len(completions))
	for _, c := range completions {
		completed[c.LessonID] = struct{}{}
	}

	progress := Progress{TotalLessons: len(lessons), TotalQuests: len(quests)}
	done := make(map[string]struct{}, len(lessons))
	for _, lesson := range lessons {
		if _, ok := completed[lesson.ID]; !ok {
			continue
		}
		if _, seen := done[lesson.ID]; seen {
			continue
		}
		done[lesson.ID] = struct{}{}
		progress.CompletedLessons++
		progress.PointsEarned += lesson.Points
	}
	if progress.TotalLessons > 0 {
		progress.Percent = progress.CompletedLessons * 100 / progress.TotalLessons
	}

	views := make([]QuestView, 0, len(quests))
	for _, quest := range quests {
		view := QuestView{Quest: quest}
		for _, id := range quest.LessonIDs {
			if _, ok := done[id]; ok {
				view.CompletedLessons++
			}
		}
		view.Completed = len(quest.LessonIDs) > 0 && view.CompletedLessons == len(quest.LessonIDs)
		if view.Completed {
			progress.QuestsCompleted++
			progress.QuestPoints += quest.RewardPoints
		}
		views = append(views, view)
	}
	return progress, views
}
