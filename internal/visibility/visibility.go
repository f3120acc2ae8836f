// Package visibility decides which stored quests a viewer sees.
//
// Filtering is pure: it combines the requested tab, the viewer's local
// dismissal set, and a firm newest-first display order. Distance to the
// viewer is attached as an annotation only and never excludes a quest.
package visibility

import (
	"sort"

	"github.com/neighborly/questboard/internal/platform/geo"
	"github.com/neighborly/questboard/internal/quest/storage"
)

// Tab selects which lifecycle phase a viewer is browsing.
type Tab string

const (
	// TabOpen shows quests still awaiting completion.
	TabOpen Tab = "open"
	// TabCompleted shows answered quests.
	TabCompleted Tab = "completed"
)

// Dismissals reports whether a viewer has hidden a quest id.
type Dismissals interface {
	Contains(id string) bool
}

// Visible returns the quests to render for the tab, with the viewer's
// dismissed quests removed, ordered by creation time descending. Ties are
// broken by id so the order is deterministic.
func Visible(quests []storage.QuestRecord, dismissed Dismissals, tab Tab) []storage.QuestRecord {
	visible := make([]storage.QuestRecord, 0, len(quests))
	for _, record := range quests {
		if record.Completed != (tab == TabCompleted) {
			continue
		}
		if dismissed != nil && dismissed.Contains(record.ID) {
			continue
		}
		visible = append(visible, record)
	}

	sort.Slice(visible, func(i, j int) bool {
		if !visible[i].CreatedAt.Equal(visible[j].CreatedAt) {
			return visible[i].CreatedAt.After(visible[j].CreatedAt)
		}
		return visible[i].ID > visible[j].ID
	})
	return visible
}

// AnnotatedQuest pairs a quest with its display-only distance annotation.
type AnnotatedQuest struct {
	storage.QuestRecord

	// DistanceKm is nil when the viewer's position is unknown.
	DistanceKm *float64
}

// Annotate attaches the approximate distance from the viewer to each quest.
// A nil viewer position yields nil annotations; no quest is ever excluded.
func Annotate(quests []storage.QuestRecord, viewer *geo.Coordinate) []AnnotatedQuest {
	annotated := make([]AnnotatedQuest, 0, len(quests))
	for _, record := range quests {
		item := AnnotatedQuest{QuestRecord: record}
		if viewer != nil {
			distance := geo.ApproxDistanceKm(*viewer, geo.Coordinate{Lat: record.Lat, Lng: record.Lng})
			item.DistanceKm = &distance
		}
		annotated = append(annotated, item)
	}
	return annotated
}
