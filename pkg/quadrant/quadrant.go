// Package quadrant maps a due date and importance onto the Eisenhower
// matrix. Nothing here reads a clock; callers pass now.
package quadrant

import (
	"strings"
	"time"

	"github.com/harrisonrobin/eisen/pkg/model"
)

// UrgentWithin is the horizon inside which a due date makes a task urgent.
// Overdue tasks fall inside it too.
const UrgentWithin = 72 * time.Hour

var order = []model.Quadrant{
	model.UrgentImportant,
	model.NotUrgentImportant,
	model.UrgentNotImportant,
	model.NotUrgentNotImportant,
}

var priorities = map[model.Quadrant]model.Priority{
	model.UrgentImportant:       model.Critical,
	model.NotUrgentImportant:    model.High,
	model.UrgentNotImportant:    model.Medium,
	model.NotUrgentNotImportant: model.Low,
}

var names = map[model.Quadrant]string{
	model.UrgentImportant:       "Do First (Urgent + Important)",
	model.NotUrgentImportant:    "Schedule (Important)",
	model.UrgentNotImportant:    "Delegate (Urgent)",
	model.NotUrgentNotImportant: "Eliminate (Neither)",
}

var aliases = map[string]model.Quadrant{
	"do":        model.UrgentImportant,
	"q1":        model.UrgentImportant,
	"schedule":  model.NotUrgentImportant,
	"q2":        model.NotUrgentImportant,
	"delegate":  model.UrgentNotImportant,
	"q3":        model.UrgentNotImportant,
	"eliminate": model.NotUrgentNotImportant,
	"q4":        model.NotUrgentNotImportant,
}

// All returns the four quadrants in display order.
func All() []model.Quadrant {
	out := make([]model.Quadrant, len(order))
	copy(out, order)
	return out
}

// IsUrgent reports whether due falls within UrgentWithin of now.
func IsUrgent(due *time.Time, now time.Time) bool {
	if due == nil {
		return false
	}
	return due.Sub(now) <= UrgentWithin
}

// IsImportant treats everything except the explicit not-important literal
// as important.
func IsImportant(importance model.Importance) bool {
	return importance != model.NotImportant
}

func Classify(due *time.Time, importance model.Importance, now time.Time) model.Quadrant {
	urgent := IsUrgent(due, now)
	important := IsImportant(importance)
	switch {
	case urgent && important:
		return model.UrgentImportant
	case !urgent && important:
		return model.NotUrgentImportant
	case urgent && !important:
		return model.UrgentNotImportant
	default:
		return model.NotUrgentNotImportant
	}
}

// PriorityFor is a fixed lookup; unknown quadrants get Medium.
func PriorityFor(q model.Quadrant) model.Priority {
	if p, ok := priorities[q]; ok {
		return p
	}
	return model.Medium
}

func Name(q model.Quadrant) string {
	if n, ok := names[q]; ok {
		return n
	}
	return "Unknown"
}

// Short is the name without the parenthesised hint, e.g. "Do First".
func Short(q model.Quadrant) string {
	n := Name(q)
	if i := strings.Index(n, "("); i > 0 {
		return strings.TrimSpace(n[:i])
	}
	return n
}

func Valid(q model.Quadrant) bool {
	_, ok := priorities[q]
	return ok
}

// Parse accepts a quadrant identifier or one of its short aliases.
func Parse(s string) (model.Quadrant, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if q := model.Quadrant(s); Valid(q) {
		return q, true
	}
	q, ok := aliases[s]
	return q, ok
}

// NormalizeImportance maps free input onto the two literals, defaulting to
// important.
func NormalizeImportance(s string) model.Importance {
	if model.Importance(strings.TrimSpace(s)) == model.NotImportant {
		return model.NotImportant
	}
	return model.Important
}
