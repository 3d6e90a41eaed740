package activity

import (
	"fmt"
	"strings"
)

// SummarySeparator joins fragments for display.
const SummarySeparator = " • "

// commentMaxRunes is the display truncation length for comment fragments.
// Part of the summary contract; other renderers reproduce the same output.
const commentMaxRunes = 50

// summaryRule inspects the diff bag and may yield one display fragment.
// Rules run in a fixed priority order; the order affects display fidelity
// for entries with overlapping change keys and must not be reordered.
type summaryRule func(changes map[string]any) (string, bool)

var summaryRules = []summaryRule{
	transitionFragment,
	quotedFragment("title"),
	quotedFragment("name"),
	prefixedFragment("filename", "Archivo: "),
	commentFragment,
	prefixedFragment("approved_by", "Por: "),
}

// Summarize turns an event's diff bag into human-readable change fragments.
// An empty result is not an error; the feed then shows only the action and
// entity badges.
func Summarize(e Event) []string {
	var fragments []string
	for _, rule := range summaryRules {
		if fragment, ok := rule(e.Changes); ok {
			fragments = append(fragments, fragment)
		}
	}
	return fragments
}

// SummaryText renders the fragments joined with the display separator.
func SummaryText(e Event) string {
	return strings.Join(Summarize(e), SummarySeparator)
}

// transitionFragment renders a status transition, or a stage transition when
// no status pair is present. Both keys never co-occur in practice but the
// status pair wins if they do.
func transitionFragment(changes map[string]any) (string, bool) {
	oldStatus, newStatus := changeString(changes, "old_status"), changeString(changes, "new_status")
	if oldStatus != "" && newStatus != "" {
		return oldStatus + " → " + newStatus, true
	}
	oldStage, newStage := changeString(changes, "old_stage"), changeString(changes, "new_stage")
	if oldStage != "" && newStage != "" {
		return oldStage + " → " + newStage, true
	}
	return "", false
}

func quotedFragment(key string) summaryRule {
	return func(changes map[string]any) (string, bool) {
		if v := changeString(changes, key); v != "" {
			return `"` + v + `"`, true
		}
		return "", false
	}
}

func prefixedFragment(key, prefix string) summaryRule {
	return func(changes map[string]any) (string, bool) {
		if v := changeString(changes, key); v != "" {
			return prefix + v, true
		}
		return "", false
	}
}

func commentFragment(changes map[string]any) (string, bool) {
	comment := changeString(changes, "comment")
	if comment == "" {
		return "", false
	}
	if runes := []rune(comment); len(runes) > commentMaxRunes {
		comment = string(runes[:commentMaxRunes]) + "..."
	}
	return `"` + comment + `"`, true
}

// changeString renders a diff bag value for display. Scalars that render
// empty produce no fragment.
func changeString(changes map[string]any, key string) string {
	value, ok := changes[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
