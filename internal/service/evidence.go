package service

import (
	"html"
	"iter"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Completion markers shown next to evidence lines.
const (
	EvidenceMarkerDone    = "✅"
	EvidenceMarkerPending = "❌"
)

var lineBreakPattern = regexp.MustCompile(`\r\n|\r|\n`)

// EvidenceTopic is a tagged topic whose excerpt lists evidence items.
type EvidenceTopic struct {
	ID      uint
	Title   string
	Excerpt string
}

// EvidenceLine is one evidence item with the completion state of its topic.
type EvidenceLine struct {
	TopicID   uint   `json:"topic_id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Marker returns the check or cross shown for the line.
func (l EvidenceLine) Marker() string {
	if l.Completed {
		return EvidenceMarkerDone
	}
	return EvidenceMarkerPending
}

// EvidenceLines splits an excerpt into trimmed, non-empty plain-text lines.
func EvidenceLines(excerpt string) []string {
	plain := html.UnescapeString(bluemonday.StrictPolicy().Sanitize(excerpt))
	parts := lineBreakPattern.Split(plain, -1)

	lines := make([]string, 0, len(parts))
	for _, part := range parts {
		text := strings.TrimSpace(part)
		if text == "" {
			continue
		}
		lines = append(lines, text)
	}
	return lines
}

// ExtractEvidence yields the evidence lines of the given topics in topic order.
// completed is consulted once per topic id. A (topic, text) pair is yielded once
// even when the topic appears more than once. The sequence can be ranged a
// single time; later ranges yield nothing.
func ExtractEvidence(topics []EvidenceTopic, completed func(topicID uint) bool) iter.Seq[EvidenceLine] {
	used := false
	return func(yield func(EvidenceLine) bool) {
		if used {
			return
		}
		used = true

		type lineKey struct {
			topicID uint
			text    string
		}
		seen := make(map[lineKey]struct{})
		done := make(map[uint]bool, len(topics))

		for _, topic := range topics {
			lines := EvidenceLines(topic.Excerpt)
			if len(lines) == 0 {
				continue
			}

			isDone, ok := done[topic.ID]
			if !ok {
				isDone = completed != nil && completed(topic.ID)
				done[topic.ID] = isDone
			}

			for _, text := range lines {
				key := lineKey{topicID: topic.ID, text: text}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				if !yield(EvidenceLine{TopicID: topic.ID, Text: text, Completed: isDone}) {
					return
				}
			}
		}
	}
}
