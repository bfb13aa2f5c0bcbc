package domain

import "sort"

// TrailEntry is a comment as presented to readers. Index is the comment's
// stored position (used for edits) or -1 for entries synthesized from legacy
// response lists.
type TrailEntry struct {
	Index int `json:"index"`
	Comment
	Edited bool `json:"edited"`
}

// HasLegacyTrail reports whether the ticket predates the unified comments field.
func (t *Ticket) HasLegacyTrail() bool {
	return len(t.Comments) == 0 && (len(t.AdminResponses) > 0 || len(t.CustomerResponses) > 0)
}

// LegacyComments merges adminResponses and customerResponses into tagged,
// time-ordered comments. The ticket itself is not modified.
func (t *Ticket) LegacyComments() []Comment {
	merged := make([]Comment, 0, len(t.AdminResponses)+len(t.CustomerResponses))
	for _, r := range t.AdminResponses {
		merged = append(merged, r.toComment(AuthorRoleAdmin))
	}
	for _, r := range t.CustomerResponses {
		merged = append(merged, r.toComment(AuthorRoleCustomer))
	}
	SortComments(merged)
	return merged
}

// SortComments orders comments by timestamp seconds, keeping insertion order on ties.
func SortComments(comments []Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].Timestamp.EpochSeconds() < comments[j].Timestamp.EpochSeconds()
	})
}

// NormalizeTrail returns the ticket's audit trail in display order.
func NormalizeTrail(t *Ticket) []TrailEntry {
	if t == nil {
		return nil
	}
	if t.HasLegacyTrail() {
		legacy := t.LegacyComments()
		entries := make([]TrailEntry, 0, len(legacy))
		for _, c := range legacy {
			entries = append(entries, TrailEntry{Index: -1, Comment: c})
		}
		return entries
	}

	entries := make([]TrailEntry, 0, len(t.Comments))
	for i, c := range t.Comments {
		entries = append(entries, TrailEntry{Index: i, Comment: c, Edited: c.Edited()})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.EpochSeconds() < entries[j].Timestamp.EpochSeconds()
	})
	return entries
}

// TrailComments is NormalizeTrail without the presentation fields.
func TrailComments(t *Ticket) []Comment {
	entries := NormalizeTrail(t)
	out := make([]Comment, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Comment)
	}
	return out
}
