package model

import "time"

// Session is a live connection mirrored from the host.
type Session struct {
	ID      string
	Nick    string
	Account string // empty when not logged in
}

// Bound reports whether the session is logged in to an account.
func (s Session) Bound() bool { return s.Account != "" }

// JobKind names a unit of deferred work.
type JobKind string

// Job kinds.
const (
	JobLookup         JobKind = "lookup"
	JobDeletionNotice JobKind = "deletion_notice"
)

// Job is deferred external work queued by the enrichment orchestrator.
type Job struct {
	ID   string
	Kind JobKind

	// Lookup jobs.
	Channel    string
	Sender     string
	Bot        string
	ResourceID string

	// Deletion notice jobs.
	Account string
	Forced  bool

	EnqueuedAt time.Time
}
