package content

import "time"

// CommitInfo describes the checked out commit.
type CommitInfo struct {
	SHA        string    `json:"sha"`
	Author     string    `json:"author"`
	Email      string    `json:"email"`
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message"`
	Branch     string    `json:"branch"`
	Repository string    `json:"repository"`
}

// SyncResult reports what a Sync changed.
type SyncResult struct {
	// FromSHA is the revision before the sync. Empty after a fresh clone.
	FromSHA string

	// ToSHA is the revision now checked out.
	ToSHA string

	// ChangedFiles lists repository paths that differ between the two
	// revisions.
	ChangedFiles []string

	// Cloned is set when the sync created the working copy.
	Cloned bool

	// Stale is set when the pull failed and the previous revision is kept.
	Stale bool
}

// Changed reports whether the checked out revision moved.
func (r *SyncResult) Changed() bool {
	return r.FromSHA != r.ToSHA
}
