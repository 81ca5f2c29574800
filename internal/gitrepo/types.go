package gitrepo

import "time"

// Remote describes a configured remote.
type Remote struct {
	Name string
	URL  string
}

// Branch is a snapshot of one local or remote-tracking branch.
type Branch struct {
	// CanonicalName is the full reference name, such as refs/heads/feature.
	CanonicalName string
	// FriendlyName is the display name, such as feature or origin/feature.
	FriendlyName string
	IsRemote     bool
	IsTracking   bool
	// TrackedBranchName is the canonical name of the configured upstream, empty when not tracking.
	TrackedBranchName string
	TipHash           string
	// RemoteName is set for remote-tracking branches.
	RemoteName string
}

// Signature identifies who performed a repository operation and when.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Authentication carries username and password credentials for http(s) remotes.
type Authentication struct {
	Username string
	Password string
}

// FetchRequest configures a fetch from a single remote.
type FetchRequest struct {
	RemoteName     string
	RefSpecs       []string
	Prune          bool
	FetchAllTags   bool
	Authentication *Authentication
}

// PullRequest configures a fast-forward-only pull of the checked-out branch.
type PullRequest struct {
	RemoteName     string
	BranchName     string
	Authentication *Authentication
}

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
