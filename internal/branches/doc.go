// Package branches classifies local branches against their remote-tracking
// counterparts and reconciles branches whose upstream has disappeared.
//
// Classifier re-reads the branch set on every call so callers always observe
// the repository after the latest fetch, pull or deletion. Reconciler walks the
// local branches once each, prompting before it deletes an orphan. The prune
// command exposes the reconciler through Cobra.
package branches
