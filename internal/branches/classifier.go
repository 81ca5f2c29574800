package branches

import (
	"errors"
	"fmt"

	"github.com/temirov/upkeep/internal/gitrepo"
)

const (
	mainBranchCanonicalNameConstant        = "refs/heads/main"
	masterBranchCanonicalNameConstant      = "refs/heads/master"
	branchListerMissingMessageConstant     = "branch lister not configured"
	mainBranchNotFoundMessageConstant      = "no main branch found (expected refs/heads/main or refs/heads/master)"
	multipleMainBranchesMessageConstant    = "multiple main branch candidates found"
	duplicateRemoteBranchMessageConstant   = "duplicate remote branch canonical name"
	unknownTrackingStatusMessageConstant   = "unknown tracking status"
	branchEnumerationErrorTemplateConstant = "unable to read branches: %w"
	multipleMainBranchesTemplateConstant   = "%w: %s and %s"
	duplicateRemoteBranchTemplateConstant  = "%w: %s matched %d remote branches"
	unknownTrackingStatusTemplateConstant  = "%w: %q"
)

// ErrBranchListerNotConfigured indicates the classifier was constructed without a branch source.
var ErrBranchListerNotConfigured = errors.New(branchListerMissingMessageConstant)

// ErrMainBranchNotFound indicates no local branch is named main or master.
var ErrMainBranchNotFound = errors.New(mainBranchNotFoundMessageConstant)

// ErrMultipleMainBranches indicates both main and master exist locally.
var ErrMultipleMainBranches = errors.New(multipleMainBranchesMessageConstant)

// ErrDuplicateRemoteBranch indicates a branch set contains one canonical name twice.
var ErrDuplicateRemoteBranch = errors.New(duplicateRemoteBranchMessageConstant)

// ErrUnknownTrackingStatus indicates a classification outside the known statuses.
var ErrUnknownTrackingStatus = errors.New(unknownTrackingStatusMessageConstant)

var mainBranchCandidates = []string{mainBranchCanonicalNameConstant, masterBranchCanonicalNameConstant}

// BranchLister enumerates the branches of a repository.
type BranchLister interface {
	Branches() ([]gitrepo.Branch, error)
}

// BranchSet is a point-in-time snapshot of the repository branches.
type BranchSet struct {
	RemoteBranches     []gitrepo.Branch
	MainBranch         gitrepo.Branch
	OtherLocalBranches []gitrepo.Branch
}

// TrackingStatus describes how a local branch relates to its upstream.
type TrackingStatus string

// Known tracking statuses.
const (
	TrackingStatusNotTracking     TrackingStatus = TrackingStatus("not_tracking")
	TrackingStatusHealthy         TrackingStatus = TrackingStatus("healthy")
	TrackingStatusUpstreamMissing TrackingStatus = TrackingStatus("upstream_missing")
)

// TrackingClassification is the outcome of ClassifyTracking.
// RemoteBranch is populated for TrackingStatusHealthy; UpstreamName for both tracking statuses.
type TrackingClassification struct {
	Status       TrackingStatus
	RemoteBranch gitrepo.Branch
	UpstreamName string
}

// Classifier reads and partitions branch sets.
type Classifier struct {
	lister BranchLister
}

// NewClassifier constructs a Classifier reading from lister.
func NewClassifier(lister BranchLister) (*Classifier, error) {
	if lister == nil {
		return nil, ErrBranchListerNotConfigured
	}
	return &Classifier{lister: lister}, nil
}

// ReadBranches enumerates branches afresh and partitions them.
// Exactly one local branch must be a main branch candidate.
func (classifier *Classifier) ReadBranches() (BranchSet, error) {
	allBranches, listError := classifier.lister.Branches()
	if listError != nil {
		return BranchSet{}, fmt.Errorf(branchEnumerationErrorTemplateConstant, listError)
	}

	branchSet := BranchSet{RemoteBranches: []gitrepo.Branch{}, OtherLocalBranches: []gitrepo.Branch{}}
	mainCandidates := []gitrepo.Branch{}
	for _, branch := range allBranches {
		switch {
		case branch.IsRemote:
			branchSet.RemoteBranches = append(branchSet.RemoteBranches, branch)
		case isMainBranchCandidate(branch):
			mainCandidates = append(mainCandidates, branch)
		default:
			branchSet.OtherLocalBranches = append(branchSet.OtherLocalBranches, branch)
		}
	}

	switch len(mainCandidates) {
	case 0:
		return BranchSet{}, ErrMainBranchNotFound
	case 1:
		branchSet.MainBranch = mainCandidates[0]
		return branchSet, nil
	default:
		return BranchSet{}, fmt.Errorf(multipleMainBranchesTemplateConstant, ErrMultipleMainBranches, mainCandidates[0].CanonicalName, mainCandidates[1].CanonicalName)
	}
}

func isMainBranchCandidate(branch gitrepo.Branch) bool {
	for _, candidate := range mainBranchCandidates {
		if branch.CanonicalName == candidate {
			return true
		}
	}
	return false
}

// ClassifyTracking determines whether branch tracks an upstream and whether that upstream is present in remoteBranches.
func ClassifyTracking(branch gitrepo.Branch, remoteBranches []gitrepo.Branch) (TrackingClassification, error) {
	if !branch.IsTracking || len(branch.TrackedBranchName) == 0 {
		return TrackingClassification{Status: TrackingStatusNotTracking}, nil
	}

	matches := []gitrepo.Branch{}
	for _, remoteBranch := range remoteBranches {
		if remoteBranch.CanonicalName == branch.TrackedBranchName {
			matches = append(matches, remoteBranch)
		}
	}

	switch len(matches) {
	case 0:
		return TrackingClassification{Status: TrackingStatusUpstreamMissing, UpstreamName: branch.TrackedBranchName}, nil
	case 1:
		return TrackingClassification{Status: TrackingStatusHealthy, RemoteBranch: matches[0], UpstreamName: branch.TrackedBranchName}, nil
	default:
		return TrackingClassification{}, fmt.Errorf(duplicateRemoteBranchTemplateConstant, ErrDuplicateRemoteBranch, branch.TrackedBranchName, len(matches))
	}
}
