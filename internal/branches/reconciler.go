package branches

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/temirov/upkeep/internal/gitrepo"
)

const (
	branchReaderMissingMessageConstant     = "branch reader not configured"
	branchDeleterMissingMessageConstant    = "branch deleter not configured"
	prompterMissingMessageConstant         = "confirmation prompter not configured"
	statusReporterMissingMessageConstant   = "status reporter not configured"
	notTrackingMessageTemplateConstant     = "%s is not tracking a remote branch"
	healthyMessageTemplateConstant         = "%s is tracking %s"
	upstreamMissingMessageTemplateConstant = "%s was tracking %s, which no longer exists"
	deletionPromptTemplateConstant         = "Delete local branch %s? [y/N] "
	deletedMessageTemplateConstant         = "Deleted %s"
	dryRunDeletionMessageTemplateConstant  = "Would delete %s"
	keptMessageTemplateConstant            = "Kept %s"
	summaryMessageTemplateConstant         = "Checked %d branches: %d healthy, %d not tracking, %d deleted, %d kept"
	promptErrorTemplateConstant            = "unable to read confirmation for %s: %w"
	deletionErrorTemplateConstant          = "unable to delete %s: %w"
	reconcileStartedMessageConstant        = "reconciling local branches"
	branchClassifiedMessageConstant        = "branch classified"
	logFieldBranchConstant                 = "branch"
	logFieldStatusConstant                 = "status"
	logFieldUpstreamConstant               = "upstream"
	logFieldCheckedCountConstant           = "checked"
	reconcileCompletedMessageConstant      = "reconciliation completed"
	cancellationErrorTemplateConstant      = "reconciliation interrupted: %w"
)

// ErrBranchReaderNotConfigured indicates the reconciler has no branch source.
var ErrBranchReaderNotConfigured = errors.New(branchReaderMissingMessageConstant)

// ErrBranchDeleterNotConfigured indicates the reconciler cannot delete branches.
var ErrBranchDeleterNotConfigured = errors.New(branchDeleterMissingMessageConstant)

// ErrPrompterNotConfigured indicates the reconciler cannot ask for confirmation.
var ErrPrompterNotConfigured = errors.New(prompterMissingMessageConstant)

// ErrStatusReporterNotConfigured indicates the reconciler cannot report progress.
var ErrStatusReporterNotConfigured = errors.New(statusReporterMissingMessageConstant)

// BranchReader returns a fresh branch snapshot.
type BranchReader interface {
	ReadBranches() (BranchSet, error)
}

// BranchDeleter removes local branches by friendly name.
type BranchDeleter interface {
	DeleteBranch(branchName string) error
}

// ConfirmationPrompter asks the user a yes/no question.
type ConfirmationPrompter interface {
	Confirm(prompt string) (bool, error)
}

// StatusReporter renders user-facing status lines.
type StatusReporter interface {
	Info(message string)
	Success(message string)
	Warning(message string)
	Skipped(message string)
}

// ReconcilerDependencies enumerates the collaborators of a Reconciler.
type ReconcilerDependencies struct {
	BranchReader BranchReader
	Deleter      BranchDeleter
	Prompter     ConfirmationPrompter
	Reporter     StatusReporter
	Logger       *zap.Logger
}

// ReconcileOptions tunes how orphaned branches are handled.
type ReconcileOptions struct {
	// AssumeYes deletes orphaned branches without prompting.
	AssumeYes bool
	// DryRun reports deletions without prompting or deleting.
	DryRun bool
}

// ReconcileSummary counts the outcome of each checked branch.
type ReconcileSummary struct {
	Healthy     int
	NotTracking int
	Deleted     int
	Kept        int
	// Checked lists friendly names in the order they were evaluated.
	Checked []string
}

// Reconciler walks local branches exactly once each and removes those whose upstream vanished.
type Reconciler struct {
	branchReader BranchReader
	deleter      BranchDeleter
	prompter     ConfirmationPrompter
	reporter     StatusReporter
	logger       *zap.Logger
}

// NewReconciler validates dependencies and constructs a Reconciler.
func NewReconciler(dependencies ReconcilerDependencies) (*Reconciler, error) {
	if dependencies.BranchReader == nil {
		return nil, ErrBranchReaderNotConfigured
	}
	if dependencies.Deleter == nil {
		return nil, ErrBranchDeleterNotConfigured
	}
	if dependencies.Prompter == nil {
		return nil, ErrPrompterNotConfigured
	}
	if dependencies.Reporter == nil {
		return nil, ErrStatusReporterNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		branchReader: dependencies.BranchReader,
		deleter:      dependencies.Deleter,
		prompter:     dependencies.Prompter,
		reporter:     dependencies.Reporter,
		logger:       logger,
	}, nil
}

// Reconcile re-reads the branch set before each step and evaluates the first
// local branch not yet in the checked ledger, until every branch has been seen.
func (reconciler *Reconciler) Reconcile(executionContext context.Context, options ReconcileOptions) (ReconcileSummary, error) {
	reconciler.logger.Debug(reconcileStartedMessageConstant)

	summary := ReconcileSummary{Checked: []string{}}
	checkedBranches := map[string]struct{}{}
	for {
		if executionContext != nil {
			if contextError := executionContext.Err(); contextError != nil {
				return summary, fmt.Errorf(cancellationErrorTemplateConstant, contextError)
			}
		}

		branchSet, readError := reconciler.branchReader.ReadBranches()
		if readError != nil {
			return summary, readError
		}

		candidate, found := firstUncheckedBranch(branchSet.OtherLocalBranches, checkedBranches)
		if !found {
			break
		}

		if evaluationError := reconciler.evaluate(candidate, branchSet.RemoteBranches, options, &summary); evaluationError != nil {
			return summary, evaluationError
		}

		checkedBranches[candidate.FriendlyName] = struct{}{}
		summary.Checked = append(summary.Checked, candidate.FriendlyName)
	}

	reconciler.logger.Debug(reconcileCompletedMessageConstant, zap.Int(logFieldCheckedCountConstant, len(summary.Checked)))
	return summary, nil
}

func (reconciler *Reconciler) evaluate(branch gitrepo.Branch, remoteBranches []gitrepo.Branch, options ReconcileOptions, summary *ReconcileSummary) error {
	classification, classificationError := ClassifyTracking(branch, remoteBranches)
	if classificationError != nil {
		return classificationError
	}

	reconciler.logger.Debug(
		branchClassifiedMessageConstant,
		zap.String(logFieldBranchConstant, branch.FriendlyName),
		zap.String(logFieldStatusConstant, string(classification.Status)),
		zap.String(logFieldUpstreamConstant, classification.UpstreamName),
	)

	switch classification.Status {
	case TrackingStatusNotTracking:
		reconciler.reporter.Info(fmt.Sprintf(notTrackingMessageTemplateConstant, branch.FriendlyName))
		summary.NotTracking++
		return nil
	case TrackingStatusHealthy:
		reconciler.reporter.Success(fmt.Sprintf(healthyMessageTemplateConstant, branch.FriendlyName, classification.RemoteBranch.FriendlyName))
		summary.Healthy++
		return nil
	case TrackingStatusUpstreamMissing:
		reconciler.reporter.Warning(fmt.Sprintf(upstreamMissingMessageTemplateConstant, branch.FriendlyName, plumbing.ReferenceName(classification.UpstreamName).Short()))
		return reconciler.resolveOrphan(branch, options, summary)
	default:
		return fmt.Errorf(unknownTrackingStatusTemplateConstant, ErrUnknownTrackingStatus, classification.Status)
	}
}

func (reconciler *Reconciler) resolveOrphan(branch gitrepo.Branch, options ReconcileOptions, summary *ReconcileSummary) error {
	if options.DryRun {
		reconciler.reporter.Info(fmt.Sprintf(dryRunDeletionMessageTemplateConstant, branch.FriendlyName))
		summary.Kept++
		return nil
	}

	confirmed := options.AssumeYes
	if !confirmed {
		answer, promptError := reconciler.prompter.Confirm(fmt.Sprintf(deletionPromptTemplateConstant, branch.FriendlyName))
		if promptError != nil {
			return fmt.Errorf(promptErrorTemplateConstant, branch.FriendlyName, promptError)
		}
		confirmed = answer
	}

	if !confirmed {
		reconciler.reporter.Skipped(fmt.Sprintf(keptMessageTemplateConstant, branch.FriendlyName))
		summary.Kept++
		return nil
	}

	if deletionError := reconciler.deleter.DeleteBranch(branch.FriendlyName); deletionError != nil {
		return fmt.Errorf(deletionErrorTemplateConstant, branch.FriendlyName, deletionError)
	}
	reconciler.reporter.Success(fmt.Sprintf(deletedMessageTemplateConstant, branch.FriendlyName))
	summary.Deleted++
	return nil
}

// Describe renders the summary as a single status line.
func (summary ReconcileSummary) Describe() string {
	return fmt.Sprintf(summaryMessageTemplateConstant, len(summary.Checked), summary.Healthy, summary.NotTracking, summary.Deleted, summary.Kept)
}

func firstUncheckedBranch(localBranches []gitrepo.Branch, checkedBranches map[string]struct{}) (gitrepo.Branch, bool) {
	for _, branch := range localBranches {
		if _, checked := checkedBranches[branch.FriendlyName]; !checked {
			return branch, true
		}
	}
	return gitrepo.Branch{}, false
}
