package upkeep

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/upkeep/internal/branches"
	"github.com/temirov/upkeep/internal/branches/refresh"
)

const (
	refresherMissingMessageConstant  = "refresher not configured"
	reconcilerMissingMessageConstant = "reconciler not configured"
	reporterMissingMessageConstant   = "summary reporter not configured"
	runStartedMessageConstant        = "upkeep started"
	runCompletedMessageConstant      = "upkeep completed"
	logFieldRemoteConstant           = "remote"
	logFieldMainBranchConstant       = "main_branch"
	logFieldCheckoutConstant         = "checkout_performed"
	logFieldPullConstant             = "pull_performed"
	logFieldDeletedConstant          = "deleted"
	logFieldKeptConstant             = "kept"
)

// ErrRefresherNotConfigured indicates the service has no refresh step.
var ErrRefresherNotConfigured = errors.New(refresherMissingMessageConstant)

// ErrReconcilerNotConfigured indicates the service has no reconcile step.
var ErrReconcilerNotConfigured = errors.New(reconcilerMissingMessageConstant)

// ErrSummaryReporterNotConfigured indicates the service cannot print the final summary.
var ErrSummaryReporterNotConfigured = errors.New(reporterMissingMessageConstant)

// Refresher fetches the remote and fast-forwards main.
type Refresher interface {
	Refresh(executionContext context.Context, options refresh.Options) (refresh.Result, error)
}

// Reconciler walks local branches and removes orphans.
type Reconciler interface {
	Reconcile(executionContext context.Context, options branches.ReconcileOptions) (branches.ReconcileSummary, error)
}

// SummaryReporter prints the closing summary line.
type SummaryReporter interface {
	Info(message string)
}

// Dependencies enumerates the collaborators of Service.
type Dependencies struct {
	Refresher  Refresher
	Reconciler Reconciler
	Reporter   SummaryReporter
	Logger     *zap.Logger
}

// Options configures both phases of a run.
type Options struct {
	Refresh   refresh.Options
	Reconcile branches.ReconcileOptions
}

// Result captures the outcome of both phases.
type Result struct {
	Refresh refresh.Result
	Summary branches.ReconcileSummary
}

// Service sequences refresh and reconciliation.
type Service struct {
	refresher  Refresher
	reconciler Reconciler
	reporter   SummaryReporter
	logger     *zap.Logger
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Refresher == nil {
		return nil, ErrRefresherNotConfigured
	}
	if dependencies.Reconciler == nil {
		return nil, ErrReconcilerNotConfigured
	}
	if dependencies.Reporter == nil {
		return nil, ErrSummaryReporterNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		refresher:  dependencies.Refresher,
		reconciler: dependencies.Reconciler,
		reporter:   dependencies.Reporter,
		logger:     logger,
	}, nil
}

// Run refreshes main and then reconciles the remaining local branches.
// A refresh failure stops the run before any branch is examined.
func (service *Service) Run(executionContext context.Context, options Options) (Result, error) {
	service.logger.Debug(runStartedMessageConstant)

	refreshResult, refreshError := service.refresher.Refresh(executionContext, options.Refresh)
	if refreshError != nil {
		return Result{Refresh: refreshResult}, refreshError
	}

	summary, reconcileError := service.reconciler.Reconcile(executionContext, options.Reconcile)
	result := Result{Refresh: refreshResult, Summary: summary}
	if reconcileError != nil {
		return result, reconcileError
	}

	service.reporter.Info(summary.Describe())
	service.logger.Info(
		runCompletedMessageConstant,
		zap.String(logFieldRemoteConstant, refreshResult.RemoteName),
		zap.String(logFieldMainBranchConstant, refreshResult.MainBranchName),
		zap.Bool(logFieldCheckoutConstant, refreshResult.CheckoutPerformed),
		zap.Bool(logFieldPullConstant, refreshResult.PullPerformed),
		zap.Int(logFieldDeletedConstant, summary.Deleted),
		zap.Int(logFieldKeptConstant, summary.Kept),
	)
	return result, nil
}
