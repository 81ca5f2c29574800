package refresh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/temirov/upkeep/internal/branches"
	"github.com/temirov/upkeep/internal/credentials"
	"github.com/temirov/upkeep/internal/gitrepo"
)

const (
	repositoryMissingMessageConstant         = "repository not configured"
	credentialResolverMissingMessageConstant = "credential resolver not configured"
	branchReaderMissingMessageConstant       = "branch reader not configured"
	reporterMissingMessageConstant           = "progress reporter not configured"
	remoteNotFoundMessageConstant            = "no remote configured"
	multipleRemotesMessageConstant           = "multiple remotes configured, exactly one is supported"
	mainBranchNotTrackingMessageConstant     = "no remote tracking branch found"
	multipleRemotesTemplateConstant          = "%w: %s"
	mainBranchNotTrackingTemplateConstant    = "%w for %s"
	upstreamNotFetchedTemplateConstant       = "%w for %s: %s is not present after fetch"
	remotesErrorTemplateConstant             = "unable to list remotes: %w"
	credentialsErrorTemplateConstant         = "unable to obtain credentials for %s: %w"
	headErrorTemplateConstant                = "unable to determine the current branch: %w"
	signatureErrorTemplateConstant           = "unable to build merge signature: %w"
	fetchRefSpecTemplateConstant             = "+refs/heads/*:refs/remotes/%s/*"
	remoteListSeparatorConstant              = ", "
	usingRemoteMessageTemplateConstant       = "Using remote %s"
	fetchSpinnerTemplateConstant             = "Fetching %s"
	fetchedMessageTemplateConstant           = "Fetched %s"
	alreadyOnMainMessageTemplateConstant     = "Already on %s"
	checkedOutMessageTemplateConstant        = "Checked out %s"
	upToDateMessageTemplateConstant          = "%s is up to date with %s"
	pullSpinnerTemplateConstant              = "Pulling %s into %s"
	fastForwardedMessageTemplateConstant     = "Fast-forwarded %s to %s"
	mergeIdentityMessageConstant             = "merge identity"
	refreshStartedMessageConstant            = "refreshing main branch"
	remoteSelectedMessageConstant            = "remote selected"
	pullDecisionMessageConstant              = "pull decision"
	logFieldRemoteConstant                   = "remote"
	logFieldMainBranchConstant               = "main_branch"
	logFieldUpstreamConstant                 = "upstream"
	logFieldLocalTipConstant                 = "local_tip"
	logFieldUpstreamTipConstant              = "upstream_tip"
	logFieldPullRequiredConstant             = "pull_required"
	logFieldNameConstant                     = "name"
	logFieldEmailConstant                    = "email"
	logFieldWhenConstant                     = "when"
)

// ErrRepositoryNotConfigured indicates the repository dependency was missing.
var ErrRepositoryNotConfigured = errors.New(repositoryMissingMessageConstant)

// ErrCredentialResolverNotConfigured indicates the credential resolver dependency was missing.
var ErrCredentialResolverNotConfigured = errors.New(credentialResolverMissingMessageConstant)

// ErrBranchReaderNotConfigured indicates the branch reader dependency was missing.
var ErrBranchReaderNotConfigured = errors.New(branchReaderMissingMessageConstant)

// ErrReporterNotConfigured indicates the progress reporter dependency was missing.
var ErrReporterNotConfigured = errors.New(reporterMissingMessageConstant)

// ErrRemoteNotFound indicates the repository has no remote.
var ErrRemoteNotFound = errors.New(remoteNotFoundMessageConstant)

// ErrMultipleRemotes indicates the repository has more than one remote.
var ErrMultipleRemotes = errors.New(multipleRemotesMessageConstant)

// ErrMainBranchNotTracking indicates the main branch has no usable upstream.
var ErrMainBranchNotTracking = errors.New(mainBranchNotTrackingMessageConstant)

// Repository is the subset of gitrepo.Repository the refresh needs.
type Repository interface {
	Remotes() ([]gitrepo.Remote, error)
	Head() (string, error)
	Fetch(executionContext context.Context, request gitrepo.FetchRequest) error
	Checkout(canonicalName string) error
	Pull(executionContext context.Context, request gitrepo.PullRequest) error
	BuildSignature() (gitrepo.Signature, error)
}

// CredentialResolver obtains credentials for a remote URL.
type CredentialResolver interface {
	Resolve(executionContext context.Context, remoteURL string) (credentials.Credentials, error)
}

// BranchReader returns a fresh branch snapshot.
type BranchReader interface {
	ReadBranches() (branches.BranchSet, error)
}

// ProgressReporter renders progress for the user.
type ProgressReporter interface {
	RunWithSpinner(label string, operation func() error) error
	Info(message string)
	Success(message string)
	Skipped(message string)
}

// Dependencies enumerates external collaborators required for refresh operations.
type Dependencies struct {
	Repository         Repository
	CredentialResolver CredentialResolver
	BranchReader       BranchReader
	Reporter           ProgressReporter
	Logger             *zap.Logger
}

// Options configures a refresh.
type Options struct {
	// NetworkTimeout bounds each fetch and pull. Zero disables the bound.
	NetworkTimeout time.Duration
}

// Result captures the observable outcomes of a refresh.
type Result struct {
	RemoteName        string
	MainBranchName    string
	CheckoutPerformed bool
	PullPerformed     bool
}

// Service fetches the single remote and fast-forwards the main branch.
type Service struct {
	repository         Repository
	credentialResolver CredentialResolver
	branchReader       BranchReader
	reporter           ProgressReporter
	logger             *zap.Logger
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Repository == nil {
		return nil, ErrRepositoryNotConfigured
	}
	if dependencies.CredentialResolver == nil {
		return nil, ErrCredentialResolverNotConfigured
	}
	if dependencies.BranchReader == nil {
		return nil, ErrBranchReaderNotConfigured
	}
	if dependencies.Reporter == nil {
		return nil, ErrReporterNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repository:         dependencies.Repository,
		credentialResolver: dependencies.CredentialResolver,
		branchReader:       dependencies.BranchReader,
		reporter:           dependencies.Reporter,
		logger:             logger,
	}, nil
}

// Refresh runs the steps strictly in order: pick the remote, resolve credentials once,
// fetch with pruning and all tags, check out main, then fast-forward main when its upstream moved.
func (service *Service) Refresh(executionContext context.Context, options Options) (Result, error) {
	service.logger.Debug(refreshStartedMessageConstant)

	remote, remoteError := service.selectRemote()
	if remoteError != nil {
		return Result{}, remoteError
	}
	result := Result{RemoteName: remote.Name}
	service.reporter.Info(fmt.Sprintf(usingRemoteMessageTemplateConstant, remote.Name))

	remoteCredentials, credentialsError := service.credentialResolver.Resolve(executionContext, remote.URL)
	if credentialsError != nil {
		return result, fmt.Errorf(credentialsErrorTemplateConstant, remote.Name, credentialsError)
	}
	authentication := &gitrepo.Authentication{Username: remoteCredentials.Username, Password: remoteCredentials.Password}

	fetchError := service.reporter.RunWithSpinner(fmt.Sprintf(fetchSpinnerTemplateConstant, remote.Name), func() error {
		return service.fetch(executionContext, options, remote.Name, authentication)
	})
	if fetchError != nil {
		return result, fetchError
	}
	service.reporter.Success(fmt.Sprintf(fetchedMessageTemplateConstant, remote.Name))

	branchSet, readError := service.branchReader.ReadBranches()
	if readError != nil {
		return result, readError
	}
	mainBranch := branchSet.MainBranch
	result.MainBranchName = mainBranch.FriendlyName

	checkoutPerformed, checkoutError := service.ensureMainCheckedOut(mainBranch)
	if checkoutError != nil {
		return result, checkoutError
	}
	result.CheckoutPerformed = checkoutPerformed

	upstreamBranch, upstreamError := locateUpstream(mainBranch, branchSet.RemoteBranches)
	if upstreamError != nil {
		return result, upstreamError
	}

	pullRequired := upstreamBranch.TipHash != mainBranch.TipHash
	service.logger.Debug(
		pullDecisionMessageConstant,
		zap.String(logFieldMainBranchConstant, mainBranch.FriendlyName),
		zap.String(logFieldUpstreamConstant, upstreamBranch.FriendlyName),
		zap.String(logFieldLocalTipConstant, mainBranch.TipHash),
		zap.String(logFieldUpstreamTipConstant, upstreamBranch.TipHash),
		zap.Bool(logFieldPullRequiredConstant, pullRequired),
	)
	if !pullRequired {
		service.reporter.Skipped(fmt.Sprintf(upToDateMessageTemplateConstant, mainBranch.FriendlyName, upstreamBranch.FriendlyName))
		return result, nil
	}

	signature, signatureError := service.repository.BuildSignature()
	if signatureError != nil {
		return result, fmt.Errorf(signatureErrorTemplateConstant, signatureError)
	}
	service.logger.Info(
		mergeIdentityMessageConstant,
		zap.String(logFieldNameConstant, signature.Name),
		zap.String(logFieldEmailConstant, signature.Email),
		zap.Time(logFieldWhenConstant, signature.When),
	)

	pullError := service.reporter.RunWithSpinner(fmt.Sprintf(pullSpinnerTemplateConstant, upstreamBranch.FriendlyName, mainBranch.FriendlyName), func() error {
		if refetchError := service.fetch(executionContext, options, remote.Name, authentication); refetchError != nil {
			return refetchError
		}
		return service.withNetworkTimeout(executionContext, options, func(networkContext context.Context) error {
			return service.repository.Pull(networkContext, gitrepo.PullRequest{
				RemoteName:     remote.Name,
				BranchName:     mainBranch.FriendlyName,
				Authentication: authentication,
			})
		})
	})
	if pullError != nil {
		return result, pullError
	}

	result.PullPerformed = true
	service.reporter.Success(fmt.Sprintf(fastForwardedMessageTemplateConstant, mainBranch.FriendlyName, upstreamBranch.FriendlyName))
	return result, nil
}

func (service *Service) selectRemote() (gitrepo.Remote, error) {
	remotes, remotesError := service.repository.Remotes()
	if remotesError != nil {
		return gitrepo.Remote{}, fmt.Errorf(remotesErrorTemplateConstant, remotesError)
	}

	switch len(remotes) {
	case 0:
		return gitrepo.Remote{}, ErrRemoteNotFound
	case 1:
		service.logger.Debug(remoteSelectedMessageConstant, zap.String(logFieldRemoteConstant, remotes[0].Name))
		return remotes[0], nil
	default:
		remoteNames := make([]string, 0, len(remotes))
		for _, remote := range remotes {
			remoteNames = append(remoteNames, remote.Name)
		}
		return gitrepo.Remote{}, fmt.Errorf(multipleRemotesTemplateConstant, ErrMultipleRemotes, strings.Join(remoteNames, remoteListSeparatorConstant))
	}
}

func (service *Service) fetch(executionContext context.Context, options Options, remoteName string, authentication *gitrepo.Authentication) error {
	return service.withNetworkTimeout(executionContext, options, func(networkContext context.Context) error {
		return service.repository.Fetch(networkContext, gitrepo.FetchRequest{
			RemoteName:     remoteName,
			RefSpecs:       []string{fmt.Sprintf(fetchRefSpecTemplateConstant, remoteName)},
			Prune:          true,
			FetchAllTags:   true,
			Authentication: authentication,
		})
	})
}

func (service *Service) ensureMainCheckedOut(mainBranch gitrepo.Branch) (bool, error) {
	headName, headError := service.repository.Head()
	if headError != nil {
		return false, fmt.Errorf(headErrorTemplateConstant, headError)
	}
	if headName == mainBranch.CanonicalName {
		service.reporter.Skipped(fmt.Sprintf(alreadyOnMainMessageTemplateConstant, mainBranch.FriendlyName))
		return false, nil
	}

	if checkoutError := service.repository.Checkout(mainBranch.CanonicalName); checkoutError != nil {
		return false, checkoutError
	}
	service.reporter.Success(fmt.Sprintf(checkedOutMessageTemplateConstant, mainBranch.FriendlyName))
	return true, nil
}

func (service *Service) withNetworkTimeout(executionContext context.Context, options Options, operation func(networkContext context.Context) error) error {
	if executionContext == nil {
		executionContext = context.Background()
	}
	if options.NetworkTimeout <= 0 {
		return operation(executionContext)
	}
	networkContext, cancel := context.WithTimeout(executionContext, options.NetworkTimeout)
	defer cancel()
	return operation(networkContext)
}

// locateUpstream finds the main branch's upstream among freshly fetched remote branches.
func locateUpstream(mainBranch gitrepo.Branch, remoteBranches []gitrepo.Branch) (gitrepo.Branch, error) {
	classification, classificationError := branches.ClassifyTracking(mainBranch, remoteBranches)
	if classificationError != nil {
		return gitrepo.Branch{}, classificationError
	}

	switch classification.Status {
	case branches.TrackingStatusHealthy:
		return classification.RemoteBranch, nil
	case branches.TrackingStatusUpstreamMissing:
		return gitrepo.Branch{}, fmt.Errorf(upstreamNotFetchedTemplateConstant, ErrMainBranchNotTracking, mainBranch.FriendlyName, plumbing.ReferenceName(classification.UpstreamName).Short())
	default:
		return gitrepo.Branch{}, fmt.Errorf(mainBranchNotTrackingTemplateConstant, ErrMainBranchNotTracking, mainBranch.FriendlyName)
	}
}
