package refresh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/upkeep/internal/branches"
	"github.com/temirov/upkeep/internal/credentials"
	"github.com/temirov/upkeep/internal/gitrepo"
)

const (
	testRemoteNameConstant       = "origin"
	testRemoteURLConstant        = "https://github.com/example/repo.git"
	testMainCanonicalConstant    = "refs/heads/main"
	testMainFriendlyConstant     = "main"
	testUpstreamCanonicalName    = "refs/remotes/origin/main"
	testUpstreamFriendlyConstant = "origin/main"
	testFeatureCanonicalConstant = "refs/heads/feature-x"
	testLocalTipConstant         = "1111111111111111111111111111111111111111"
	testRemoteTipConstant        = "2222222222222222222222222222222222222222"
	testUsernameConstant         = "someone"
	testPasswordConstant         = "token-value"
	testSignatureNameConstant    = "Upkeep Tester"
	testSignatureEmailConstant   = "tester@example.com"
)

type fakeRepository struct {
	remotes        []gitrepo.Remote
	remotesError   error
	head           string
	fetchError     error
	checkoutError  error
	pullError      error
	signature      gitrepo.Signature
	operations     []string
	fetchRequests  []gitrepo.FetchRequest
	pullRequests   []gitrepo.PullRequest
	checkouts      []string
	fetchDeadlines []bool
}

func (repository *fakeRepository) Remotes() ([]gitrepo.Remote, error) {
	return repository.remotes, repository.remotesError
}

func (repository *fakeRepository) Head() (string, error) {
	return repository.head, nil
}

func (repository *fakeRepository) Fetch(executionContext context.Context, request gitrepo.FetchRequest) error {
	_, hasDeadline := executionContext.Deadline()
	repository.fetchDeadlines = append(repository.fetchDeadlines, hasDeadline)
	repository.operations = append(repository.operations, "fetch")
	repository.fetchRequests = append(repository.fetchRequests, request)
	return repository.fetchError
}

func (repository *fakeRepository) Checkout(canonicalName string) error {
	repository.operations = append(repository.operations, "checkout")
	repository.checkouts = append(repository.checkouts, canonicalName)
	return repository.checkoutError
}

func (repository *fakeRepository) Pull(_ context.Context, request gitrepo.PullRequest) error {
	repository.operations = append(repository.operations, "pull")
	repository.pullRequests = append(repository.pullRequests, request)
	return repository.pullError
}

func (repository *fakeRepository) BuildSignature() (gitrepo.Signature, error) {
	return repository.signature, nil
}

type fakeCredentialResolver struct {
	resolved    credentials.Credentials
	resolveErr  error
	requestURLs []string
}

func (resolver *fakeCredentialResolver) Resolve(_ context.Context, remoteURL string) (credentials.Credentials, error) {
	resolver.requestURLs = append(resolver.requestURLs, remoteURL)
	return resolver.resolved, resolver.resolveErr
}

type fakeBranchReader struct {
	branchSet branches.BranchSet
	readError error
}

func (reader *fakeBranchReader) ReadBranches() (branches.BranchSet, error) {
	return reader.branchSet, reader.readError
}

type recordingReporter struct {
	spinnerLabels []string
	messages      []string
}

func (reporter *recordingReporter) RunWithSpinner(label string, operation func() error) error {
	reporter.spinnerLabels = append(reporter.spinnerLabels, label)
	return operation()
}

func (reporter *recordingReporter) Info(message string) {
	reporter.messages = append(reporter.messages, "info: "+message)
}

func (reporter *recordingReporter) Success(message string) {
	reporter.messages = append(reporter.messages, "success: "+message)
}

func (reporter *recordingReporter) Skipped(message string) {
	reporter.messages = append(reporter.messages, "skipped: "+message)
}

func trackingMainBranch(tipHash string) gitrepo.Branch {
	return gitrepo.Branch{
		CanonicalName:     testMainCanonicalConstant,
		FriendlyName:      testMainFriendlyConstant,
		IsTracking:        true,
		TrackedBranchName: testUpstreamCanonicalName,
		TipHash:           tipHash,
	}
}

func upstreamBranch(tipHash string) gitrepo.Branch {
	return gitrepo.Branch{
		CanonicalName: testUpstreamCanonicalName,
		FriendlyName:  testUpstreamFriendlyConstant,
		IsRemote:      true,
		TipHash:       tipHash,
		RemoteName:    testRemoteNameConstant,
	}
}

type refreshFixture struct {
	repository *fakeRepository
	resolver   *fakeCredentialResolver
	reader     *fakeBranchReader
	reporter   *recordingReporter
}

func newRefreshFixture(mainBranch gitrepo.Branch, remoteBranches []gitrepo.Branch) *refreshFixture {
	return &refreshFixture{
		repository: &fakeRepository{
			remotes:   []gitrepo.Remote{{Name: testRemoteNameConstant, URL: testRemoteURLConstant}},
			head:      testMainCanonicalConstant,
			signature: gitrepo.Signature{Name: testSignatureNameConstant, Email: testSignatureEmailConstant, When: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)},
		},
		resolver: &fakeCredentialResolver{resolved: credentials.Credentials{Username: testUsernameConstant, Password: testPasswordConstant}},
		reader: &fakeBranchReader{branchSet: branches.BranchSet{
			RemoteBranches: remoteBranches,
			MainBranch:     mainBranch,
		}},
		reporter: &recordingReporter{},
	}
}

func (fixture *refreshFixture) service(testInstance *testing.T, logger *zap.Logger) *Service {
	testInstance.Helper()
	service, serviceError := NewService(Dependencies{
		Repository:         fixture.repository,
		CredentialResolver: fixture.resolver,
		BranchReader:       fixture.reader,
		Reporter:           fixture.reporter,
		Logger:             logger,
	})
	require.NoError(testInstance, serviceError)
	return service
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	fixture := newRefreshFixture(trackingMainBranch(testLocalTipConstant), nil)
	testCases := []struct {
		name         string
		dependencies Dependencies
		expectedErr  error
	}{
		{
			name:         "MissingRepository",
			dependencies: Dependencies{CredentialResolver: fixture.resolver, BranchReader: fixture.reader, Reporter: fixture.reporter},
			expectedErr:  ErrRepositoryNotConfigured,
		},
		{
			name:         "MissingCredentialResolver",
			dependencies: Dependencies{Repository: fixture.repository, BranchReader: fixture.reader, Reporter: fixture.reporter},
			expectedErr:  ErrCredentialResolverNotConfigured,
		},
		{
			name:         "MissingBranchReader",
			dependencies: Dependencies{Repository: fixture.repository, CredentialResolver: fixture.resolver, Reporter: fixture.reporter},
			expectedErr:  ErrBranchReaderNotConfigured,
		},
		{
			name:         "MissingReporter",
			dependencies: Dependencies{Repository: fixture.repository, CredentialResolver: fixture.resolver, BranchReader: fixture.reader},
			expectedErr:  ErrReporterNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			service, creationError := NewService(testCase.dependencies)
			require.ErrorIs(subTest, creationError, testCase.expectedErr)
			require.Nil(subTest, service)
		})
	}
}

func TestRefreshRequiresExactlyOneRemote(testInstance *testing.T) {
	testCases := []struct {
		name          string
		remotes       []gitrepo.Remote
		expectedError error
		expectedText  string
	}{
		{
			name:          "NoRemote",
			remotes:       nil,
			expectedError: ErrRemoteNotFound,
		},
		{
			name: "TwoRemotes",
			remotes: []gitrepo.Remote{
				{Name: testRemoteNameConstant, URL: testRemoteURLConstant},
				{Name: "upstream", URL: "https://github.com/other/repo.git"},
			},
			expectedError: ErrMultipleRemotes,
			expectedText:  "origin, upstream",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			fixture := newRefreshFixture(trackingMainBranch(testLocalTipConstant), []gitrepo.Branch{upstreamBranch(testLocalTipConstant)})
			fixture.repository.remotes = testCase.remotes

			_, refreshError := fixture.service(subTest, nil).Refresh(context.Background(), Options{})
			require.ErrorIs(subTest, refreshError, testCase.expectedError)
			if len(testCase.expectedText) > 0 {
				require.Contains(subTest, refreshError.Error(), testCase.expectedText)
			}
			require.Empty(subTest, fixture.resolver.requestURLs)
			require.Empty(subTest, fixture.repository.operations)
		})
	}
}

func TestRefreshStopsWhenCredentialsFail(testInstance *testing.T) {
	fixture := newRefreshFixture(trackingMainBranch(testLocalTipConstant), []gitrepo.Branch{upstreamBranch(testLocalTipConstant)})
	fixture.resolver.resolveErr = credentials.ErrMissingCredentialField

	_, refreshError := fixture.service(testInstance, nil).Refresh(context.Background(), Options{})
	require.ErrorIs(testInstance, refreshError, credentials.ErrMissingCredentialField)
	require.Contains(testInstance, refreshError.Error(), "unable to obtain credentials for origin")
	require.Empty(testInstance, fixture.repository.operations)
}

func TestRefreshFetchesWithPruneTagsAndCredentials(testInstance *testing.T) {
	fixture := newRefreshFixture(trackingMainBranch(testLocalTipConstant), []gitrepo.Branch{upstreamBranch(testLocalTipConstant)})

	result, refreshError := fixture.service(testInstance, nil).Refresh(context.Background(), Options{})
	require.NoError(testInstance, refreshError)

	require.Equal(testInstance, []string{testRemoteURLConstant}, fixture.resolver.requestURLs)
	require.Len(testInstance, fixture.repository.fetchRequests, 1)
	fetchRequest := fixture.repository.fetchRequests[0]
	require.Equal(testInstance, testRemoteNameConstant, fetchRequest.RemoteName)
	require.Equal(testInstance, []string{"+refs/heads/*:refs/remotes/origin/*"}, fetchRequest.RefSpecs)
	require.True(testInstance, fetchRequest.Prune)
	require.True(testInstance, fetchRequest.FetchAllTags)
	require.Equal(testInstance, &gitrepo.Authentication{Username: testUsernameConstant, Password: testPasswordConstant}, fetchRequest.Authentication)

	require.Equal(testInstance, Result{RemoteName: testRemoteNameConstant, MainBranchName: testMainFriendlyConstant}, result)
	require.Equal(testInstance, []string{"Fetching origin"}, fixture.reporter.spinnerLabels)
	require.Equal(testInstance, []string{
		"info: Using remote origin",
		"success: Fetched origin",
		"skipped: Already on main",
		"skipped: main is up to date with origin/main",
	}, fixture.reporter.messages)
}

func TestRefreshFetchFailureIsFatal(testInstance *testing.T) {
	fetchFailure := errors.New("connection reset")
	fixture := newRefreshFixture(trackingMainBranch(testLocalTipConstant), []gitrepo.Branch{upstreamBranch(testLocalTipConstant)})
	fixture.repository.fetchError = fetchFailure

	_, refreshError := fixture.service(testInstance, nil).Refresh(context.Background(), Options{})
	require.ErrorIs(testInstance, refreshError, fetchFailure)
	require.Equal(testInstance, []string{"fetch"}, fixture.repository.operations)
}

func TestRefreshChecksOutMainWhenElsewhere(testInstance *testing.T) {
	testCases := []struct {
		name              string
		checkoutError     error
		expectCheckout    bool
		expectedErrorText string
	}{
		{
			name:           "CheckoutSucceeds",
			expectCheckout: true,
		},
		{
			name:              "CheckoutFails",
			checkoutError:     errors.New("worktree contains unstaged changes"),
			expectedErrorText: "worktree contains unstaged changes",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			fixture := newRefreshFixture(trackingMainBranch(testLocalTipConstant), []gitrepo.Branch{upstreamBranch(testLocalTipConstant)})
			fixture.repository.head = testFeatureCanonicalConstant
			fixture.repository.checkoutError = testCase.checkoutError

			result, refreshError := fixture.service(subTest, nil).Refresh(context.Background(), Options{})
			require.Equal(subTest, []string{testMainCanonicalConstant}, fixture.repository.checkouts)
			if len(testCase.expectedErrorText) > 0 {
				require.ErrorContains(subTest, refreshError, testCase.expectedErrorText)
				require.False(subTest, result.CheckoutPerformed)
				return
			}
			require.NoError(subTest, refreshError)
			require.True(subTest, result.CheckoutPerformed)
			require.Contains(subTest, fixture.reporter.messages, "success: Checked out main")
		})
	}
}

func TestRefreshFastForwardsWhenUpstreamMoved(testInstance *testing.T) {
	observedCore, observedLogs := observer.New(zapcore.InfoLevel)
	fixture := newRefreshFixture(trackingMainBranch(testLocalTipConstant), []gitrepo.Branch{upstreamBranch(testRemoteTipConstant)})

	result, refreshError := fixture.service(testInstance, zap.New(observedCore)).Refresh(context.Background(), Options{})
	require.NoError(testInstance, refreshError)
	require.True(testInstance, result.PullPerformed)

	require.Equal(testInstance, []string{"fetch", "fetch", "pull"}, fixture.repository.operations)
	require.Equal(testInstance, []gitrepo.PullRequest{{
		RemoteName:     testRemoteNameConstant,
		BranchName:     testMainFriendlyConstant,
		Authentication: &gitrepo.Authentication{Username: testUsernameConstant, Password: testPasswordConstant},
	}}, fixture.repository.pullRequests)
	require.True(testInstance, fixture.repository.fetchRequests[1].Prune)
	require.Equal(testInstance, []string{"Fetching origin", "Pulling origin/main into main"}, fixture.reporter.spinnerLabels)
	require.Contains(testInstance, fixture.reporter.messages, "success: Fast-forwarded main to origin/main")

	identityEntries := observedLogs.FilterMessage(mergeIdentityMessageConstant).All()
	require.Len(testInstance, identityEntries, 1)
	identityFields := identityEntries[0].ContextMap()
	require.Equal(testInstance, testSignatureNameConstant, identityFields[logFieldNameConstant])
	require.Equal(testInstance, testSignatureEmailConstant, identityFields[logFieldEmailConstant])
	for _, entry := range observedLogs.All() {
		for _, fieldValue := range entry.ContextMap() {
			require.NotEqual(testInstance, testPasswordConstant, fieldValue)
		}
	}
}

func TestRefreshSurfacesNonFastForward(testInstance *testing.T) {
	fixture := newRefreshFixture(trackingMainBranch(testLocalTipConstant), []gitrepo.Branch{upstreamBranch(testRemoteTipConstant)})
	fixture.repository.pullError = gitrepo.ErrNonFastForward

	result, refreshError := fixture.service(testInstance, nil).Refresh(context.Background(), Options{})
	require.ErrorIs(testInstance, refreshError, gitrepo.ErrNonFastForward)
	require.False(testInstance, result.PullPerformed)
}

func TestRefreshRequiresMainUpstream(testInstance *testing.T) {
	untrackedMain := gitrepo.Branch{CanonicalName: testMainCanonicalConstant, FriendlyName: testMainFriendlyConstant, TipHash: testLocalTipConstant}
	testCases := []struct {
		name           string
		mainBranch     gitrepo.Branch
		remoteBranches []gitrepo.Branch
		expectedText   string
	}{
		{
			name:           "MainNotTracking",
			mainBranch:     untrackedMain,
			remoteBranches: []gitrepo.Branch{upstreamBranch(testLocalTipConstant)},
			expectedText:   "no remote tracking branch found for main",
		},
		{
			name:           "UpstreamMissingAfterFetch",
			mainBranch:     trackingMainBranch(testLocalTipConstant),
			remoteBranches: nil,
			expectedText:   "origin/main is not present after fetch",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			fixture := newRefreshFixture(testCase.mainBranch, testCase.remoteBranches)

			_, refreshError := fixture.service(subTest, nil).Refresh(context.Background(), Options{})
			require.ErrorIs(subTest, refreshError, ErrMainBranchNotTracking)
			require.ErrorContains(subTest, refreshError, testCase.expectedText)
			require.NotContains(subTest, fixture.repository.operations, "pull")
		})
	}
}

func TestRefreshPropagatesBranchReadErrors(testInstance *testing.T) {
	fixture := newRefreshFixture(gitrepo.Branch{}, nil)
	fixture.reader.readError = branches.ErrMainBranchNotFound

	_, refreshError := fixture.service(testInstance, nil).Refresh(context.Background(), Options{})
	require.ErrorIs(testInstance, refreshError, branches.ErrMainBranchNotFound)
}

func TestRefreshAppliesNetworkTimeout(testInstance *testing.T) {
	testCases := []struct {
		name             string
		timeout          time.Duration
		expectedDeadline bool
	}{
		{name: "Unbounded", timeout: 0, expectedDeadline: false},
		{name: "Bounded", timeout: time.Minute, expectedDeadline: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			fixture := newRefreshFixture(trackingMainBranch(testLocalTipConstant), []gitrepo.Branch{upstreamBranch(testLocalTipConstant)})

			_, refreshError := fixture.service(subTest, nil).Refresh(context.Background(), Options{NetworkTimeout: testCase.timeout})
			require.NoError(subTest, refreshError)
			require.Equal(subTest, []bool{testCase.expectedDeadline}, fixture.repository.fetchDeadlines)
		})
	}
}

func TestCommandConfigurationSanitizesNegativeTimeout(testInstance *testing.T) {
	configuration := CommandConfiguration{NetworkTimeout: -time.Second}
	require.Equal(testInstance, Options{NetworkTimeout: 0}, configuration.Options())
	require.Equal(testInstance, Options{NetworkTimeout: 5 * time.Second}, CommandConfiguration{NetworkTimeout: 5 * time.Second}.Options())
}
