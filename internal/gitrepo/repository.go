package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

const (
	repositoryNotFoundMessageConstant     = "no git repository found"
	nonFastForwardMessageConstant         = "branch has diverged from its upstream and cannot be fast-forwarded"
	currentBranchDeletionMessageConstant  = "cannot delete the currently checked out branch"
	branchNotFoundMessageConstant         = "branch not found"
	remoteNotFoundMessageConstant         = "remote not found"
	repositoryNotFoundTemplateConstant    = "%w at or above %s"
	repositoryOpenErrorTemplateConstant   = "unable to open repository at %s: %w"
	worktreeErrorTemplateConstant         = "unable to access worktree: %w"
	configurationErrorTemplateConstant    = "unable to read repository configuration: %w"
	referencesErrorTemplateConstant       = "unable to enumerate references: %w"
	headErrorTemplateConstant             = "unable to resolve HEAD: %w"
	fetchErrorTemplateConstant            = "fetch from %s failed: %w"
	checkoutErrorTemplateConstant         = "checkout of %s failed: %w"
	pullErrorTemplateConstant             = "pull of %s failed: %w"
	nonFastForwardTemplateConstant        = "%w: %s"
	branchNotFoundTemplateConstant        = "%w: %s"
	remoteNotFoundTemplateConstant        = "%w: %s"
	branchDeletionErrorTemplateConstant   = "unable to delete branch %s: %w"
	branchUpstreamMissingTemplateConstant = "branch %s has no upstream configured"
	localRemoteNameConstant               = "."
	remoteReferencePrefixTemplateConstant = "refs/remotes/%s/"
)

// ErrRepositoryNotFound indicates no repository exists at or above the requested directory.
var ErrRepositoryNotFound = errors.New(repositoryNotFoundMessageConstant)

// ErrNonFastForward indicates a pull would require a merge commit.
var ErrNonFastForward = errors.New(nonFastForwardMessageConstant)

// ErrIsCurrentBranch is returned when attempting to delete the checked-out branch.
var ErrIsCurrentBranch = errors.New(currentBranchDeletionMessageConstant)

// ErrBranchNotFound is returned when a branch reference does not exist.
var ErrBranchNotFound = errors.New(branchNotFoundMessageConstant)

// ErrRemoteNotFound is returned when a named remote is not configured.
var ErrRemoteNotFound = errors.New(remoteNotFoundMessageConstant)

// Repository is a go-git backed handle on a local working copy.
type Repository struct {
	repository *git.Repository
	rootPath   string
	clock      Clock
}

// Discover opens the repository containing path, walking up parent directories.
func Discover(path string) (*Repository, error) {
	repository, openError := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if openError != nil {
		if errors.Is(openError, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf(repositoryNotFoundTemplateConstant, ErrRepositoryNotFound, path)
		}
		return nil, fmt.Errorf(repositoryOpenErrorTemplateConstant, path, openError)
	}

	worktree, worktreeError := repository.Worktree()
	if worktreeError != nil {
		return nil, fmt.Errorf(worktreeErrorTemplateConstant, worktreeError)
	}

	return NewRepository(repository, worktree.Filesystem.Root(), SystemClock{}), nil
}

// NewRepository wraps an already opened go-git repository.
func NewRepository(repository *git.Repository, rootPath string, clock Clock) *Repository {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Repository{repository: repository, rootPath: rootPath, clock: clock}
}

// RootPath returns the working tree root.
func (repository *Repository) RootPath() string {
	return repository.rootPath
}

// Close releases storage handles held by the repository.
func (repository *Repository) Close() error {
	if closer, isCloser := repository.repository.Storer.(io.Closer); isCloser {
		return closer.Close()
	}
	return nil
}

// Remotes lists configured remotes with their first URL.
func (repository *Repository) Remotes() ([]Remote, error) {
	goGitRemotes, remotesError := repository.repository.Remotes()
	if remotesError != nil {
		return nil, fmt.Errorf(configurationErrorTemplateConstant, remotesError)
	}

	remotes := make([]Remote, 0, len(goGitRemotes))
	for _, goGitRemote := range goGitRemotes {
		remoteConfiguration := goGitRemote.Config()
		remote := Remote{Name: remoteConfiguration.Name}
		if len(remoteConfiguration.URLs) > 0 {
			remote.URL = remoteConfiguration.URLs[0]
		}
		remotes = append(remotes, remote)
	}

	sort.Slice(remotes, func(leftIndex int, rightIndex int) bool {
		return remotes[leftIndex].Name < remotes[rightIndex].Name
	})
	return remotes, nil
}

// Branches enumerates local and remote-tracking branches sorted by canonical name.
// Symbolic references such as origin/HEAD are skipped.
func (repository *Repository) Branches() ([]Branch, error) {
	repositoryConfiguration, configurationError := repository.repository.Config()
	if configurationError != nil {
		return nil, fmt.Errorf(configurationErrorTemplateConstant, configurationError)
	}

	references, referencesError := repository.repository.References()
	if referencesError != nil {
		return nil, fmt.Errorf(referencesErrorTemplateConstant, referencesError)
	}
	defer references.Close()

	branches := []Branch{}
	iterationError := references.ForEach(func(reference *plumbing.Reference) error {
		if reference.Type() != plumbing.HashReference {
			return nil
		}
		referenceName := reference.Name()
		switch {
		case referenceName.IsBranch():
			branches = append(branches, describeLocalBranch(reference, repositoryConfiguration))
		case referenceName.IsRemote():
			branches = append(branches, describeRemoteBranch(reference, repositoryConfiguration))
		}
		return nil
	})
	if iterationError != nil {
		return nil, fmt.Errorf(referencesErrorTemplateConstant, iterationError)
	}

	sort.Slice(branches, func(leftIndex int, rightIndex int) bool {
		return branches[leftIndex].CanonicalName < branches[rightIndex].CanonicalName
	})
	return branches, nil
}

func describeLocalBranch(reference *plumbing.Reference, repositoryConfiguration *config.Config) Branch {
	branch := Branch{
		CanonicalName: reference.Name().String(),
		FriendlyName:  reference.Name().Short(),
		TipHash:       reference.Hash().String(),
	}

	branchConfiguration, configured := repositoryConfiguration.Branches[branch.FriendlyName]
	if !configured || branchConfiguration == nil {
		return branch
	}
	if len(branchConfiguration.Remote) == 0 || len(branchConfiguration.Merge) == 0 {
		return branch
	}
	// remote = . tracks another local branch, not a remote-tracking branch.
	if branchConfiguration.Remote == localRemoteNameConstant {
		return branch
	}

	branch.IsTracking = true
	branch.TrackedBranchName = resolveUpstreamName(branchConfiguration, repositoryConfiguration.Remotes[branchConfiguration.Remote]).String()
	return branch
}

// resolveUpstreamName maps branch.<name>.merge through the remote's fetch refspecs.
func resolveUpstreamName(branchConfiguration *config.Branch, remoteConfiguration *config.RemoteConfig) plumbing.ReferenceName {
	if remoteConfiguration != nil {
		for _, fetchSpecification := range remoteConfiguration.Fetch {
			if fetchSpecification.Match(branchConfiguration.Merge) {
				return fetchSpecification.Dst(branchConfiguration.Merge)
			}
		}
	}
	return plumbing.NewRemoteReferenceName(branchConfiguration.Remote, branchConfiguration.Merge.Short())
}

func describeRemoteBranch(reference *plumbing.Reference, repositoryConfiguration *config.Config) Branch {
	branch := Branch{
		CanonicalName: reference.Name().String(),
		FriendlyName:  reference.Name().Short(),
		IsRemote:      true,
		TipHash:       reference.Hash().String(),
	}

	for remoteName := range repositoryConfiguration.Remotes {
		remotePrefix := fmt.Sprintf(remoteReferencePrefixTemplateConstant, remoteName)
		if strings.HasPrefix(branch.CanonicalName, remotePrefix) && len(remoteName) > len(branch.RemoteName) {
			branch.RemoteName = remoteName
		}
	}
	return branch
}

// Head returns the canonical name HEAD points at, or HEAD itself when detached.
func (repository *Repository) Head() (string, error) {
	headReference, headError := repository.repository.Head()
	if headError != nil {
		return "", fmt.Errorf(headErrorTemplateConstant, headError)
	}
	return headReference.Name().String(), nil
}

// Fetch downloads references from a remote. Being already up to date is not an error.
func (repository *Repository) Fetch(executionContext context.Context, request FetchRequest) error {
	authenticationMethod, authenticationError := repository.authenticationMethod(request.RemoteName, request.Authentication)
	if authenticationError != nil {
		return authenticationError
	}

	refSpecifications := make([]config.RefSpec, 0, len(request.RefSpecs))
	for _, refSpecification := range request.RefSpecs {
		refSpecifications = append(refSpecifications, config.RefSpec(refSpecification))
	}

	tagMode := git.TagFollowing
	if request.FetchAllTags {
		tagMode = git.AllTags
	}

	fetchError := repository.repository.FetchContext(executionContext, &git.FetchOptions{
		RemoteName: request.RemoteName,
		RefSpecs:   refSpecifications,
		Auth:       authenticationMethod,
		Tags:       tagMode,
		Prune:      request.Prune,
	})
	if fetchError != nil && !errors.Is(fetchError, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf(fetchErrorTemplateConstant, request.RemoteName, fetchError)
	}
	return nil
}

// Checkout switches the working tree and HEAD to the branch with the given canonical name.
func (repository *Repository) Checkout(canonicalName string) error {
	worktree, worktreeError := repository.repository.Worktree()
	if worktreeError != nil {
		return fmt.Errorf(worktreeErrorTemplateConstant, worktreeError)
	}
	checkoutError := worktree.Checkout(&git.CheckoutOptions{Branch: plumbing.ReferenceName(canonicalName)})
	if checkoutError != nil {
		return fmt.Errorf(checkoutErrorTemplateConstant, canonicalName, checkoutError)
	}
	return nil
}

// Pull fast-forwards the checked-out branch to its upstream. Diverged histories yield ErrNonFastForward.
func (repository *Repository) Pull(executionContext context.Context, request PullRequest) error {
	repositoryConfiguration, configurationError := repository.repository.Config()
	if configurationError != nil {
		return fmt.Errorf(configurationErrorTemplateConstant, configurationError)
	}
	branchConfiguration, configured := repositoryConfiguration.Branches[request.BranchName]
	if !configured || branchConfiguration == nil || len(branchConfiguration.Merge) == 0 {
		return fmt.Errorf(branchUpstreamMissingTemplateConstant, request.BranchName)
	}

	authenticationMethod, authenticationError := repository.authenticationMethod(request.RemoteName, request.Authentication)
	if authenticationError != nil {
		return authenticationError
	}

	worktree, worktreeError := repository.repository.Worktree()
	if worktreeError != nil {
		return fmt.Errorf(worktreeErrorTemplateConstant, worktreeError)
	}

	pullError := worktree.PullContext(executionContext, &git.PullOptions{
		RemoteName:    request.RemoteName,
		ReferenceName: branchConfiguration.Merge,
		SingleBranch:  true,
		Auth:          authenticationMethod,
	})
	switch {
	case pullError == nil, errors.Is(pullError, git.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(pullError, git.ErrNonFastForwardUpdate):
		return fmt.Errorf(nonFastForwardTemplateConstant, ErrNonFastForward, request.BranchName)
	default:
		return fmt.Errorf(pullErrorTemplateConstant, request.BranchName, pullError)
	}
}

// DeleteBranch removes a local branch and its configuration section.
func (repository *Repository) DeleteBranch(branchName string) error {
	branchReferenceName := plumbing.NewBranchReferenceName(branchName)

	headReference, headError := repository.repository.Head()
	if headError == nil && headReference.Name() == branchReferenceName {
		return fmt.Errorf(branchDeletionErrorTemplateConstant, branchName, ErrIsCurrentBranch)
	}

	if _, referenceError := repository.repository.Reference(branchReferenceName, false); referenceError != nil {
		if errors.Is(referenceError, plumbing.ErrReferenceNotFound) {
			return fmt.Errorf(branchNotFoundTemplateConstant, ErrBranchNotFound, branchName)
		}
		return fmt.Errorf(branchDeletionErrorTemplateConstant, branchName, referenceError)
	}

	if removeError := repository.repository.Storer.RemoveReference(branchReferenceName); removeError != nil {
		return fmt.Errorf(branchDeletionErrorTemplateConstant, branchName, removeError)
	}

	configurationError := repository.repository.DeleteBranch(branchName)
	if configurationError != nil && !errors.Is(configurationError, git.ErrBranchNotFound) {
		return fmt.Errorf(branchDeletionErrorTemplateConstant, branchName, configurationError)
	}
	return nil
}

// BuildSignature reads user.name and user.email from the merged git configuration and stamps the current time.
func (repository *Repository) BuildSignature() (Signature, error) {
	repositoryConfiguration, configurationError := repository.repository.ConfigScoped(config.GlobalScope)
	if configurationError != nil {
		repositoryConfiguration, configurationError = repository.repository.Config()
		if configurationError != nil {
			return Signature{}, fmt.Errorf(configurationErrorTemplateConstant, configurationError)
		}
	}

	return Signature{
		Name:  repositoryConfiguration.User.Name,
		Email: repositoryConfiguration.User.Email,
		When:  repository.clock.Now(),
	}, nil
}

func (repository *Repository) authenticationMethod(remoteName string, authentication *Authentication) (transport.AuthMethod, error) {
	if authentication == nil {
		return nil, nil
	}

	goGitRemote, remoteError := repository.repository.Remote(remoteName)
	if remoteError != nil {
		if errors.Is(remoteError, git.ErrRemoteNotFound) {
			return nil, fmt.Errorf(remoteNotFoundTemplateConstant, ErrRemoteNotFound, remoteName)
		}
		return nil, fmt.Errorf(configurationErrorTemplateConstant, remoteError)
	}

	remoteURLs := goGitRemote.Config().URLs
	if len(remoteURLs) == 0 {
		return nil, nil
	}
	endpoint, parseError := ParseRemoteEndpoint(remoteURLs[0])
	if parseError != nil || !endpoint.SupportsBasicAuthentication() {
		return nil, nil
	}

	return &http.BasicAuth{Username: authentication.Username, Password: authentication.Password}, nil
}
