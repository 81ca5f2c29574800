package credentials

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/upkeep/internal/execshell"
	"github.com/temirov/upkeep/internal/gitrepo"
)

const (
	gitCredentialSubcommandConstant      = "credential"
	gitCredentialFillActionConstant      = "fill"
	executorMissingMessageConstant       = "credential resolver git executor not configured"
	remoteURLParseErrorTemplateConstant  = "unable to parse remote url for credentials: %w"
	helperExecutionErrorTemplateConstant = "unable to run git credential fill: %w"
	credentialsResolvedMessageConstant   = "credentials resolved"
	credentialURLRewrittenMessage        = "credential url rewritten to legacy host"
	logFieldProtocolConstant             = "protocol"
	logFieldHostConstant                 = "host"
	logFieldUsernameConstant             = "username"
	logFieldOriginalURLConstant          = "original_url"
	logFieldNormalizedURLConstant        = "normalized_url"
	logFieldExitCodeConstant             = "exit_code"
	helperExitCodeIgnoredMessageConstant = "credential helper exited with non-zero status"
)

// ErrGitExecutorNotConfigured indicates the resolver was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(executorMissingMessageConstant)

// Credentials is a username and password (or token) pair for one scheme and host.
type Credentials struct {
	Username string
	Password string
}

// String masks the password so credentials never leak into logs.
func (credentials Credentials) String() string {
	return fmt.Sprintf("%s:****", credentials.Username)
}

// GitExecutor runs git subcommands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Resolver obtains credentials from the configured git credential helpers.
type Resolver struct {
	executor         GitExecutor
	logger           *zap.Logger
	workingDirectory string
}

// NewResolver constructs a Resolver running helpers from workingDirectory.
func NewResolver(executor GitExecutor, logger *zap.Logger, workingDirectory string) (*Resolver, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{executor: executor, logger: logger, workingDirectory: workingDirectory}, nil
}

// Resolve runs one `git credential fill` exchange for the remote URL. There is no retry.
func (resolver *Resolver) Resolve(executionContext context.Context, remoteURL string) (Credentials, error) {
	normalizedURL := gitrepo.NormalizeCredentialURL(remoteURL)
	if normalizedURL != remoteURL {
		resolver.logger.Debug(
			credentialURLRewrittenMessage,
			zap.String(logFieldOriginalURLConstant, remoteURL),
			zap.String(logFieldNormalizedURLConstant, normalizedURL),
		)
	}

	endpoint, parseError := gitrepo.ParseRemoteEndpoint(normalizedURL)
	if parseError != nil {
		return Credentials{}, fmt.Errorf(remoteURLParseErrorTemplateConstant, parseError)
	}

	executionResult, executionError := resolver.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitCredentialSubcommandConstant, gitCredentialFillActionConstant},
		WorkingDirectory:     resolver.workingDirectory,
		StandardInput:        BuildRequest(string(endpoint.Protocol), endpoint.Host),
		ForwardStandardError: true,
	})
	if executionError != nil {
		// The exit status is not authoritative; missing fields are the failure signal.
		var failedError execshell.CommandFailedError
		if !errors.As(executionError, &failedError) {
			return Credentials{}, fmt.Errorf(helperExecutionErrorTemplateConstant, executionError)
		}
		resolver.logger.Debug(helperExitCodeIgnoredMessageConstant, zap.Int(logFieldExitCodeConstant, failedError.Result.ExitCode))
		executionResult = failedError.Result
	}

	attributes, responseError := ParseResponse(executionResult.StandardOutput)
	if responseError != nil {
		return Credentials{}, responseError
	}

	username, usernameError := requireAttribute(attributes, usernameKeyConstant)
	if usernameError != nil {
		return Credentials{}, usernameError
	}
	password, passwordError := requireAttribute(attributes, passwordKeyConstant)
	if passwordError != nil {
		return Credentials{}, passwordError
	}

	resolver.logger.Info(
		credentialsResolvedMessageConstant,
		zap.String(logFieldProtocolConstant, string(endpoint.Protocol)),
		zap.String(logFieldHostConstant, endpoint.Host),
		zap.String(logFieldUsernameConstant, username),
	)
	return Credentials{Username: username, Password: password}, nil
}
