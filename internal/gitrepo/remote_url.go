package gitrepo

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	sshUserDelimiterConstant            = "@"
	sshPathDelimiterConstant            = ":"
	schemeDelimiterConstant             = "://"
	pathSeparatorConstant               = "/"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	invalidRemoteURLMessageConstant     = "invalid remote url"
	requiredValueMessageConstant        = "value required"
	legacyAzureReplacementConstant      = "https://${organization}.visualstudio.com/"
)

// legacyAzurePattern matches https://{user@}dev.azure.com/{organization}/ prefixes.
var legacyAzurePattern = regexp.MustCompile(`^https://(?:[^@/]+@)?dev\.azure\.com/(?P<organization>[^/]+)/`)

// RemoteProtocol enumerates remote transport schemes.
type RemoteProtocol string

// Known remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTP  RemoteProtocol = RemoteProtocol("http")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
)

// RemoteEndpoint is the scheme and host pair credential helpers key credentials by.
type RemoteEndpoint struct {
	Protocol RemoteProtocol
	Host     string
}

// SupportsBasicAuthentication reports whether username/password credentials apply to the endpoint.
func (endpoint RemoteEndpoint) SupportsBasicAuthentication() bool {
	return endpoint.Protocol == RemoteProtocolHTTP || endpoint.Protocol == RemoteProtocolHTTPS
}

// RemoteURLParseError indicates a remote string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// NormalizeCredentialURL rewrites dev.azure.com remotes to the legacy
// {organization}.visualstudio.com host, keeping the rest of the path. Other URLs are returned unchanged.
func NormalizeCredentialURL(remote string) string {
	return legacyAzurePattern.ReplaceAllString(remote, legacyAzureReplacementConstant)
}

// ParseRemoteEndpoint extracts the scheme and host of a remote URL, including scp-like ssh remotes.
func ParseRemoteEndpoint(remote string) (RemoteEndpoint, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return RemoteEndpoint{}, RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	}

	if !strings.Contains(trimmedRemote, schemeDelimiterConstant) {
		return parseSCPLikeRemote(trimmedRemote)
	}

	parsedURL, parseError := url.Parse(trimmedRemote)
	if parseError != nil {
		return RemoteEndpoint{}, RemoteURLParseError{Input: remote, Message: parseError.Error()}
	}
	if len(parsedURL.Scheme) == 0 || len(parsedURL.Host) == 0 {
		return RemoteEndpoint{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}

	return RemoteEndpoint{Protocol: RemoteProtocol(strings.ToLower(parsedURL.Scheme)), Host: parsedURL.Host}, nil
}

func parseSCPLikeRemote(remote string) (RemoteEndpoint, error) {
	hostAndPath := remote
	if userSplitIndex := strings.Index(remote, sshUserDelimiterConstant); userSplitIndex >= 0 {
		hostAndPath = remote[userSplitIndex+1:]
	}
	pathSplitIndex := strings.Index(hostAndPath, sshPathDelimiterConstant)
	if pathSplitIndex <= 0 || strings.Contains(hostAndPath[:pathSplitIndex], pathSeparatorConstant) {
		return RemoteEndpoint{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	return RemoteEndpoint{Protocol: RemoteProtocolSSH, Host: hostAndPath[:pathSplitIndex]}, nil
}
