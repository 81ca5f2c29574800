package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

const (
	protocolErrorTemplateConstant        = "credential helper protocol error: %v"
	protocolKeyErrorTemplateConstant     = "credential helper protocol error: %v %q"
	protocolLineErrorTemplateConstant    = "credential helper protocol error on line %d: %v"
	protocolLineKeyErrorTemplateConstant = "credential helper protocol error on line %d: %v %q"
	malformedLineMessageConstant         = "expected key=value"
	duplicateKeyMessageConstant          = "duplicate key"
	missingFieldMessageConstant          = "response is missing"
	keyValueSeparatorConstant            = "="
	requestLineTemplateConstant          = "%s=%s\n"
	requestTerminatorConstant            = "\n"
	carriageReturnConstant               = "\r"
	protocolKeyConstant                  = "protocol"
	hostKeyConstant                      = "host"
	usernameKeyConstant                  = "username"
	passwordKeyConstant                  = "password"
)

// ErrMalformedLine indicates a response line without a key=value separator or with an empty key.
var ErrMalformedLine = errors.New(malformedLineMessageConstant)

// ErrDuplicateKey indicates the helper repeated an attribute.
var ErrDuplicateKey = errors.New(duplicateKeyMessageConstant)

// ErrMissingCredentialField indicates the helper omitted username or password.
var ErrMissingCredentialField = errors.New(missingFieldMessageConstant)

// ProtocolError reports a credential helper response that violates the key=value protocol.
type ProtocolError struct {
	// LineNumber is 1-based, zero when the error is not tied to a line.
	LineNumber int
	Key        string
	Cause      error
}

// Error describes the protocol violation.
func (protocolError ProtocolError) Error() string {
	switch {
	case protocolError.LineNumber > 0 && len(protocolError.Key) > 0:
		return fmt.Sprintf(protocolLineKeyErrorTemplateConstant, protocolError.LineNumber, protocolError.Cause, protocolError.Key)
	case protocolError.LineNumber > 0:
		return fmt.Sprintf(protocolLineErrorTemplateConstant, protocolError.LineNumber, protocolError.Cause)
	case len(protocolError.Key) > 0:
		return fmt.Sprintf(protocolKeyErrorTemplateConstant, protocolError.Cause, protocolError.Key)
	default:
		return fmt.Sprintf(protocolErrorTemplateConstant, protocolError.Cause)
	}
}

// Unwrap exposes the protocol sentinel.
func (protocolError ProtocolError) Unwrap() error {
	return protocolError.Cause
}

// BuildRequest renders the request block: protocol, host, then the terminating blank line.
func BuildRequest(protocol string, host string) []byte {
	var requestBuilder strings.Builder
	fmt.Fprintf(&requestBuilder, requestLineTemplateConstant, protocolKeyConstant, protocol)
	fmt.Fprintf(&requestBuilder, requestLineTemplateConstant, hostKeyConstant, host)
	requestBuilder.WriteString(requestTerminatorConstant)
	return []byte(requestBuilder.String())
}

// ParseResponse reads key=value lines until the end of the response, splitting on the first '='.
// A blank line ends the attribute block; lines after it are ignored. Empty keys are malformed.
// Duplicate keys are rejected rather than overwritten.
func ParseResponse(response string) (map[string]string, error) {
	attributes := map[string]string{}
	scanner := bufio.NewScanner(strings.NewReader(response))
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSuffix(scanner.Text(), carriageReturnConstant)
		if len(line) == 0 {
			break
		}

		key, value, found := strings.Cut(line, keyValueSeparatorConstant)
		if !found || len(key) == 0 {
			return nil, ProtocolError{LineNumber: lineNumber, Cause: ErrMalformedLine}
		}
		if _, duplicate := attributes[key]; duplicate {
			return nil, ProtocolError{LineNumber: lineNumber, Key: key, Cause: ErrDuplicateKey}
		}
		attributes[key] = value
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, ProtocolError{LineNumber: lineNumber + 1, Cause: scanError}
	}
	return attributes, nil
}

func requireAttribute(attributes map[string]string, key string) (string, error) {
	value, present := attributes[key]
	if !present {
		return "", ProtocolError{Key: key, Cause: ErrMissingCredentialField}
	}
	return value, nil
}
