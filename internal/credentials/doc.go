// Package credentials resolves remote credentials through the git credential helper protocol.
//
// Resolver normalizes the remote URL, writes a protocol/host request block to
// `git credential fill` and parses the key=value response into Credentials.
package credentials
