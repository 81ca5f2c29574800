// Package gitrepo contains helpers for interrogating and manipulating Git repositories.
//
// It exposes Repository, a go-git backed handle used to enumerate remotes and
// branches, fetch, check out, fast-forward and delete branches, along with the
// remote URL helpers the credential resolver relies on.
package gitrepo
