package model

// Target identifies what a wait is watching: a repository plus the
// user-supplied identifier (PR number, PR URL, branch or commit SHA).
type Target struct {
	RepoFullName string
	Identifier   string
}
