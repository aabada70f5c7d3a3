package github

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// IdentifierKind says how an identifier is resolved to a commit.
type IdentifierKind int

const (
	// IdentifierRef is a branch or tag name resolved through the commits API.
	IdentifierRef IdentifierKind = iota
	// IdentifierPullRequest resolves to the pull request's head commit.
	IdentifierPullRequest
	// IdentifierSHA is a full commit SHA used as-is.
	IdentifierSHA
)

// Identifier is the parsed form of a user-supplied PR or commit reference.
type Identifier struct {
	Kind         IdentifierKind
	Number       int
	Ref          string
	RepoFullName string // Set only when the identifier is a PR URL.
}

var (
	fullSHA   = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)
	prURLPath = regexp.MustCompile(`^/([^/]+)/([^/]+)/pull/(\d+)(?:/.*)?$`)
)

// ParseIdentifier classifies identifier. Accepted forms are a PR number
// ("42" or "#42"), a PR URL, a 40-character commit SHA, or a ref name.
func ParseIdentifier(identifier string) (Identifier, error) {
	s := strings.TrimSpace(identifier)
	if s == "" {
		return Identifier{}, errors.New("empty identifier")
	}

	if n, ok := parsePRNumber(s); ok {
		return Identifier{Kind: IdentifierPullRequest, Number: n}, nil
	}

	if strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") {
		repo, n, err := ParsePullRequestURL(s)
		if err != nil {
			return Identifier{}, err
		}
		return Identifier{Kind: IdentifierPullRequest, Number: n, RepoFullName: repo}, nil
	}

	if fullSHA.MatchString(s) {
		return Identifier{Kind: IdentifierSHA, Ref: s}, nil
	}

	return Identifier{Kind: IdentifierRef, Ref: s}, nil
}

func parsePRNumber(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ParsePullRequestURL extracts "owner/repo" and the PR number from a URL such
// as https://github.com/owner/repo/pull/42/files.
func ParsePullRequestURL(raw string) (string, int, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, fmt.Errorf("parsing pull request URL: %w", err)
	}

	m := prURLPath.FindStringSubmatch(u.Path)
	if m == nil {
		return "", 0, fmt.Errorf("%q is not a pull request URL", raw)
	}

	n, err := strconv.Atoi(m[3])
	if err != nil || n <= 0 {
		return "", 0, fmt.Errorf("invalid pull request number in %q", raw)
	}

	return m[1] + "/" + m[2], n, nil
}
