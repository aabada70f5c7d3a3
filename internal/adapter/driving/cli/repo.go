package cli

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	ghAdapter "github.com/ericfisherdev/ciwatch/internal/adapter/driven/github"
	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// GitRemoteFunc returns the URL of the current repository's origin remote.
type GitRemoteFunc func(ctx context.Context) (string, error)

func gitOriginURL(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "git", "remote", "get-url", "origin").Output()
	if err != nil {
		return "", fmt.Errorf("git remote get-url origin: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// remotePattern matches https, ssh and scp-style GitHub remotes.
var remotePattern = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/]+?)(?:\.git)?/?$`)

// parseRemoteURL extracts "owner/repo" from a GitHub remote URL.
func parseRemoteURL(remote string) (string, bool) {
	m := remotePattern.FindStringSubmatch(strings.TrimSpace(remote))
	if m == nil {
		return "", false
	}
	return m[1] + "/" + m[2], true
}

// resolveTarget works out which repository the identifier belongs to. A PR
// URL names its own repository; otherwise the configured repo is used, and
// failing that the origin remote of the working directory.
func resolveTarget(ctx context.Context, identifier, repo string, remote GitRemoteFunc) (model.Target, error) {
	identifier = strings.TrimSpace(identifier)

	id, err := ghAdapter.ParseIdentifier(identifier)
	if err != nil {
		return model.Target{}, err
	}
	if id.RepoFullName != "" {
		return model.Target{RepoFullName: id.RepoFullName, Identifier: identifier}, nil
	}

	if repo == "" && remote != nil {
		url, err := remote(ctx)
		if err != nil {
			return model.Target{}, fmt.Errorf("no repository given (use --repo owner/repo): %w", err)
		}
		var ok bool
		if repo, ok = parseRemoteURL(url); !ok {
			return model.Target{}, fmt.Errorf("origin remote %q is not a GitHub repository; use --repo owner/repo", url)
		}
	}
	if repo == "" {
		return model.Target{}, errors.New("no repository given (use --repo owner/repo)")
	}

	return model.Target{RepoFullName: repo, Identifier: identifier}, nil
}
