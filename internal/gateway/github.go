package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// GitHubInvoker serves source-control commands natively through the GitHub
// API instead of a wrapper process. Clone and pull need a working tree and
// are not supported here; configure a wrapper for full-repository sources.
type GitHubInvoker struct {
	client *github.Client
}

// NewGitHubInvoker creates an authenticated invoker. An empty token yields
// an unauthenticated client subject to much lower rate limits.
func NewGitHubInvoker(token string) *GitHubInvoker {
	var client *github.Client
	if token == "" {
		client = github.NewClient(nil)
	} else {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(context.Background(), ts))
	}
	return &GitHubInvoker{client: client}
}

// Invoke implements Invoker.
func (g *GitHubInvoker) Invoke(ctx context.Context, cmd Command) ([]byte, error) {
	switch cmd.Action {
	case ActionHealthCheck:
		return []byte(`{"status":"ok"}`), g.Probe(ctx)
	case ActionGetFileContent:
		return g.getFileContent(ctx, cmd)
	case ActionGetCommitInfo:
		return g.getCommitInfo(ctx, cmd)
	case ActionListReleases:
		return g.listReleases(ctx, cmd)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAction, cmd.Action)
	}
}

// Probe implements Invoker with a rate-limit query, which does not consume
// API quota.
func (g *GitHubInvoker) Probe(ctx context.Context) error {
	if _, _, err := g.client.RateLimit.Get(ctx); err != nil {
		return fmt.Errorf("github probe failed: %w", err)
	}
	return nil
}

func (g *GitHubInvoker) getFileContent(ctx context.Context, cmd Command) ([]byte, error) {
	owner, repo, err := splitRepository(stringParam(cmd, "repository"))
	if err != nil {
		return nil, err
	}
	path := stringParam(cmd, "path")
	opts := &github.RepositoryContentGetOptions{Ref: stringParam(cmd, "branch")}

	file, _, _, err := g.client.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, fmt.Errorf("get contents of %s: %w", path, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode contents of %s: %w", path, err)
	}

	return json.Marshal(map[string]any{
		"path":    path,
		"sha":     file.GetSHA(),
		"content": content,
	})
}

func (g *GitHubInvoker) getCommitInfo(ctx context.Context, cmd Command) ([]byte, error) {
	owner, repo, err := splitRepository(stringParam(cmd, "repository"))
	if err != nil {
		return nil, err
	}
	ref := stringParam(cmd, "branch")

	commit, _, err := g.client.Repositories.GetCommit(ctx, owner, repo, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("get commit %s: %w", ref, err)
	}

	return json.Marshal(map[string]any{
		"sha":     commit.GetSHA(),
		"message": commit.GetCommit().GetMessage(),
		"author":  commit.GetCommit().GetAuthor().GetName(),
		"date":    commit.GetCommit().GetAuthor().GetDate().Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (g *GitHubInvoker) listReleases(ctx context.Context, cmd Command) ([]byte, error) {
	owner, repo, err := splitRepository(stringParam(cmd, "repository"))
	if err != nil {
		return nil, err
	}

	releases, _, err := g.client.Repositories.ListReleases(ctx, owner, repo, &github.ListOptions{PerPage: 20})
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}

	entries := make([]map[string]any, 0, len(releases))
	for _, release := range releases {
		entries = append(entries, map[string]any{
			"tag":          release.GetTagName(),
			"name":         release.GetName(),
			"published_at": release.GetPublishedAt().Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return json.Marshal(map[string]any{"releases": entries})
}

func stringParam(cmd Command, key string) string {
	if v, ok := cmd.Params[key].(string); ok {
		return v
	}
	return ""
}

func splitRepository(repository string) (owner, repo string, err error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid owner/repo format: %q", repository)
	}
	return parts[0], parts[1], nil
}
