package installer

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"comfy-setup/internal/logger"

	gogit "github.com/go-git/go-git/v5"
)

// RunResult counts the items a multi-item stage attempted and completed.
type RunResult struct {
	Attempted int
	Succeeded int
}

// Complete reports whether every attempted item succeeded.
func (r RunResult) Complete() bool {
	return r.Succeeded == r.Attempted
}

// RepoName derives the checkout directory name from a repository URL: the
// last path segment with a trailing ".git" removed.
func RepoName(url string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(url), "/")
	name := trimmed[strings.LastIndex(trimmed, "/")+1:]
	name = strings.TrimSuffix(name, ".git")

	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\:`) || !filepath.IsLocal(name) {
		return "", fmt.Errorf("cannot derive a directory name from %q", url)
	}
	return name, nil
}

// ToolSource yields the tool a stage needs. It is only called once there is
// work for the tool to do.
type ToolSource func(ctx context.Context) (ToolHandle, error)

// StaticTool wraps an already resolved handle.
func StaticTool(h ToolHandle) ToolSource {
	return func(context.Context) (ToolHandle, error) { return h, nil }
}

// RepositoryCloner clones custom node repositories.
type RepositoryCloner struct{}

// NewRepositoryCloner creates a cloner.
func NewRepositoryCloner() *RepositoryCloner {
	return &RepositoryCloner{}
}

// CloneAll clones each URL, in order, into targetDir/<RepoName(url)>.
// Existing checkouts count as successes. A failure is logged and does not
// stop the remaining URLs. The process working directory is never changed:
// the clone target is always passed as an absolute path.
//
// The clone tool is obtained from source on the first missing checkout, so
// a run where everything is already present never touches it. If source
// fails, every checkout still missing counts as failed.
func (c *RepositoryCloner) CloneAll(ctx context.Context, urls []string, targetDir string, source ToolSource) RunResult {
	result := RunResult{Attempted: len(urls)}

	var (
		tool    ToolHandle
		toolErr error
		fetched bool
	)

	for _, url := range urls {
		name, err := RepoName(url)
		if err != nil {
			logger.Error("[ERROR] Failed to clone %s: %v\n", url, err)
			continue
		}
		repoPath := filepath.Join(targetDir, name)

		// Present on disk means done; nothing is compared or updated.
		if pathExists(repoPath) {
			logger.Info("[INFO] Custom node already exists: %s\n", name)
			result.Succeeded++
			continue
		}

		// First missing checkout: now the tool is worth resolving.
		if !fetched {
			tool, toolErr = source(ctx)
			fetched = true
		}
		if toolErr != nil {
			logger.Error("[ERROR] Failed to clone %s: %v\n", url, toolErr)
			continue
		}

		logger.Info("[INFO] Cloning custom node: %s\n", name)
		if err := c.clone(ctx, url, repoPath, tool); err != nil {
			logger.Error("[ERROR] Failed to clone %s: %v\n", url, err)
			// Remove whatever the failed clone left so the next run retries it.
			removeQuietly(repoPath)
			continue
		}

		logger.Info("[INFO] Successfully cloned: %s\n", name)
		result.Succeeded++
	}
	return result
}

func (c *RepositoryCloner) clone(ctx context.Context, url, dest string, tool ToolHandle) error {
	if tool.Origin == OriginBuiltin {
		logger.Debug("[DEBUG] Cloning %s in-process to %s\n", url, dest)
		if _, err := gogit.PlainCloneContext(ctx, dest, false, &gogit.CloneOptions{URL: url}); err != nil {
			return fmt.Errorf("clone: %w", err)
		}
		return nil
	}

	cmd := exec.CommandContext(ctx, tool.Path, "clone", "--quiet", "--no-progress", url, dest)
	logger.Debug("[DEBUG] Running command: %s\n", strings.Join(cmd.Args, " "))
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s clone failed: %w\nOutput: %s", tool.Name, err, output)
	}
	return nil
}
