package installer

import (
	"os"

	"comfy-setup/internal/logger"
)

// removeQuietly deletes path (file or tree). Errors are logged at debug
// level and otherwise ignored: cleanup never fails a stage.
func removeQuietly(path string) {
	if path == "" {
		return
	}
	if err := os.RemoveAll(path); err != nil {
		logger.Debug("[DEBUG] Failed to remove %s: %v\n", path, err)
	}
}

// releaseTool removes the cached copy of a tool this run owns. System and
// builtin tools are left alone.
func releaseTool(spec ToolSpec, h ToolHandle) bool {
	if !h.Owned() {
		return false
	}
	removeQuietly(spec.cacheRoot())
	return true
}
