package main

import (
	"comfy-setup/cmd" // CLI commands and execution logic
)

// main is the program entry point. It delegates to cmd.Execute().
//
// comfy-setup is a one-shot installer for a portable ComfyUI tree:
//   - Downloads the latest ComfyUI portable archive from GitHub releases and
//     unpacks it into the base directory, fetching portable curl and 7-Zip
//     when the system has none
//   - Clones the configured custom node repositories with git (a portable
//     git is fetched and removed again when needed)
//   - Downloads models into the ComfyUI model directory for their category
//
// Anything that already exists on disk is treated as done, so reruns only
// fill in what is missing. Only a failure of the application stage is fatal;
// custom node and model failures are logged and counted.
func main() {
	cmd.Execute()
}
