// pinchgrab lets you grab, drag and resize an on-screen circle with a pinch
// gesture seen through the webcam.
//
// Usage:
//
//	pinchgrab                          # Run with ~/.pinchgrab/config.yaml if present
//	pinchgrab --config grab.yaml       # Run with an explicit config file
//	pinchgrab --camera 1 --tray        # Second camera, with a tray menu
//	pinchgrab version                  # Print the version
//
// Press ESC or q in the window to quit.
package main

import (
	"os"

	"github.com/ayusman/pinchgrab/cmd/pinchgrab/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
