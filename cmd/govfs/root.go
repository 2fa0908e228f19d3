// Command govfs is the thin CLI surface over the GVFS core packages:
// mount sweeps, placeholder catalog inspection, and ref repair. The CLI and
// installer shell proper are out of spec.md's scope; this exists to
// exercise the library surface end-to-end the way the teacher's cmd/ tree
// exercises its backends.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Root is the top-level command; subcommands register themselves onto it
// from init(), mirroring backend/torrent/cmd/backend.go's registration
// style.
var Root = &cobra.Command{
	Use:   "govfs",
	Short: "GVFS core control surface",
	Long: `govfs drives the GVFS core engineering cores directly: mount
sweeps for a login session, placeholder catalog inspection, and offline
ref repair.`,
}

func main() {
	if err := Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
