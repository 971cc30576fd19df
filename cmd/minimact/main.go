// Command minimact is the headless client for minimact servers:
// connect to a server, hydrate a rendered page, stream patches, and
// benchmark the round-trip pipeline.
package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minimact-dev/minimact/internal/errors"
)

func main() {
	root := &cobra.Command{
		Use:          "minimact",
		Short:        "Headless client runtime for minimact servers",
		SilenceUsage: true,
	}

	root.AddCommand(newConnectCmd())
	root.AddCommand(newBenchCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		var me *errors.MinimactError
		if stderrors.As(err, &me) {
			fmt.Fprintln(os.Stderr, me.Format())
		}
		os.Exit(1)
	}
}
