package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/minimact-dev/minimact"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the runtime version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("minimact %s (%s, %s/%s)\n",
				minimact.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
