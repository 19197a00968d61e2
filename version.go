package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

const (
	SERVER_NAME    = "htmlfrag"
	SERVER_VERSION = "0.3.0"
)

// Set at link stage via `-ldflags "-X main.GIT_COMMIT=$(git rev-parse --short HEAD)"`
var GIT_COMMIT string

// Server header string
var SERVER_SIGNATURE = fmt.Sprintf("%s (%s)", SERVER_NAME+"/"+SERVER_VERSION, commit())

func commit() string {
	if GIT_COMMIT != "" {
		return GIT_COMMIT
	}
	return "unknown"
}

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, SERVER_VERSION)
				return
			}
			fmt.Fprintf(out, "%s %s\n", SERVER_NAME, SERVER_VERSION)
			fmt.Fprintf(out, "  Commit:     %s\n", commit())
			fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only the version number")

	return cmd
}
