package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	berrors "github.com/braid-dev/braid/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌┐ ┬─┐┌─┐┬┌┬┐
  ├┴┐├┬┘├─┤│ ││
  └─┘┴└─┴ ┴┴─┴┘
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "braid",
		Short: "File-based routing and hybrid pipelines for Go web apps",
		Long: `Braid resolves a route directory into one tree serving two pipelines:
server loaders and actions over HTTP, and a client navigator sharing the
same matching rules.

  • File-based routing with dynamic and catch-all segments
  • Middleware, loaders and actions with error boundaries
  • Deferred values streamed after the initial response
  • Dev server with rebuild-on-change and a browser error overlay`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		devCmd(),
		routesCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		berrors.PrintError(err)
		os.Exit(1)
	}
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
