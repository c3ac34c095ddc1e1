// Command carve evaluates solid designs written in the carve Lisp DSL and
// reports the meshes they produce.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "carve",
		Short: "Evaluate constructive solid geometry designs",
		Long: `carve evaluates designs written in a small Lisp DSL. Primitives are combined
with exact mesh booleans (union, intersection, difference, xor) and every
top-level solid is reported as a closed triangle mesh.`,
		SilenceUsage: true,
	}
	root.AddCommand(newEvalCmd(), newVersionCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
