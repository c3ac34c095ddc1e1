package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazu/carve/pkg/csg"
	"github.com/chazu/carve/pkg/engine"
	"github.com/chazu/carve/pkg/kernel"
	"github.com/chazu/carve/pkg/kernel/carve"
	"github.com/chazu/carve/pkg/kernel/sdfx"
	"github.com/chazu/carve/pkg/tessellate"
)

type evalFlags struct {
	kernel  string
	workers int
	cells   int
	timeout time.Duration
	verbose bool
}

func newEvalCmd() *cobra.Command {
	var f evalFlags
	cmd := &cobra.Command{
		Use:   "eval <file>",
		Short: "Evaluate a design file and print mesh statistics per part",
		Long: `Evaluate a carve design file. Every top-level solid is tessellated and its
vertex count, triangle count, volume and bounding box are printed. Validation
warnings go to stderr; any evaluation or validation error fails the command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, args[0], f)
		},
	}
	cmd.Flags().StringVarP(&f.kernel, "kernel", "k", "carve", "geometry kernel: carve or sdfx")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "boolean worker count (0 uses GOMAXPROCS)")
	cmd.Flags().IntVar(&f.cells, "cells", sdfx.DefaultMeshCells, "marching cubes resolution for the sdfx kernel")
	cmd.Flags().DurationVar(&f.timeout, "timeout", engine.DefaultEvalTimeout, "limit on evaluating the design source")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "log boolean evaluation phases to stderr")
	return cmd
}

func newKernel(f evalFlags) (kernel.Kernel, error) {
	switch f.kernel {
	case "carve":
		var opts []csg.Option
		if f.workers > 0 {
			opts = append(opts, csg.WithWorkers(f.workers))
		}
		return carve.New(carve.WithOptions(opts...)), nil
	case "sdfx":
		return sdfx.New(sdfx.WithMeshCells(f.cells)), nil
	}
	return nil, fmt.Errorf("unknown kernel %q (want carve or sdfx)", f.kernel)
}

func runEval(cmd *cobra.Command, path string, f evalFlags) error {
	k, err := newKernel(f)
	if err != nil {
		return err
	}
	if f.verbose {
		csg.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})))
		defer csg.SetLogger(nil)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading design: %w", err)
	}

	res, err := engine.NewEngine(engine.WithTimeout(f.timeout)).EvaluateResult(string(src))
	if err != nil {
		return fmt.Errorf("evaluating %s: %w", path, err)
	}
	stderr := cmd.ErrOrStderr()
	for _, w := range res.Warnings {
		if w.Line > 0 {
			fmt.Fprintf(stderr, "warning: line %d: %s\n", w.Line, w.Message)
		} else {
			fmt.Fprintf(stderr, "warning: %s\n", w.Message)
		}
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			fmt.Fprintf(stderr, "error: %s\n", e.Error())
		}
		return fmt.Errorf("%s: %d error(s)", path, len(res.Errors))
	}

	meshes, err := tessellate.Tessellate(cmd.Context(), res.Graph, k)
	if err != nil {
		return fmt.Errorf("tessellating %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	if len(meshes) == 0 {
		fmt.Fprintln(out, "No solids.")
		return nil
	}
	for _, m := range meshes {
		name := m.PartName
		if name == "" {
			name = "(unnamed)"
		}
		lo, hi := m.Bounds()
		fmt.Fprintf(out, "%s\n", name)
		fmt.Fprintf(out, "  Vertices: %d\n", m.VertexCount())
		fmt.Fprintf(out, "  Triangles: %d\n", m.TriangleCount())
		fmt.Fprintf(out, "  Volume: %.3f\n", m.Volume())
		fmt.Fprintf(out, "  Bounds: (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n",
			lo[0], lo[1], lo[2], hi[0], hi[1], hi[2])
	}
	return nil
}
