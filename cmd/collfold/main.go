// Command collfold loads a module description, runs the collective select
// folder on it and prints the result.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/collfold/fold"
	"github.com/sarchlab/collfold/ir"
	"github.com/sarchlab/collfold/pass"
	"github.com/sarchlab/collfold/verify"
)

type options struct {
	config

	passes        []string
	threads       []string
	maxIterations int
	lint          bool
	compare       bool
	table         bool
	reportFile    string
}

func newRegistry() *pass.Registry {
	r := pass.NewRegistry()
	mustRegister(r, fold.PassName, func() pass.Pass {
		return fold.NewCollectiveSelectFolder()
	})
	mustRegister(r, "dce", func() pass.Pass {
		return pass.DeadCodeEliminator{}
	})
	return r
}

func mustRegister(r *pass.Registry, name string, f pass.Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

func newRootCommand() *cobra.Command {
	opts := options{config: configFromEnv()}
	registry := newRegistry()

	cmd := &cobra.Command{
		Use:   "collfold <module.yaml>",
		Short: "Fold selects feeding collective-permutes",
		Long: "collfold loads a module from YAML, runs a pass pipeline over it " +
			"and prints the transformed module.\n\n" +
			"Registered passes: " + fmt.Sprint(registry.Names()),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(opts.config); err != nil {
				return err
			}
			return run(cmd.OutOrStdout(), registry, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&opts.passes, "passes", "p", []string{fold.PassName},
		"passes to run, in order")
	flags.StringSliceVarP(&opts.threads, "threads", "t", nil,
		"execution threads to transform (default all)")
	flags.IntVar(&opts.maxIterations, "max-iterations", 1,
		"repeat the pipeline until nothing changes, at most this many times")
	flags.BoolVar(&opts.lint, "lint", true, "lint the module after every changing pass")
	flags.BoolVar(&opts.compare, "compare", false,
		"simulate the module before and after and report differences")
	flags.BoolVar(&opts.table, "table", false, "print computations as tables")
	flags.StringVar(&opts.reportFile, "report", "", "also save the comparison report to a file")
	flags.StringVar(&opts.LogLevel, "log-level", opts.LogLevel,
		"trace, debug, info, warn or error ($COLLFOLD_LOG_LEVEL)")
	flags.StringVar(&opts.LogFile, "log-file", opts.LogFile,
		"write JSON logs to this file instead of stderr ($COLLFOLD_LOG_FILE)")
	flags.IntVar(&opts.Replicas, "replicas", opts.Replicas,
		"replicas to simulate with --compare ($COLLFOLD_REPLICAS)")
	flags.IntVar(&opts.Partitions, "partitions", opts.Partitions,
		"partitions to simulate with --compare ($COLLFOLD_PARTITIONS)")

	return cmd
}

func run(w io.Writer, registry *pass.Registry, path string, opts options) error {
	m, err := ir.LoadModuleFromYAML(path)
	if err != nil {
		return err
	}

	builder := pass.PipelineBuilder{}.WithMaxIterations(opts.maxIterations)
	for _, name := range opts.passes {
		p, err := registry.Lookup(name)
		if err != nil {
			return err
		}
		builder = builder.WithPass(p)
	}
	if opts.lint {
		builder = builder.WithVerifier(verify.LintVerifier{})
	}
	pipeline := builder.Build("collfold")

	var before *ir.Module
	if opts.compare {
		before = m.Clone()
	}

	changed, err := pipeline.Run(m, ir.NewExecutionThreads(opts.threads...))
	if err != nil {
		return err
	}

	if opts.table {
		for _, comp := range m.Computations(nil) {
			ir.WriteTable(w, comp)
		}
	} else {
		fmt.Fprint(w, m.String())
	}
	fmt.Fprintf(w, "changed: %t\n", changed)

	if !opts.compare {
		return nil
	}

	report, err := verify.CompareBehavior(before, m, verify.Topology{
		Replicas:   opts.Replicas,
		Partitions: opts.Partitions,
	})
	if err != nil {
		return err
	}
	report.WriteReport(w)

	if opts.reportFile != "" {
		if err := report.SaveReportToFile(opts.reportFile); err != nil {
			return err
		}
	}
	if !report.Equivalent() {
		return fmt.Errorf("module %s changed behavior", m.Name())
	}

	return nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "collfold:", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
