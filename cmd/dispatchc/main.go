// Command dispatchc is the CLI front end for the multiple-dispatch
// resolution and compressed dispatch-table engine: it drives the
// registry, specificity analyzer, classifier, dispatch-table generator
// and compressor, build cache, dependency graph, and profiler over a
// compilation session described by a YAML session document.
//
// Grounded on the teacher's cmd/ailang/main.go, whose flag-driven
// command dispatch (run/repl/test/watch/check) is rebuilt here on
// spf13/cobra -- already present in the teacher's dependency graph as an
// indirect pull -- with subcommands analyze, cache, debug, and graph.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/janus-lang/janus-sub003/internal/ast"
	"github.com/janus-lang/janus-sub003/internal/buildcache"
	"github.com/janus-lang/janus-sub003/internal/classify"
	"github.com/janus-lang/janus-sub003/internal/compress"
	"github.com/janus-lang/janus-sub003/internal/config"
	"github.com/janus-lang/janus-sub003/internal/depgraph"
	"github.com/janus-lang/janus-sub003/internal/diagnostic"
	"github.com/janus-lang/janus-sub003/internal/dispatchtree"
	"github.com/janus-lang/janus-sub003/internal/profiler"
	"github.com/janus-lang/janus-sub003/internal/session"
	"github.com/janus-lang/janus-sub003/internal/specificity"
)

// Version, Commit, and BuildTime are set by ldflags during build,
// matching the teacher's cmd/ailang/main.go convention.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

var (
	configPath  string
	sessionPath string
)

func main() {
	root := &cobra.Command{
		Use:   "dispatchc",
		Short: "Multiple-dispatch resolution and compressed dispatch-table engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a dispatch.yaml config file")
	root.PersistentFlags().StringVar(&sessionPath, "session", "", "path to a session.yaml compilation session document")

	root.AddCommand(newVersionCmd(), newAnalyzeCmd(), newCacheCmd(), newDebugCmd(), newGraphCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("Error:"), err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dispatchc %s\n", bold(Version))
			if Commit != "unknown" {
				fmt.Printf("Commit: %s\n", Commit)
			}
			if BuildTime != "unknown" {
				fmt.Printf("Built:  %s\n", BuildTime)
			}
		},
	}
}

func loadConfig() config.Config {
	if configPath == "" {
		return config.Default(".dispatchc-cache")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, red("Error loading config:"), err)
		os.Exit(1)
	}
	return cfg
}

func requireSession() *session.Session {
	if sessionPath == "" {
		fmt.Fprintln(os.Stderr, red("Error:"), "--session is required")
		os.Exit(1)
	}
	s, err := session.Load(sessionPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, red("Error loading session:"), err)
		os.Exit(1)
	}
	return s
}

// classifyAll runs every call site in s through AnalyzeCall and the
// classifier, reporting structured diagnostics for ambiguous or
// unresolvable calls and a one-line status for everything else.
func classifyAll(s *session.Session, cfg config.Config, p *profiler.Profiler) {
	policy := specificity.Policy{Mode: specificity.Strict}
	classifier := classify.New(s.Registry, cfg.ToClassifyConfig(), policy)
	reporter := diagnostic.New(s.Registry)

	for _, site := range s.CallSites {
		group, ok := s.Analyzer.Group(site.Name, len(site.ArgTypes))
		if !ok {
			fmt.Printf("%s %s: no signature group registered\n", red("!!"), bold(site.Name))
			continue
		}

		result := specificity.AnalyzeCall(s.Registry, group.Implementations, site.ArgTypes, policy)
		switch result.Outcome {
		case specificity.Ambiguous:
			record := reporter.ReportAmbiguous(site.Name, site.ArgTypes, callSiteSpan(site), result)
			text, _ := diagnostic.ToJSON(record)
			fmt.Printf("%s %s ambiguous dispatch\n%s\n", red("!!"), bold(site.Name), text)
			continue
		case specificity.NoMatch:
			record := reporter.ReportNoMatch(site.Name, site.ArgTypes, callSiteSpan(site), group.Implementations, result)
			text, _ := diagnostic.ToJSON(record)
			fmt.Printf("%s %s no matching implementation\n%s\n", red("!!"), bold(site.Name), text)
			continue
		}

		decision := classifier.Classify(site, group)
		if p != nil {
			p.Record(site, decision)
		}
		fmt.Printf("%s %s %s\n", green("=>"), bold(site.Name), decisionSummary(decision))
	}
}

func decisionSummary(d classify.Decision) string {
	switch dec := d.(type) {
	case *classify.StaticDecision:
		return fmt.Sprintf("static/%s (%d cycles)", dec.Tier, dec.CostCycles)
	case *classify.DynamicDecision:
		return fmt.Sprintf("dynamic/%s", dec.Strategy)
	default:
		return "no_dispatch"
	}
}

// callSiteSpan carries a call site's location string into a diagnostic's
// ast.Span. Sessions record location as plain text, not a parsed position,
// so only the file field is populated.
func callSiteSpan(site classify.CallSite) ast.Span {
	return ast.Span{Start: ast.Pos{File: site.Location}}
}

func newAnalyzeCmd() *cobra.Command {
	var buildTables bool
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Classify every call site in a session and report dispatch strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := requireSession()
			cfg := loadConfig()
			classifyAll(s, cfg, nil)

			if buildTables {
				for _, group := range s.Analyzer.Groups() {
					table := dispatchtree.New(s.Registry).Generate(group, specificity.Policy{Mode: specificity.Strict})
					compressed := compress.Compress(table)
					fmt.Printf("%s %s: %d exact matches, %d compressed entries, ratio %.2f\n",
						yellow("table"), bold(group.Name), len(table.Exact), len(compressed.Entries), compressed.Savings.AggregateRatio)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&buildTables, "tables", false, "also generate and compress dispatch tables for every signature group")
	return cmd
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clean the dispatch-table build cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Evict cache entries beyond the configured size/age limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			mgr := buildcache.New(cfg.ToBuildCacheConfig())
			if err := mgr.Cleanup(); err != nil {
				return err
			}
			fmt.Println(green("cache cleanup complete"))
			return nil
		},
	})
	return cmd
}

func newDebugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debug",
		Short: "Launch the interactive dispatch debugger (breakpoints, watches, frame history)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := requireSession()
			cfg := loadConfig()
			p := profiler.New()
			classifyAll(s, cfg, p)

			dbg := profiler.NewDebugger(p)
			defer dbg.Close()
			fmt.Println(bold("dispatchc debugger"))
			fmt.Println("type 'history' to list recorded frames, 'quit' to exit")
			for {
				line, err := dbg.Prompt("(dispatchc) ")
				if err != nil {
					return nil
				}
				switch line {
				case "quit", "exit":
					return nil
				case "history":
					for _, f := range p.History() {
						fmt.Println(profiler.FormatFrame(f))
					}
				default:
					fmt.Println("unknown command:", line)
				}
			}
		},
	}
}

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the compilation-unit dependency graph in topological order",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := requireSession()
			order, err := s.Graph.TopologicalOrder()
			if err != nil {
				if cycle, ok := err.(*depgraph.CircularDependency); ok {
					fmt.Fprintln(os.Stderr, red("circular dependency:"), cycle.Error())
					return nil
				}
				return err
			}
			for i, unit := range order {
				fmt.Printf("%d. %s\n", i+1, unit)
			}
			return nil
		},
	}
	return cmd
}
