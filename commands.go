package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ZephyrDeng/bloat-analyzer-mcp/analyzer"
	"github.com/ZephyrDeng/bloat-analyzer-mcp/config"
	"github.com/ZephyrDeng/bloat-analyzer-mcp/watch"
)

// reportFlags are shared by the commands that print an analysis report.
func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "top-n",
			Aliases: []string{"n"},
			Usage:   "Number of entries per report section (default from config)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, markdown, json or flamegraph-json",
		},
		&cli.Int64Flag{
			Name:  "min-size",
			Usage: "Only keep symbols whose aggregated size is at least this many bytes",
		},
		&cli.StringSliceFlag{
			Name:    "category",
			Aliases: []string{"cat"},
			Usage:   "Keep only symbols of these categories (CPP, Rust, Zig, SysV, Other)",
		},
		&cli.StringFlag{
			Name:    "search",
			Aliases: []string{"s"},
			Usage:   "Case-insensitive substring match on symbol names",
		},
		&cli.StringFlag{
			Name:    "path",
			Aliases: []string{"p"},
			Usage:   "Glob over hierarchy paths, e.g. 'std/**'",
		},
	}
}

// analysisConfig applies report flags on top of the loaded config.
func analysisConfig(c *cli.Context) (*config.Config, error) {
	cfg := *appConfig
	if c.IsSet("top-n") {
		cfg.Analysis.TopN = c.Int("top-n")
	}
	if c.IsSet("format") {
		cfg.Analysis.OutputFormat = c.String("format")
	}
	if c.IsSet("min-size") {
		cfg.Analysis.MinSize = c.Int64("min-size")
	}
	if c.IsSet("category") {
		var cats []string
		for _, v := range c.StringSlice("category") {
			cats = append(cats, config.SplitList(v)...)
		}
		cfg.Analysis.Categories = cats
	}
	if c.IsSet("search") {
		cfg.Analysis.Search = c.String("search")
	}
	if c.IsSet("path") {
		cfg.Analysis.PathPattern = c.String("path")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Print a size report for one or more exports",
		ArgsUsage: "FILE...",
		Flags:     reportFlags(),
		Action: func(c *cli.Context) error {
			if c.Args().Len() == 0 {
				return cli.Exit("analyze requires at least one export file", 2)
			}
			cfg, err := analysisConfig(c)
			if err != nil {
				return err
			}
			state, err := cfg.FilterState()
			if err != nil {
				return err
			}

			paths := c.Args().Slice()
			trees, err := analyzer.LoadTrees(c.Context, paths, cfg.BuildOptions())
			if err != nil {
				return err
			}
			for i, tree := range trees {
				out, err := analyzer.AnalyzeHierarchy(tree, state, cfg.Analysis.TopN, cfg.Analysis.OutputFormat)
				if err != nil {
					return err
				}
				if len(trees) > 1 {
					fmt.Fprintf(c.App.Writer, "== %s ==\n", paths[i])
				}
				fmt.Fprintln(c.App.Writer, out)
			}
			return nil
		},
	}
}

func diffCommand() *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "Report symbols that grew between two exports",
		ArgsUsage: "OLD NEW",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  "threshold",
				Usage: "Minimum relative growth (0.1 = 10%)",
				Value: 0.1,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of symbols to list",
				Value: 10,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text or json",
				Value:   "text",
			},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 2 {
				return cli.Exit("diff requires exactly two export files: OLD NEW", 2)
			}
			trees, err := analyzer.LoadTrees(c.Context, c.Args().Slice(), appConfig.BuildOptions())
			if err != nil {
				return err
			}
			out, err := analyzer.CompareTrees(trees[0], trees[1], c.Float64("threshold"), c.Int("limit"), c.String("format"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, out)
			return nil
		},
	}
}

func flamegraphCommand() *cli.Command {
	return &cli.Command{
		Name:      "flamegraph",
		Usage:     "Export the symbol hierarchy as a pprof profile",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Profile output path, e.g. sizes.pb.gz",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return cli.Exit("flamegraph requires exactly one export file", 2)
			}
			tree, err := analyzer.LoadTreeFile(c.Args().First(), appConfig.BuildOptions())
			if err != nil {
				return err
			}
			out, err := os.Create(c.String("output"))
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", c.String("output"), err)
			}
			if err := analyzer.WriteProfile(tree, out); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Wrote %s. View it with: go tool pprof -http=%s %s\n",
				c.String("output"), appConfig.Server.PprofHTTPAddress, c.String("output"))
			return nil
		},
	}
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Print the language category of symbol names",
		ArgsUsage: "NAME...",
		Action: func(c *cli.Context) error {
			for _, name := range c.Args().Slice() {
				fmt.Fprintln(c.App.Writer, describeClassification(name))
			}
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-print the report whenever the export file changes",
		ArgsUsage: "FILE",
		Flags:     reportFlags(),
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return cli.Exit("watch requires exactly one export file", 2)
			}
			cfg, err := analysisConfig(c)
			if err != nil {
				return err
			}
			state, err := cfg.FilterState()
			if err != nil {
				return err
			}

			session, err := watch.NewSession(c.Args().First(), watch.Options{
				Build:    cfg.BuildOptions(),
				Debounce: cfg.Debounce(),
				OnUpdate: func(r watch.Result) {
					out, err := analyzer.AnalyzeHierarchy(r.Tree, state, cfg.Analysis.TopN, cfg.Analysis.OutputFormat)
					if err != nil {
						fmt.Fprintf(c.App.ErrWriter, "report for build #%d failed: %v\n", r.Seq, err)
						return
					}
					fmt.Fprintf(c.App.Writer, "== build #%d of %s at %s ==\n%s\n",
						r.Seq, r.Path, r.BuiltAt.Format("15:04:05"), out)
				},
			})
			if err != nil {
				return err
			}
			defer session.Close()

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return session.Run(ctx)
		},
	}
}
