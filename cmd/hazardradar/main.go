package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hazardradar",
		Short:         "Collect coastal hazard reports from social platforms and digest them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(cycleCmd())
	root.AddCommand(previewCmd())
	root.AddCommand(postsCmd())
	root.AddCommand(digestsCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func cycleCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run one ingestion cycle and store its digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycle(cmd.Context(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the cycle result as JSON")
	return cmd
}

func previewCmd() *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:       "preview <source>",
		Short:     "Fetch and enrich posts from one source without storing them",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"reddit", "telegram", "youtube", "twitter", "rss"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.Context(), args[0], jsonOutput, limit)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 20, "max posts to show")
	return cmd
}

func postsCmd() *cobra.Command {
	var (
		jsonOutput bool
		f          postFilter
	)

	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List stored posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPosts(cmd.Context(), f, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().StringVar(&f.platform, "platform", "", "only posts from this platform")
	cmd.Flags().StringVar(&f.hazard, "hazard", "", "only posts with this hazard type")
	cmd.Flags().StringVar(&f.location, "location", "", "only posts with this location")
	cmd.Flags().DurationVar(&f.since, "since", 0, "only posts from this far back (e.g. 24h)")
	cmd.Flags().BoolVar(&f.matched, "matched", false, "only posts whose tags matched their content")
	cmd.Flags().IntVar(&f.limit, "limit", 20, "max posts to show")
	return cmd
}

func digestsCmd() *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "digests",
		Short: "Show the latest digests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigests(cmd.Context(), limit, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 5, "max digests to show")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
