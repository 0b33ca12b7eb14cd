package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/bkit-dev/bkit/internal/debuglog"
	"github.com/bkit-dev/bkit/internal/market"
)

// MarketCmd returns the market command - parent for dashboard data tasks
func MarketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Market dashboard data",
	}
	cmd.AddCommand(marketFetchCmd())
	return cmd
}

func marketFetchCmd() *cobra.Command {
	var (
		out         string
		model       string
		timeout     time.Duration
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch quotes, history and headlines into the dashboard data file",
		Long: `Fetch the latest quotes for the dashboard tickers, ten trading days of
closes for the chart tickers and recent headlines, then write the data file.

When GEMINI_API_KEY is set, a market commentary is generated as well.
A run fails only when no quote at all could be fetched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			env := resolveEnv()
			log := debuglog.New(env)
			defer func() { _ = log.Close() }()

			opts := []market.Option{
				market.WithLogger(log.Zap()),
				market.WithConcurrency(concurrency),
			}
			if key := os.Getenv("GEMINI_API_KEY"); key != "" {
				g, err := market.NewGemini(ctx, key, model)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s commentary disabled: %v\n", warnMark, err)
				} else {
					opts = append(opts, market.WithCommentator(g))
				}
			}

			data, err := market.NewFetcher(opts...).Fetch(ctx)
			if err != nil {
				return err
			}

			path := out
			if !filepath.IsAbs(path) {
				path = env.ProjectPath(path)
			}
			if err := market.Write(path, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %d quotes to %s\n", okMark, len(data.Indices), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", market.DefaultOutput, "Output file, relative to the project root")
	cmd.Flags().StringVar(&model, "model", market.DefaultModel, "Gemini model for the commentary")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall deadline for the run")
	cmd.Flags().IntVar(&concurrency, "concurrency", market.DefaultConcurrency, "Maximum parallel requests")

	return cmd
}
