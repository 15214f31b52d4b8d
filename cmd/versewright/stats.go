package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/versewright/versewright/pkg/budget"
	"github.com/versewright/versewright/pkg/config"
	"github.com/versewright/versewright/pkg/models"
	"github.com/versewright/versewright/pkg/tracker"
)

func newStatsCmd(configPath *string) *cobra.Command {
	var (
		since  time.Duration
		recent int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show Gemini usage statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer tr.Close()

			ctx := cmd.Context()
			from := time.Now().UTC().Add(-since)
			out := cmd.OutOrStdout()

			if recent > 0 {
				recs, err := tr.Recent(ctx, from, recent)
				if err != nil {
					return err
				}
				if len(recs) == 0 {
					fmt.Fprintln(out, "No usage data found.")
					return nil
				}
				fmt.Fprintln(out, renderRecent(recs))
				return nil
			}

			rows, err := tr.Summary(ctx, from)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No usage data found.")
			} else {
				fmt.Fprintln(out, renderSummary(rows))
			}

			if cfg.Budget.MaxTokens > 0 {
				st, err := budget.New(cfg.Budget.MaxTokens, cfg.Budget.Period, tr).Status(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Budget (%s): %s of %s tokens used, %s remaining.\n",
					st.Period, humanize.Comma(st.Used), humanize.Comma(st.MaxTokens), humanize.Comma(st.Remaining))
				if st.Remaining == 0 {
					warnf(out, shouldColorize(out), "The token budget is exhausted; generation calls are refused until %s.",
						nextPeriod(st).Format(time.RFC1123))
				}
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "look-back window")
	cmd.Flags().IntVar(&recent, "recent", 0, "list the N most recent calls instead of the summary")
	return cmd
}

func renderSummary(rows []models.UsageSummary) string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Operation,
			r.Model,
			humanize.Comma(int64(r.RequestCount)),
			humanize.Comma(int64(r.FailedCount)),
			humanize.Comma(int64(r.TotalPrompt)),
			humanize.Comma(int64(r.TotalCompletion)),
			humanize.Comma(int64(r.TotalTokens)),
			strconv.FormatInt(r.AvgLatencyMs, 10),
		})
	}
	return renderTable(
		[]string{"Operation", "Model", "Requests", "Failed", "Prompt", "Completion", "Total", "Avg ms"},
		out,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

func renderRecent(recs []models.UsageRecord) string {
	out := make([][]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, []string{
			humanize.Time(r.CreatedAt),
			r.Operation,
			r.Model,
			r.Outcome,
			humanize.Comma(int64(r.TotalTokens)),
			strconv.FormatInt(r.LatencyMs, 10),
		})
	}
	return renderTable(
		[]string{"When", "Operation", "Model", "Outcome", "Tokens", "Latency ms"},
		out,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}

func nextPeriod(st models.BudgetStatus) time.Time {
	if st.Period == budget.PeriodMonthly {
		return st.Since.AddDate(0, 1, 0)
	}
	return st.Since.AddDate(0, 0, 1)
}
