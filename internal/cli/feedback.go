package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/symptom-risk-server/internal/domain"
	"github.com/symptom-risk-server/internal/feedback"
)

func newFeedbackCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Manage reviewer feedback on computed tiers",
		Long: `Export, import and summarize reviewer feedback.

The store is chosen by the feedback section of the configuration
(sqlite by default, or postgres).`,
	}

	cmd.AddCommand(newFeedbackExportCommand(opts))
	cmd.AddCommand(newFeedbackImportCommand(opts))
	cmd.AddCommand(newFeedbackStatsCommand(opts))

	return cmd
}

// withStore opens the configured store for the lifetime of fn
func withStore(cmd *cobra.Command, opts *options, fn func(feedback.Store) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	store, closeStore, err := feedback.Open(cmd.Context(), cfg, opts.logger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer closeStore()
	if store == nil {
		return errors.New("feedback store is disabled (feedback.backend is none)")
	}
	return fn(store)
}

func newFeedbackExportCommand(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all feedback as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(store feedback.Store) error {
				var writer io.Writer = cmd.OutOrStdout()
				if output != "" {
					file, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("failed to create output file: %w", err)
					}
					defer file.Close()
					writer = file
				}
				return store.ExportJSON(cmd.Context(), writer)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (stdout if not specified)")
	return cmd
}

func newFeedbackImportCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import feedback from a JSON export; sessions already present are skipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			return withStore(cmd, opts, func(store feedback.Store) error {
				imported, skipped, err := store.ImportJSON(cmd.Context(), file)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries, skipped %d\n", imported, skipped)
				return nil
			})
		},
	}
}

func newFeedbackStatsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <disease>",
		Short: "Show how often reviewers agreed with the computed tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(store feedback.Store) error {
				stats, err := store.Stats(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printStats(cmd.OutOrStdout(), stats)
				return nil
			})
		},
	}
}

func printStats(out io.Writer, st *feedback.Stats) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(out, "Feedback for %s\n", st.Disease)
	fmt.Fprintf(out, "Reviewed: %d\n", st.Total)
	fmt.Fprintf(out, "Agreed:   %d (%.1f%%)\n", st.Agreed, st.AgreementRate*100)

	if len(st.Corrections) == 0 {
		return
	}
	tiers := make([]domain.Tier, 0, len(st.Corrections))
	for t := range st.Corrections {
		tiers = append(tiers, t)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Rank() < tiers[j].Rank() })

	fmt.Fprintln(out, "Corrected to:")
	for _, t := range tiers {
		fmt.Fprintf(out, "  %-9s %d\n", tierColor(t).Sprint(t), st.Corrections[t])
	}
}
