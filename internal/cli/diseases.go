package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/symptom-risk-server/internal/domain"
)

func newDiseasesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "diseases",
		Short: "List the disease questionnaires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := opts.registry(opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tFIELDS")
			for _, s := range registry.List() {
				fmt.Fprintf(w, "%s\t%s\t%d\n", s.ID, s.Name, s.FieldCount)
			}
			return w.Flush()
		},
	}
}

func newSchemaCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <disease>",
		Short: "Show a disease questionnaire: fields, weights and thresholds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := opts.registry(opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			s, err := registry.Load(args[0])
			if err != nil {
				return err
			}
			printSchema(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func printSchema(out io.Writer, s *domain.AssessmentSchema) {
	bold := color.New(color.Bold)
	bold.Fprintf(out, "%s (%s)\n", s.Name, s.ID)
	if s.Description != "" {
		fmt.Fprintln(out, s.Description)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tKIND\tREQUIRED\tSCORING\tSHOWN WHEN")
	for _, f := range s.Fields {
		shown := "always"
		if f.AppliesWhen != nil {
			shown = f.AppliesWhen.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", f.Key, f.Kind, f.Required, scoring(f), shown)
	}
	w.Flush()

	fmt.Fprintln(out)
	bold.Fprintln(out, "Thresholds")
	for _, t := range s.Thresholds {
		fmt.Fprintf(out, "  score >= %-3d %s\n", t.MinScore, tierColor(t.Tier).Sprint(t.Tier))
	}
}

// scoring summarizes how a field contributes to the score
func scoring(f domain.QuestionField) string {
	switch f.Kind {
	case domain.KindBoolean:
		return fmt.Sprintf("%+d if %s", f.Weight, f.RiskValue)
	case domain.KindEnum:
		parts := make([]string, 0, len(f.Options))
		for _, o := range f.Options {
			parts = append(parts, fmt.Sprintf("%s:%+d", o.Value, o.Weight))
		}
		return strings.Join(parts, " ")
	case domain.KindNumeric:
		parts := make([]string, 0, len(f.Steps))
		for _, st := range f.Steps {
			parts = append(parts, fmt.Sprintf(">=%g:%+d", st.Threshold, st.Weight))
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// tierColor picks the display colour for a tier
func tierColor(t domain.Tier) *color.Color {
	switch t {
	case domain.TierHigh:
		return color.New(color.FgRed, color.Bold)
	case domain.TierModerate:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgGreen)
	}
}
