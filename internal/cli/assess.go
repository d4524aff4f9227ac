package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/symptom-risk-server/internal/domain"
	"github.com/symptom-risk-server/internal/service"
)

func newAssessCommand(opts *options) *cobra.Command {
	var baselineFile string
	var answersFile string
	var showBreakdown bool

	cmd := &cobra.Command{
		Use:   "assess <disease>",
		Short: "Score a baseline profile and questionnaire answers",
		Long: `Run one complete assessment: the baseline profile is submitted first,
then the answers are validated, scored and classified.

Both files may be YAML or JSON. The baseline holds name, age, gender and
contact (medical_history is optional); the answers file maps field keys to
yes/no, an option value or a number.

Examples:
  riskctl assess cold --baseline me.yaml --answers cold.yaml
  riskctl assess heart --baseline me.json --answers heart.json --breakdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssess(cmd, opts, args[0], baselineFile, answersFile, showBreakdown)
		},
	}

	cmd.Flags().StringVar(&baselineFile, "baseline", "", "Baseline profile file (YAML or JSON)")
	cmd.Flags().StringVar(&answersFile, "answers", "", "Questionnaire answers file (YAML or JSON)")
	cmd.Flags().BoolVar(&showBreakdown, "breakdown", false, "Show each field's contribution to the score")
	_ = cmd.MarkFlagRequired("baseline")
	_ = cmd.MarkFlagRequired("answers")

	return cmd
}

func runAssess(cmd *cobra.Command, opts *options, disease, baselineFile, answersFile string, showBreakdown bool) error {
	logger := opts.logger(cmd.ErrOrStderr())
	registry, err := opts.registry(logger)
	if err != nil {
		return err
	}
	s, err := registry.Load(disease)
	if err != nil {
		return err
	}

	var profile domain.BaselineProfile
	if err := decodeFile(baselineFile, &profile); err != nil {
		return fmt.Errorf("reading baseline: %w", err)
	}
	raw := map[string]any{}
	if err := decodeFile(answersFile, &raw); err != nil {
		return fmt.Errorf("reading answers: %w", err)
	}
	answers, err := domain.AnswerSetFromMap(raw)
	if err != nil {
		return fmt.Errorf("reading answers: %w", err)
	}

	w, err := service.NewWorkflow(s, service.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := w.SubmitBaseline(profile); err != nil {
		return describeError(err)
	}
	result, err := w.SubmitQuestionnaire(answers)
	if err != nil {
		return describeError(err)
	}

	printResult(cmd.OutOrStdout(), result, showBreakdown)
	return nil
}

// decodeFile reads YAML or JSON; JSON documents are valid YAML
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// describeError turns engine errors into messages a person can act on
func describeError(err error) error {
	var ib *domain.IncompleteBaselineError
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ib):
		return fmt.Errorf("baseline is missing: %v", ib.Missing)
	case errors.As(err, &ve):
		return fmt.Errorf("answer %q: %s", ve.Field, ve.Message)
	default:
		return err
	}
}

func printResult(out io.Writer, r domain.AssessmentResult, showBreakdown bool) {
	bold := color.New(color.Bold)

	bold.Fprintf(out, "%s risk assessment for %s\n", r.DiseaseName, r.Profile.Name)
	fmt.Fprintf(out, "Score: %d\n", r.Score)
	fmt.Fprintf(out, "Tier:  %s\n", tierColor(r.Tier).Sprint(r.Tier))
	if r.FollowUpRecommended {
		color.New(color.FgYellow).Fprintln(out, "Follow-up with a clinician is recommended.")
	}

	fmt.Fprintln(out)
	bold.Fprintln(out, "Recommendations")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(out, "  - %s\n", rec)
	}

	if !showBreakdown {
		return
	}
	fmt.Fprintln(out)
	bold.Fprintln(out, "Breakdown")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tANSWER\tWEIGHT\tVISIBLE")
	for _, c := range r.Breakdown {
		fmt.Fprintf(w, "%s\t%s\t%+d\t%t\n", c.Field, c.Value.Canonical(), c.Weight, c.Visible)
	}
	w.Flush()
}
