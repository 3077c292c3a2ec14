package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/answerd/internal/curation"
	"github.com/fyrsmithlabs/answerd/internal/matcher"
)

var (
	checkFailUnder float64
	suggestLimit   int
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report quality problems in the knowledge file",
	Long: `Review every stored answer and list:

  - empty, very short or very long answers and placeholder text
  - questions too short to be useful
  - answers reachable by a single question
  - questions of different answers close enough for a fuzzy lookup to confuse

Examples:
  ans check
  ans check --fail-under 90`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [topic]",
	Short: "Suggest questions the knowledge file can answer",
	Long: `List stored questions related to a topic. Without a topic, list the
topics mentioned by the most answers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSuggest,
}

func init() {
	checkCmd.Flags().Float64Var(&checkFailUnder, "fail-under", 0, "exit non-zero when the score is below this value")
	suggestCmd.Flags().IntVarP(&suggestLimit, "limit", "n", 5, "maximum number of results")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if serverURL != "" {
		return errors.New("check works on the local knowledge file only")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}

	r := curation.Check(store.All(), curation.DefaultCheckConfig(matcher.FromSettings(cfg.Matcher)))
	printReport(cmd.OutOrStdout(), r)
	if r.Score < checkFailUnder {
		return fmt.Errorf("quality score %.1f is below %.1f", r.Score, checkFailUnder)
	}
	return nil
}

func printReport(out io.Writer, r curation.Report) {
	fmt.Fprintf(out, "Entries:    %d\n", r.Entries)
	fmt.Fprintf(out, "Questions:  %d\n", r.Variants)
	fmt.Fprintf(out, "Score:      %.1f/100\n", r.Score)
	if len(r.Issues) == 0 {
		fmt.Fprintln(out, "No issues found.")
		return
	}
	fmt.Fprintf(out, "\n%d issue(s):\n", len(r.Issues))
	for _, i := range r.Issues {
		ids := i.EntryID
		if i.OtherID != "" {
			ids += ", " + i.OtherID
		}
		fmt.Fprintf(out, "  %-15s %s: %s\n", i.Kind, ids, i.Detail)
	}
}

func runSuggest(cmd *cobra.Command, args []string) error {
	if serverURL != "" {
		return errors.New("suggest works on the local knowledge file only")
	}
	if suggestLimit < 1 {
		return errors.New("--limit must be at least 1")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}

	sg := curation.NewSuggester(store.All(), cfg.Matcher.FuzzyThreshold)
	topic := strings.Join(args, " ")
	printSuggestions(cmd.OutOrStdout(), sg, topic, suggestLimit)
	return nil
}

func printSuggestions(out io.Writer, sg *curation.Suggester, topic string, limit int) {
	if topic != "" {
		sugs := sg.Suggest(topic, limit)
		if len(sugs) > 0 {
			for i, s := range sugs {
				fmt.Fprintf(out, "%d. %s\n   %s\n", i+1, s.Question, s.Preview)
			}
			return
		}
		fmt.Fprintf(out, "Nothing stored about %q. Popular topics:\n", topic)
	}
	topics := sg.Topics(limit)
	if len(topics) == 0 {
		fmt.Fprintln(out, "The knowledge file is empty.")
		return
	}
	for _, t := range topics {
		fmt.Fprintf(out, "  %s (%d)\n", t.Word, t.Entries)
	}
}
