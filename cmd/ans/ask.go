package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/answerd/internal/assistant"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <utterance>",
	Short: "Answer a single question",
	Long: `Answer a single question and exit.

Locally the question goes straight through the fallback chain: stored
answers, then the generative backend, then a static reply. With --server
it is sent to the daemon's session.

Examples:
  ans ask what is a cloud
  ans ask --json "what is blockchain?"
  ans ask --server http://localhost:9191 what is a cloud`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full reply as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	utterance := strings.Join(args, " ")

	var reply assistant.Reply
	if serverURL != "" {
		r, err := newClient(serverURL).Ask(ctx, utterance)
		if err != nil {
			return err
		}
		reply = r
	} else {
		reg, err := openServices(ctx)
		if err != nil {
			return err
		}
		p := reg.Profiles().Load()
		res, err := reg.Resolver().Resolve(ctx, utterance, nil, p)
		if err != nil {
			return err
		}
		reply = assistant.Reply{
			Text:       res.Answer,
			Strategy:   res.Strategy,
			Confidence: res.Confidence,
			State:      reg.Session().State(),
			Persisted:  res.Persisted(),
		}
	}
	return printReply(cmd.OutOrStdout(), cmd.ErrOrStderr(), reply, askJSON)
}

func printReply(out, errOut io.Writer, r assistant.Reply, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Fprintln(out, r.Text)
	fmt.Fprintf(errOut, "[%s %.2f]", r.Strategy, r.Confidence)
	if r.Persisted {
		fmt.Fprint(errOut, " learned")
	}
	fmt.Fprintln(errOut)
	return nil
}
