package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	httpserver "github.com/fyrsmithlabs/answerd/internal/http"
	"github.com/fyrsmithlabs/answerd/internal/knowledge"
)

// variantTemplates are the phrasings expand generates for a topic.
var variantTemplates = []string{
	"what is %s",
	"what is %s?",
	"tell me about %s",
	"explain %s",
	"%s definition",
	"define %s",
	"describe %s",
}

var (
	teachAnswer   string
	teachVariants []string
	teachReplace  bool
)

var teachCmd = &cobra.Command{
	Use:   "teach",
	Short: "Store an answer for one or more questions",
	Long: `Store an answer reachable by the given questions.

A question already bound to a different answer is rejected unless
--replace is given.

Examples:
  ans teach --answer "A cloud is condensed water vapor." \
    --variant "what is a cloud" --variant "what are clouds"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return teach(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), httpserver.TeachRequest{
			Answer:   teachAnswer,
			Variants: teachVariants,
			Replace:  teachReplace,
		})
	},
}

var expandCmd = &cobra.Command{
	Use:   "expand <topic>",
	Short: "Store an answer under the common phrasings of a topic",
	Long: `Store an answer under the usual ways of asking about a topic:
"what is X", "tell me about X", "define X" and so on.

Examples:
  ans expand rust --answer "Rust is a systems programming language."`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := strings.TrimSpace(strings.Join(args, " "))
		if topic == "" {
			return errors.New("topic is required")
		}
		return teach(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), httpserver.TeachRequest{
			Answer:   teachAnswer,
			Variants: expandVariants(topic),
			Replace:  teachReplace,
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{teachCmd, expandCmd} {
		c.Flags().StringVar(&teachAnswer, "answer", "", "the answer to store")
		c.Flags().BoolVar(&teachReplace, "replace", false, "rebind questions already bound to another answer")
		_ = c.MarkFlagRequired("answer")
	}
	teachCmd.Flags().StringArrayVar(&teachVariants, "variant", nil, "a question phrasing (repeatable)")
	_ = teachCmd.MarkFlagRequired("variant")
}

// expandVariants returns the templated phrasings for topic.
func expandVariants(topic string) []string {
	out := make([]string, len(variantTemplates))
	for i, t := range variantTemplates {
		out[i] = fmt.Sprintf(t, topic)
	}
	return out
}

func teach(ctx context.Context, out, errOut io.Writer, req httpserver.TeachRequest) error {
	var resp httpserver.TeachResponse
	if serverURL != "" {
		r, err := newClient(serverURL).Teach(ctx, req)
		if err != nil {
			return err
		}
		resp = r
	} else {
		store, err := openStore()
		if err != nil {
			return err
		}
		r, err := teachLocal(store, req)
		if err != nil {
			return err
		}
		resp = r
	}

	fmt.Fprintf(out, "Stored %s with %d question(s):\n", resp.ID, len(resp.Variants))
	for _, v := range resp.Variants {
		fmt.Fprintf(out, "  %s\n", v)
	}
	if resp.Warning != "" {
		fmt.Fprintf(errOut, "warning: %s\n", resp.Warning)
		if serverURL == "" {
			// The in-memory copy ends with this process.
			return errors.New("answer was not saved")
		}
	}
	return nil
}

func teachLocal(store *knowledge.Store, req httpserver.TeachRequest) (httpserver.TeachResponse, error) {
	e, degraded, err := store.TeachOrDegrade(req.Replace, req.Answer, req.Variants)
	if err != nil {
		var dup *knowledge.DuplicateVariantError
		if errors.As(err, &dup) {
			return httpserver.TeachResponse{}, fmt.Errorf("%w (use --replace to rebind it)", err)
		}
		return httpserver.TeachResponse{}, err
	}
	resp := httpserver.TeachResponse{
		ID:       e.ID,
		Answer:   e.Answer,
		Variants: e.Variants,
		Source:   e.Source,
	}
	if degraded {
		resp.Warning = fmt.Sprintf("%s could not be written; answer kept in memory only", store.Path())
	}
	return resp, nil
}
