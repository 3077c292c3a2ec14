package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/answerd/internal/chatui"
)

var chatPlain bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a conversation",
	Long: `Start a conversation with a local session.

The assistant asks for your name the first time, answers from the knowledge
file when it can, and remembers generated answers for next time. Say
"goodbye" to end the session.

Examples:
  # Full-screen chat
  ans chat

  # Line-oriented chat, e.g. for piping
  echo "what is a cloud" | ans chat --plain`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "line-oriented chat without the terminal UI")
}

func runChat(cmd *cobra.Command, args []string) error {
	if serverURL != "" {
		return errors.New("chat runs a local session; use ask --server to query a daemon")
	}
	ctx := cmd.Context()
	reg, err := openServices(ctx)
	if err != nil {
		return err
	}

	if chatPlain {
		return runPlain(ctx, reg.Session(), cmd.InOrStdin(), cmd.OutOrStdout())
	}
	_, err = tea.NewProgram(chatui.NewModel(reg.Session())).Run()
	return err
}

// runPlain reads one utterance per line until the session ends or in is
// exhausted.
func runPlain(ctx context.Context, s chatui.Session, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, s.Start(ctx).Text)

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		r, err := s.Handle(ctx, sc.Text())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, r.Text)
		if r.End {
			return nil
		}
	}
}
