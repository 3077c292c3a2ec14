package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/answerd/internal/fsutil"
	"github.com/fyrsmithlabs/answerd/internal/knowledge"
)

const maxImportBytes = 16 << 20

const defaultServerURL = "http://localhost:9191"

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import answers from a knowledge file",
	Long: `Import answers into the local knowledge file.

Accepts the current layout and the legacy flat map of question to answer:

  {"what is a cloud": "A cloud is condensed water vapor."}

Questions already bound to a different answer are skipped and listed.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge store statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check answerd server health",
	Long: `Check the health status of the answerd HTTP server.

Examples:
  ans health
  ans health --server http://localhost:8080`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func runImport(cmd *cobra.Command, args []string) error {
	if serverURL != "" {
		return errors.New("import works on the local knowledge file only")
	}
	data, err := fsutil.ReadFileLimited(args[0], maxImportBytes)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	res, err := store.Import(data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d, unchanged %d, conflicts %d\n", res.Added, res.Unchanged, len(res.Conflicts))
	for _, v := range res.Conflicts {
		fmt.Fprintf(out, "  skipped %q: already bound to a different answer\n", v)
	}
	if store.Degraded() {
		return fmt.Errorf("answers kept in memory only; %s could not be written", store.Path())
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if serverURL != "" {
		st, err := newClient(serverURL).Status(cmd.Context())
		if err != nil {
			return err
		}
		printStats(out, st.Knowledge)
		fmt.Fprintf(out, "Session:    %s (%s, %d turns)\n", st.Session.ID, st.Session.State, st.Session.Turns)
		return nil
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	printStats(out, store.Stats())
	return nil
}

func printStats(out io.Writer, st knowledge.Stats) {
	mode := "persistent"
	if !st.Persistent {
		mode = "memory only"
	}
	fmt.Fprintf(out, "Entries:    %d\n", st.Entries)
	fmt.Fprintf(out, "Questions:  %d\n", st.Variants)
	if st.Path != "" {
		fmt.Fprintf(out, "File:       %s\n", st.Path)
	}
	fmt.Fprintf(out, "Mode:       %s\n", mode)
}

func runHealth(cmd *cobra.Command, args []string) error {
	url := serverURL
	if url == "" {
		url = defaultServerURL
	}
	resp, err := newClient(url).Health(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Server Status: %s\n", resp.Status)
	return nil
}
