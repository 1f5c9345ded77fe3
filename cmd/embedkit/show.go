package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/embedkit/internal/vectorfile"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

// showCmd prints a saved embedding
var showCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "Print an embedding file",
	Long: `Load an embedding file and print its dimension and values.

Only the first line of the file is read.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	vector, err := vectorfile.Load(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "dimension: %d\n", len(vector))
	fmt.Fprintln(out, vectorfile.Format(vector))
	return nil
}
