package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/embedkit/internal/embeddings"
	"github.com/fyrsmithlabs/embedkit/internal/vectorfile"
)

var (
	embedOut   string
	embedModel string
	embedQuery bool
)

func init() {
	rootCmd.AddCommand(embedCmd)
	embedCmd.Flags().StringVarP(&embedOut, "out", "o", "", "file to write the embedding to")
	embedCmd.Flags().StringVarP(&embedModel, "model", "m", "", "embedding spec (default from config)")
	embedCmd.Flags().BoolVarP(&embedQuery, "query", "q", false, "embed the text as a search query")
	_ = embedCmd.MarkFlagRequired("out")
}

// embedCmd embeds text and saves the vector
var embedCmd = &cobra.Command{
	Use:   "embed [text]",
	Short: "Embed text and save the vector to a file",
	Long: `Embed text with the resolved model and write the vector to a file as a
single comma-separated line.

Text is read from stdin when no argument (or "-") is given.

Examples:
  # Embed a document with the configured model
  embedkit embed "hello world" --out hello.vec

  # Embed a query with a local model
  echo "what is a vector?" | embedkit embed --query --model local --out q.vec`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEmbed,
}

func runEmbed(cmd *cobra.Command, args []string) error {
	text, err := readText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	var spec embeddings.Spec
	if embedModel != "" {
		spec, err = embeddings.ParseSpec(embedModel)
	} else {
		spec, err = embeddings.ConfiguredSpec(a.cfg)
	}
	if err != nil {
		return err
	}

	r, err := embeddings.NewResolverFromConfig(a.cfg, a.logger)
	if err != nil {
		return err
	}
	model, err := r.ResolveModel(cmd.Context(), spec)
	if err != nil {
		return err
	}
	defer closeModel(model)

	var vector []float32
	if embedQuery {
		vector, err = model.QueryEmbedding(cmd.Context(), text)
	} else {
		vector, err = model.TextEmbedding(cmd.Context(), text)
	}
	if err != nil {
		return fmt.Errorf("embedding text: %w", err)
	}

	if err := vectorfile.Save(vector, embedOut); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d values from %s to %s\n", len(vector), model.ModelName(), embedOut)
	return nil
}

func readText(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		return args[0], nil
	}
	content, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}
	text := strings.TrimRight(string(content), "\r\n")
	if text == "" {
		return "", fmt.Errorf("no text to embed")
	}
	return text, nil
}
