package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/embedkit/internal/config"
	"github.com/fyrsmithlabs/embedkit/internal/embeddings"
)

func init() {
	rootCmd.AddCommand(resolveCmd)
}

// resolveCmd resolves a spec and reports the model it yields
var resolveCmd = &cobra.Command{
	Use:   "resolve [spec]",
	Short: "Resolve an embedding spec to a model",
	Long: `Resolve an embedding spec and print the model it resolves to.

Without an argument the spec comes from embedding.model in the config. An
empty spec tries the default remote provider and falls back to the local
model BAAI/bge-small-en when it is unavailable.

Examples:
  # Resolve the configured spec
  embedkit resolve

  # Resolve a specific local model
  embedkit resolve local:BAAI/bge-base-en-v1.5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	spec, err := specFromArgs(a.cfg, args)
	if err != nil {
		return err
	}

	r, err := embeddings.NewResolverFromConfig(a.cfg, a.logger)
	if err != nil {
		return err
	}

	res, err := r.Resolve(cmd.Context(), spec)
	if err != nil {
		return err
	}
	defer closeModel(res.Model)

	out := cmd.OutOrStdout()
	name := res.Model.ModelName()
	fmt.Fprintf(out, "model: %s\n", name)
	if dim, ok := embeddings.KnownDimension(name); ok {
		fmt.Fprintf(out, "dimension: %d\n", dim)
	}
	if res.Fallback != nil {
		fmt.Fprintf(out, "fallback: %s (%v)\n", res.Fallback.Model, res.Fallback.Reason)
	}
	return nil
}

// specFromArgs prefers an explicit argument over embedding.model.
func specFromArgs(cfg *config.Config, args []string) (embeddings.Spec, error) {
	if len(args) > 0 {
		return embeddings.ParseSpec(args[0])
	}
	return embeddings.ConfiguredSpec(cfg)
}
