package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/embedkit/internal/cachedir"
	"github.com/fyrsmithlabs/embedkit/internal/embeddings"
)

var (
	runtimeVersion string
	forceDownload  bool
)

func init() {
	rootCmd.AddCommand(runtimeCmd)
	runtimeCmd.AddCommand(runtimeInstallCmd)
	runtimeInstallCmd.Flags().StringVar(&runtimeVersion, "version", embeddings.DefaultONNXRuntimeVersion, "ONNX runtime version to install")
	runtimeInstallCmd.Flags().BoolVarP(&forceDownload, "force", "f", false, "Force re-download even if ONNX runtime exists")
}

// runtimeCmd groups native runtime management
var runtimeCmd = &cobra.Command{
	Use:   "runtime",
	Short: "Manage the native runtime used by local models",
}

// runtimeInstallCmd installs the ONNX runtime
var runtimeInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Download the ONNX runtime for local embeddings",
	Long: `Download the ONNX runtime library required by local embedding models.

The library is installed to <cache root>/lib, where the cache root is
embedding.cache_dir, EMBEDKIT_CACHE_DIR or $XDG_CACHE_HOME/embedkit.
If the ONNX_PATH environment variable is set, that path takes precedence.

Examples:
  # Install the default version
  embedkit runtime install

  # Force re-download
  embedkit runtime install --force`,
	Args: cobra.NoArgs,
	RunE: runRuntimeInstall,
}

func runRuntimeInstall(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	root := a.cfg.Embedding.CacheDir
	if root == "" {
		root = cachedir.DefaultRoot()
	}
	libDir := cachedir.Lib(root)

	if !forceDownload {
		if path := embeddings.GetONNXLibraryPath(libDir); path != "" {
			cmd.Printf("ONNX runtime already installed at: %s\n", path)
			cmd.Println("Use --force to re-download.")
			return nil
		}
	}

	cmd.Printf("Downloading ONNX runtime v%s...\n", runtimeVersion)
	if err := embeddings.DownloadONNXRuntime(cmd.Context(), runtimeVersion, libDir); err != nil {
		return fmt.Errorf("failed to download ONNX runtime: %w", err)
	}

	path := embeddings.GetONNXLibraryPath(libDir)
	if path == "" {
		return fmt.Errorf("download completed but library not found")
	}
	cmd.Printf("Successfully installed ONNX runtime to: %s\n", path)
	return nil
}
