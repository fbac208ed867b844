package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cdelab/curator/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "curator %s\n", AppVersion)
	fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
	fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
	fmt.Fprintln(out)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(out, "Configuration: unavailable (%v)\n", err)
		return nil
	}

	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Provider: %s\n", cfg.Provider)
	fmt.Fprintf(out, "  Model: %s\n", cfg.FullModelName())
	fmt.Fprintf(out, "  Embedder: %s\n", cfg.EmbedderModel)
	fmt.Fprintf(out, "  Database: %s@%s:%d/%s\n",
		cfg.PostgresUser, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDBName)
	fmt.Fprintf(out, "  Working dir: %s\n", cfg.WorkingDir)

	// Report key presence only, never the key itself.
	switch cfg.Provider {
	case config.ProviderOpenAI:
		reportKey(out, "OPENAI_API_KEY")
	case config.ProviderOllama:
		fmt.Fprintf(out, "  Ollama host: %s\n", cfg.OllamaHost)
	default:
		reportKey(out, "GEMINI_API_KEY")
	}
	return nil
}

func reportKey(out io.Writer, name string) {
	if os.Getenv(name) != "" {
		fmt.Fprintf(out, "  %s: configured\n", name)
	} else {
		fmt.Fprintf(out, "  %s: not set\n", name)
	}
}
