package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"profanity/pkg/config"
	"profanity/pkg/seed"
)

var vectorsOut string

var vectorsCmd = &cobra.Command{
	Use:   "vectors",
	Short: "Fetch and embed the word lists into a vectors payload",
	Long: `Fetches every configured list, embeds the words with the provider from
the service config and writes {"vectors": [...]} for the
/api/admin/upload-vectors endpoint. Record IDs carry the language.`,
	Args: cobra.NoArgs,
	RunE: runVectors,
}

func init() {
	vectorsCmd.Flags().StringVarP(&vectorsOut, "out", "o", "vectors-payload.json", "output file")
	rootCmd.AddCommand(vectorsCmd)
}

func runVectors(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	embedder, err := cfg.Embedding.NewEmbedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	lists := seed.FetchAll(cmd.Context(), httpClient, selectedSources())
	if lists.Total() == 0 {
		return fmt.Errorf("no words fetched")
	}

	records, err := seed.EmbedLists(cmd.Context(), embedder, lists)
	if err != nil {
		return err
	}

	if err := writeJSONFile(vectorsOut, seed.VectorsPayload{Vectors: records}); err != nil {
		return err
	}

	cmd.Printf("Wrote %d vectors (%s, %d dims) to %s\n", len(records), embedder.ModelName(), embedder.Dimensions(), vectorsOut)
	return nil
}
