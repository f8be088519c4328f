package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"profanity/pkg/seed"
)

var prepareOut string

// seedSources is swapped out in tests.
var seedSources = seed.DefaultSources

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Fetch the word lists into a words payload",
	Long: `Fetches every configured list and writes {"words": [...]} for the
/api/admin/words endpoint. The service embeds the words itself.`,
	Args: cobra.NoArgs,
	RunE: runPrepare,
}

func init() {
	prepareCmd.Flags().StringVarP(&prepareOut, "out", "o", "seed-payload.json", "output file")
	rootCmd.AddCommand(prepareCmd)
}

func runPrepare(cmd *cobra.Command, _ []string) error {
	lists := seed.FetchAll(cmd.Context(), httpClient, selectedSources())
	if lists.Total() == 0 {
		return fmt.Errorf("no words fetched")
	}

	payload := seed.WordsPayload{Words: lists.Words()}
	if err := writeJSONFile(prepareOut, payload); err != nil {
		return err
	}

	cmd.Printf("Wrote %d words in %d languages to %s\n", len(payload.Words), len(lists), prepareOut)
	return nil
}

// selectedSources filters the sources by the --lang flag.
func selectedSources() []seed.Source {
	if len(languages) == 0 {
		return seedSources
	}

	want := make(map[string]bool, len(languages))
	for _, l := range languages {
		want[l] = true
	}
	var out []seed.Source
	for _, s := range seedSources {
		if want[s.Language] {
			out = append(out, s)
		}
	}
	return out
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(v); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
