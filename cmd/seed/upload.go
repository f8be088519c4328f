package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"profanity/pkg/index"
	"profanity/pkg/seed"
)

var (
	uploadURL   string
	uploadToken string
)

var uploadCmd = &cobra.Command{
	Use:   "upload [payload.json]",
	Short: "Upload a words or vectors payload to the service",
	Long: `Posts a payload written by prepare or vectors to the matching admin
endpoint. Vectors are sent in chunks the service upserts in one batch each.
The bearer token defaults to $UPLOAD_TOKEN.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadURL, "url", "http://localhost:8077", "service base URL")
	uploadCmd.Flags().StringVar(&uploadToken, "token", "", "admin bearer token")
	rootCmd.AddCommand(uploadCmd)
}

// payload accepts either kind of file.
type payload struct {
	Words   []string       `json:"words"`
	Vectors []index.Record `json:"vectors"`
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := "seed-payload.json"
	if len(args) > 0 {
		path = args[0]
	}

	token := uploadToken
	if token == "" {
		token = os.Getenv("UPLOAD_TOKEN")
	}
	if token == "" {
		return errors.New("no upload token, set --token or UPLOAD_TOKEN")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var p payload
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	base := strings.TrimRight(uploadURL, "/")
	switch {
	case p.Vectors != nil:
		total := 0
		for _, batch := range index.Batches(p.Vectors, seed.UpsertBatchSize) {
			resp, err := seed.Upload(cmd.Context(), httpClient, base+"/api/admin/upload-vectors", token, seed.VectorsPayload{Vectors: batch})
			if err != nil {
				return fmt.Errorf("after %d vectors: %w", total, err)
			}
			total += resp.Count
			cmd.Printf("Uploaded %d/%d vectors\n", total, len(p.Vectors))
		}
		return nil

	case p.Words != nil:
		resp, err := seed.Upload(cmd.Context(), httpClient, base+"/api/admin/words", token, seed.WordsPayload{Words: p.Words})
		if err != nil {
			return err
		}
		cmd.Println(resp.Message)
		return nil
	}

	return fmt.Errorf("%s has neither words nor vectors", path)
}
