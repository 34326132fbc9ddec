package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/askdb/internal/agent"
	"github.com/kalambet/askdb/internal/config"
	"github.com/kalambet/askdb/internal/storage"
)

// --- seed ---

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with fixture data (idempotent)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		if err := store.Seed(); err != nil {
			return err
		}
		printSuccess("database ready at %s", cfg.Storage.DataDir)
		return nil
	},
}

// --- ask ---

var askUserID string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against a running askdb server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		body, err := json.Marshal(map[string]string{
			"user_id":  askUserID,
			"question": args[0],
		})
		if err != nil {
			return err
		}

		url := fmt.Sprintf("http://127.0.0.1:%d/api/question", cfg.Server.Port)
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if cfg.Server.Token != "" {
			req.Header.Set("Authorization", "Bearer "+cfg.Server.Token)
		}

		printStep("asking: %s", args[0])
		client := &http.Client{Timeout: 120 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("is the server running? start it with: askdb serve (%w)", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}

		var outcome agent.Outcome
		if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		if outcome.SQLQuery != "" {
			printStep("query: %s", outcome.SQLQuery)
		}
		fmt.Println(outcome.Response)

		if !outcome.Success {
			for _, e := range outcome.Errors {
				printWarning("%s: %s", e.Stage, e.Message)
			}
			return fmt.Errorf("question failed")
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askUserID, "user", "", "user id for conversation history")
}
