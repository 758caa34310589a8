package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

var (
	leagueName     string
	leaguePassword string
)

func init() {
	importCmd.Flags().StringVar(&leagueName, "name", "", "Name of the imported league")
	importCmd.Flags().StringVar(&leaguePassword, "password", "", "Clearance code of the imported league")
	importCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(leaguesCmd)
	rootCmd.AddCommand(standingsCmd)
	rootCmd.AddCommand(announceCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(metricsCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/health", nil)
	},
}

var leaguesCmd = &cobra.Command{
	Use:   "leagues",
	Short: "List every league",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/leagues", nil)
	},
}

var standingsCmd = &cobra.Command{
	Use:   "standings <league-id>",
	Short: "Show the ranked standings of a league",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/leagues/"+url.PathEscape(args[0])+"/standings", nil)
	},
}

var announceCmd = &cobra.Command{
	Use:   "announce <league-id>",
	Short: "Post the standings of a league to Slack",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/leagues/"+url.PathEscape(args[0])+"/standings/announce", nil)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <league-id>",
	Short: "Print the export payload of a league",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/leagues/"+url.PathEscape(args[0])+"/export", nil)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Create a league from an export payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read export file: %w", err)
		}
		if !json.Valid(payload) {
			return fmt.Errorf("%s is not valid JSON", args[0])
		}
		body, err := json.Marshal(map[string]any{
			"name":     leagueName,
			"password": leaguePassword,
			"export":   json.RawMessage(payload),
		})
		if err != nil {
			return err
		}
		return performRequest(http.MethodPost, "/leagues/import", body)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Get the lifetime counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/stats", nil)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/metrics", nil)
	},
}

func performRequest(method, endpoint string, body []byte) error {
	target := host + endpoint
	if dryRun {
		target += "?dry_run=true"
	}
	fmt.Printf("Making request to %s\n", target)

	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(respBody))

	return nil
}
