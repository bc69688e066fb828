package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akorchak/intentd/internal/chat"
	"github.com/akorchak/intentd/internal/config"
	"github.com/akorchak/intentd/internal/storage"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send a message to the running server and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/chat", map[string]string{"text": message})
		if err != nil {
			return err
		}

		var result chat.Result
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		switch result.Source {
		case chat.SourceKB:
			tag := ""
			if result.Intent != nil {
				tag = *result.Intent
			}
			fmt.Printf("%s\n", result.Reply)
			printStatus("Source", "catalog (%s)", tag)
		case chat.SourceAI:
			fmt.Printf("%s\n", result.Reply)
			printStatus("Source", "generative model")
		default:
			fmt.Printf("%s\n", result.Reply)
			printError("%s", result.Err)
		}
		return nil
	},
}

// --- log ---

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/interactions?limit=%d", limit))
		if err != nil {
			return err
		}

		var interactions []storage.Interaction
		if err := decodeJSON(resp, &interactions); err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(interactions)
		}

		if len(interactions) == 0 {
			fmt.Println("No interactions recorded.")
			return nil
		}

		for _, ix := range interactions {
			question := ix.Question
			if len(question) > 60 {
				question = question[:60] + "..."
			}
			fmt.Printf("%s  %s  [%s]  %s\n",
				colorize(colorCyan, shortID(ix.ID)),
				ix.CreatedAt.Format("2006-01-02 15:04:05"),
				ix.Source,
				question,
			)
		}
		return nil
	},
}

func init() {
	logCmd.Flags().Int("limit", 20, "maximum number of interactions to show")
	logCmd.Flags().Bool("json", false, "print full records as JSON")
}

// shortID abbreviates a record ID for display. IDs are normally UUIDs, but
// records from other writers may carry shorter ones.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a single configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			if k.Key == args[0] {
				fmt.Println(k.Value)
				return nil
			}
		}
		return fmt.Errorf("unknown config key: %q", args[0])
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List valid configuration keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, k := range config.ValidKeys() {
			fmt.Println(k)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
}
