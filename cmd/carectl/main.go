package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiFlag   string
	tokenFlag string
	rootCmd   = &cobra.Command{
		Use:   "carectl",
		Short: "CLI client for MemoryCare backend REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8000", "MemoryCare service base URL")
	rootCmd.PersistentFlags().StringVarP(&tokenFlag, "token", "t", "", "Session token from a login command")

	// chat subcommand
	chatCmd := &cobra.Command{
		Use:   "chat USER_ID MESSAGE",
		Short: "Send one chat turn on behalf of a patient",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{"user_id": args[0], "message": args[1]}
			data, err := doPostJSON(endpoint("/chat", nil), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rootCmd.AddCommand(chatCmd)

	// remember subcommand
	rememberCmd := &cobra.Command{
		Use:   "remember USER_ID TEXT",
		Short: "Store one episodic memory directly",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{"user_id": args[0], "text": args[1]}
			data, err := doPostJSON(endpoint("/remember", nil), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rootCmd.AddCommand(rememberCmd)

	// health subcommand
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check service and dependency health",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(endpoint("/health", nil))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rootCmd.AddCommand(healthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
