package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"jobpilot/internal/secrets"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Store credentials in the OS keychain",
}

func init() {
	for _, s := range []struct {
		use, short, account string
	}{
		{"set-session", "Store the site session token", secrets.AccountSessionToken},
		{"set-gemini", "Store the Gemini API key", secrets.AccountGeminiKey},
		{"set-adzuna-id", "Store the Adzuna app id", secrets.AccountAdzunaID},
		{"set-adzuna-key", "Store the Adzuna app key", secrets.AccountAdzunaKey},
		{"set-reed", "Store the Reed API key", secrets.AccountReedKey},
		{"set-imap", "Store the IMAP password for job alert email parsing", secrets.AccountIMAPPassword},
	} {
		account := s.account
		secretsCmd.AddCommand(&cobra.Command{
			Use:   s.use,
			Short: s.short,
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return setSecret(account, args)
			},
		})
	}
	secretsCmd.AddCommand(&cobra.Command{
		Use:   "clear <account>",
		Short: "Remove a stored credential (session_token, gemini_api_key, ...)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := secrets.Delete(args[0]); err != nil {
				return fmt.Errorf("clear %s: %w", args[0], err)
			}
			fmt.Printf("%s cleared\n", args[0])
			return nil
		},
	})
	rootCmd.AddCommand(secretsCmd)
}

// setSecret stores the value from the argument, or prompts on stdin so the
// credential stays out of shell history.
func setSecret(account string, args []string) error {
	var value string
	if len(args) == 1 {
		value = args[0]
	} else {
		fmt.Printf("value for %s: ", account)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return err
		}
		value = strings.TrimSpace(line)
	}
	if err := secrets.Set(account, value); err != nil {
		return err
	}
	fmt.Printf("%s stored\n", account)
	return nil
}
