package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jhellqvist/casambid/internal/casambi"
)

// Variables to hold flag values
var (
	apiURL      string
	apiKey      string
	email       string
	password    string
	networkPass string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the Casambi Cloud",
	Long: `Creates a user session with the provided credentials and saves the
session id locally for future commands. Casambi throttles session
creation, so the saved session is reused until it expires.

Example:
  casambi-cli login --key myApiKey --email me@example.com --password secret`,
	Run: func(cmd *cobra.Command, args []string) {
		if password == "" && networkPass == "" {
			log.Fatal("Fatal: One of --password or --network-password is required")
		}

		cfg := casambi.ClientConfig{
			BaseURL:         apiURL,
			APIKey:          apiKey,
			Email:           email,
			UserPassword:    password,
			NetworkPassword: networkPass,
		}

		fmt.Printf("Authenticating as '%s'...\n", email)

		api := casambi.NewClient(cfg)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// With a site password the user session authenticates requests;
		// with only a network password the network session takes its place.
		var sessionID string
		if password != "" {
			id, err := api.CreateUserSession(ctx)
			if err != nil {
				log.Fatalf("Fatal: Login failed: %v", err)
			}
			api.UseSession(id)
			sessionID = id
		}

		networks, err := api.CreateNetworkSession(ctx)
		if err != nil {
			log.Fatalf("Fatal: Network session failed: %v", err)
		}
		if len(networks) == 0 {
			log.Fatal("Fatal: Account has no networks")
		}
		if sessionID == "" {
			sessionID = networks[0].SessionID
			if sessionID == "" {
				log.Fatal("Fatal: Cloud returned no session id for the network")
			}
		}

		fmt.Println("Login successful. Saving configuration...")

		// Save connection settings so subsequent commands know where
		// and how to connect.
		viper.Set("api_key", apiKey)
		if apiURL != "" {
			viper.Set("api_url", apiURL)
		}

		store := viperSessionStore{}
		if err := store.Save(casambi.Session{
			UserSessionID: sessionID,
			NetworkID:     networks[0].NetworkID,
			CreatedAt:     time.Now().Unix(),
		}); err != nil {
			log.Fatalf("Failed to save configuration file: %v", err)
		}

		fmt.Printf("Session saved for network %s. You can now run commands like './casambi-cli units'.\n", networks[0].NetworkID)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	// Define Flags
	// We use local flags because these are specific only to the login action.
	loginCmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL (default: official cloud)")
	loginCmd.Flags().StringVarP(&apiKey, "key", "k", "", "Developer API key")
	loginCmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	loginCmd.Flags().StringVarP(&password, "password", "p", "", "Site password")
	loginCmd.Flags().StringVar(&networkPass, "network-password", "", "Network password (alternative to --password)")

	// Mark required flags to ensure the user provides necessary info
	_ = loginCmd.MarkFlagRequired("key")
	_ = loginCmd.MarkFlagRequired("email")
}
