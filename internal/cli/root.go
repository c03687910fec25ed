// Package cli implements the casambi-cli command tree.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jhellqvist/casambid/internal/casambi"
)

var cfgFile string
var jsonOutput bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "casambi-cli",
	Short: "A CLI for interacting with the Casambi Cloud API",
	Long: `Inspect and control Casambi luminaires and scenes
via the Casambi Cloud API.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() { initConfig(cfgFile) })

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.casambi-cli.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
}

// initConfig reads in config file and ENV variables if set.
func initConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".casambi-cli" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".casambi-cli")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		// Config loaded successfully
	}
}

// saveConfig persists the current viper state to the config file,
// creating it when it does not exist yet.
func saveConfig() error {
	if err := viper.WriteConfig(); err != nil {
		// If file doesn't exist, create it
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return viper.SafeWriteConfig()
		}
		// If it exists but failed to write, try writing to default path
		home, _ := os.UserHomeDir()
		path := filepath.Join(home, ".casambi-cli.yaml")
		return viper.WriteConfigAs(path)
	}
	return nil
}

// setupClient builds a REST client from the saved configuration.
// Returns the client and the saved network id.
func setupClient() (*casambi.Client, string) {
	apiKey := viper.GetString("api_key")
	session := viper.GetString("session_id")
	networkID := viper.GetString("network_id")

	if apiKey == "" || session == "" || networkID == "" {
		fmt.Println("Error: Not logged in. Please run 'casambi-cli login' first.")
		os.Exit(1)
	}

	api := casambi.NewClient(casambi.ClientConfig{
		BaseURL: viper.GetString("api_url"),
		APIKey:  apiKey,
	})
	api.UseSession(session)

	return api, networkID
}

// viperSessionStore persists the controller session through the CLI
// config file, so daemonless commands reuse the saved session.
type viperSessionStore struct{}

func (viperSessionStore) Load() (casambi.Session, bool, error) {
	session := viper.GetString("session_id")
	networkID := viper.GetString("network_id")
	if session == "" || networkID == "" {
		return casambi.Session{}, false, nil
	}
	return casambi.Session{
		UserSessionID: session,
		NetworkID:     networkID,
		CreatedAt:     viper.GetInt64("session_created_at"),
	}, true, nil
}

func (viperSessionStore) Save(s casambi.Session) error {
	viper.Set("session_id", s.UserSessionID)
	viper.Set("network_id", s.NetworkID)
	if s.CreatedAt == 0 {
		s.CreatedAt = time.Now().Unix()
	}
	viper.Set("session_created_at", s.CreatedAt)
	return saveConfig()
}

func (viperSessionStore) Clear() error {
	viper.Set("session_id", "")
	viper.Set("network_id", "")
	viper.Set("session_created_at", 0)
	return saveConfig()
}
