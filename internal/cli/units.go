package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// Parent Command
var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "Inspect luminaires",
	Long:  `List the units of the network and show their live state.`,
}

// List Command
var unitsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all units",
	Run: func(cmd *cobra.Command, args []string) {
		api, networkID := setupClient()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		info, err := api.NetworkInformation(ctx, networkID)
		if err != nil {
			fmt.Printf("Error fetching network: %v\n", err)
			os.Exit(1)
		}

		units := make([]unitRow, 0, len(info.Units))
		for _, u := range info.Units {
			units = append(units, unitRow{
				ID:        u.ID.Int(),
				Name:      u.Name,
				Address:   u.Address,
				Type:      u.Type,
				FixtureID: int(u.FixtureID),
			})
		}
		sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })

		// --- JSON OUTPUT ---
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(units); err != nil {
				fmt.Printf("Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			return
		}
		// -------------------

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tADDRESS\tTYPE\tFIXTURE")
		fmt.Fprintln(w, "--\t----\t-------\t----\t-------")

		for _, u := range units {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n",
				u.ID,
				u.Name,
				u.Address,
				u.Type,
				u.FixtureID,
			)
		}
		w.Flush()
	},
}

// State Command
var unitsStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the live state of all units",
	Run: func(cmd *cobra.Command, args []string) {
		api, networkID := setupClient()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		state, err := api.NetworkState(ctx, networkID)
		if err != nil {
			fmt.Printf("Error fetching state: %v\n", err)
			os.Exit(1)
		}

		units := make([]unitStateRow, 0, len(state.Units))
		for _, u := range state.Units {
			row := unitStateRow{
				ID:     u.ID.Int(),
				Name:   u.Name,
				Online: u.Online,
				Status: u.Status,
			}
			if u.On {
				row.Value = u.DimLevel
			}
			units = append(units, row)
		}
		sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })

		// --- JSON OUTPUT ---
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(units); err != nil {
				fmt.Printf("Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			return
		}
		// -------------------

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tVALUE\tONLINE\tSTATUS")
		fmt.Fprintln(w, "--\t----\t-----\t------\t------")

		for _, u := range units {
			fmt.Fprintf(w, "%d\t%s\t%.2f\t%t\t%s\n",
				u.ID,
				u.Name,
				u.Value,
				u.Online,
				u.Status,
			)
		}
		w.Flush()
	},
}

type unitRow struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Type      string `json:"type"`
	FixtureID int    `json:"fixture_id"`
}

type unitStateRow struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Online bool    `json:"online"`
	Status string  `json:"status"`
}

func init() {
	// Register Parent
	rootCmd.AddCommand(unitsCmd)

	// Register Subcommands
	unitsCmd.AddCommand(unitsListCmd)
	unitsCmd.AddCommand(unitsStateCmd)
}
