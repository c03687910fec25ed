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

// scenesCmd represents the scenes command
var scenesCmd = &cobra.Command{
	Use:   "scenes",
	Short: "List the scenes of the network",
	Run: func(cmd *cobra.Command, args []string) {
		api, networkID := setupClient()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		info, err := api.NetworkInformation(ctx, networkID)
		if err != nil {
			fmt.Printf("Error fetching network: %v\n", err)
			os.Exit(1)
		}

		scenes := make([]sceneRow, 0, len(info.Scenes))
		for _, s := range info.Scenes {
			scenes = append(scenes, sceneRow{
				ID:       s.ID.Int(),
				Name:     s.Name,
				Position: s.Position,
				Hidden:   s.Hidden,
				Units:    len(s.Units),
			})
		}
		sort.Slice(scenes, func(i, j int) bool { return scenes[i].Position < scenes[j].Position })

		// --- JSON OUTPUT ---
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(scenes); err != nil {
				fmt.Printf("Error encoding JSON: %v\n", err)
				os.Exit(1)
			}
			return
		}
		// -------------------

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPOSITION\tHIDDEN\tUNITS")
		fmt.Fprintln(w, "--\t----\t--------\t------\t-----")

		for _, s := range scenes {
			fmt.Fprintf(w, "%d\t%s\t%d\t%t\t%d\n",
				s.ID,
				s.Name,
				s.Position,
				s.Hidden,
				s.Units,
			)
		}
		w.Flush()
	},
}

type sceneRow struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	Hidden   bool   `json:"hidden"`
	Units    int    `json:"units"`
}

func init() {
	rootCmd.AddCommand(scenesCmd)
}
