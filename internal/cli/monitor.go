package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhellqvist/casambid/internal/eventbus"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Stream live unit events to stdout",
	Long: `Connects to the WebSocket wire and prints unit changes, gateway
transitions and connection state until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		controller, cancel := setupController(0)
		defer cancel()

		bus := controller.Bus()

		bus.Subscribe(eventbus.EventTypeUnitChanged, func(event eventbus.Event) {
			printEvent("unit", event.Data)
		})
		bus.Subscribe(eventbus.EventTypePeerChanged, func(event eventbus.Event) {
			printEvent("peer", event.Data)
		})
		bus.Subscribe(eventbus.EventTypeConnectionState, func(event eventbus.Event) {
			printEvent("connection", event.Data)
		})

		fmt.Println("Monitoring. Press Ctrl+C to stop.")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
	},
}

func printEvent(kind string, data map[string]interface{}) {
	ts := time.Now().Format(time.RFC3339)

	if jsonOutput {
		out := map[string]interface{}{"ts": ts, "kind": kind, "data": data}
		if b, err := json.Marshal(out); err == nil {
			fmt.Println(string(b))
		}
		return
	}

	switch kind {
	case "unit":
		fmt.Printf("%s unit %v (%v) value=%v online=%v\n",
			ts, data["id"], data["name"], data["value"], data["online"])
	case "peer":
		fmt.Printf("%s gateway online=%v\n", ts, data["online"])
	case "connection":
		fmt.Printf("%s wire %v\n", ts, data["state"])
	}
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
