package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jhellqvist/casambid/internal/casambi"
	"github.com/jhellqvist/casambid/internal/eventbus"
)

// Variables to hold flag values
var (
	controlID    int
	controlValue float64
	controlCCT   int
	controlRed   int
	controlGreen int
	controlBlue  int
	controlWhite int
	sceneLevel   float64
	sceneOff     bool
)

// wireTimeout bounds how long control commands wait for the WebSocket
// wire to come up.
const wireTimeout = 30 * time.Second

// setupController builds a controller from the saved configuration and
// brings the WebSocket wire up. The returned cancel func tears the wire
// down again.
func setupController(maxReconnects int) (*casambi.Controller, context.CancelFunc) {
	apiKey := viper.GetString("api_key")
	if apiKey == "" || viper.GetString("session_id") == "" {
		fmt.Println("Error: Not logged in. Please run 'casambi-cli login' first.")
		os.Exit(1)
	}

	api := casambi.NewClient(casambi.ClientConfig{
		BaseURL: viper.GetString("api_url"),
		APIKey:  apiKey,
	})

	bus := eventbus.New()
	stream := casambi.DefaultStreamConfig()
	stream.MaxReconnects = maxReconnects
	controller := casambi.NewController(api, stream, viperSessionStore{}, bus)

	// Signal when the wire comes up
	connected := make(chan struct{}, 1)
	bus.Subscribe(eventbus.EventTypeConnectionState, func(event eventbus.Event) {
		if state, _ := event.Data["state"].(string); state == casambi.ConnectionStateConnected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())

	loginCtx, loginCancel := context.WithTimeout(ctx, wireTimeout)
	defer loginCancel()
	if err := controller.Login(loginCtx); err != nil {
		fmt.Printf("Error: Login failed (session may have expired, re-run 'casambi-cli login'): %v\n", err)
		cancel()
		os.Exit(1)
	}

	go controller.Run(ctx)

	select {
	case <-connected:
	case <-time.After(wireTimeout):
		fmt.Println("Error: Timed out waiting for the WebSocket wire.")
		cancel()
		os.Exit(1)
	}

	return controller, cancel
}

// finishControl gives the write a moment to flush before tearing down.
func finishControl(cancel context.CancelFunc) {
	time.Sleep(500 * time.Millisecond)
	cancel()
	fmt.Println("Success.")
}

// Parent Command
var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Control units and scenes",
	Long:  `Send control commands over the WebSocket wire.`,
}

var controlOnCmd = &cobra.Command{
	Use:     "on",
	Short:   "Turn a unit on",
	Example: `  casambi-cli control on --id 8`,
	Run: func(cmd *cobra.Command, args []string) {
		controller, cancel := setupController(1)
		if err := controller.TurnUnitOn(controlID); err != nil {
			fmt.Printf("Error: %v\n", err)
			cancel()
			os.Exit(1)
		}
		finishControl(cancel)
	},
}

var controlOffCmd = &cobra.Command{
	Use:     "off",
	Short:   "Turn a unit off",
	Example: `  casambi-cli control off --id 8`,
	Run: func(cmd *cobra.Command, args []string) {
		controller, cancel := setupController(1)
		if err := controller.TurnUnitOff(controlID); err != nil {
			fmt.Printf("Error: %v\n", err)
			cancel()
			os.Exit(1)
		}
		finishControl(cancel)
	},
}

var controlValueCmd = &cobra.Command{
	Use:     "value",
	Short:   "Set the brightness of a unit",
	Example: `  casambi-cli control value --id 8 --value 0.4`,
	Run: func(cmd *cobra.Command, args []string) {
		controller, cancel := setupController(1)
		if err := controller.SetUnitValue(controlID, controlValue); err != nil {
			fmt.Printf("Error: %v\n", err)
			cancel()
			os.Exit(1)
		}
		finishControl(cancel)
	},
}

var controlCCTCmd = &cobra.Command{
	Use:     "cct",
	Short:   "Set the color temperature of a unit in kelvin",
	Example: `  casambi-cli control cct --id 8 --kelvin 2700`,
	Run: func(cmd *cobra.Command, args []string) {
		controller, cancel := setupController(1)

		// Clamping needs the fixture's CCT range from the network info
		initCtx, initCancel := context.WithTimeout(context.Background(), wireTimeout)
		defer initCancel()
		if err := controller.Initialize(initCtx); err != nil {
			fmt.Printf("Error: Failed to load network information: %v\n", err)
			cancel()
			os.Exit(1)
		}

		if err := controller.SetUnitColorTemperature(controlID, controlCCT); err != nil {
			fmt.Printf("Error: %v\n", err)
			cancel()
			os.Exit(1)
		}
		finishControl(cancel)
	},
}

var controlRGBCmd = &cobra.Command{
	Use:   "rgb",
	Short: "Set the color of a unit",
	Example: `  casambi-cli control rgb --id 8 --red 255 --green 100 --blue 0
  casambi-cli control rgb --id 8 --red 255 --green 100 --blue 0 --white 40`,
	Run: func(cmd *cobra.Command, args []string) {
		controller, cancel := setupController(1)

		var err error
		if cmd.Flags().Changed("white") {
			err = controller.SetUnitRGBW(controlID, uint8(controlRed), uint8(controlGreen), uint8(controlBlue), uint8(controlWhite), true)
		} else {
			err = controller.SetUnitRGB(controlID, uint8(controlRed), uint8(controlGreen), uint8(controlBlue), true)
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			cancel()
			os.Exit(1)
		}
		finishControl(cancel)
	},
}

var controlSceneCmd = &cobra.Command{
	Use:   "scene",
	Short: "Activate or deactivate a scene",
	Example: `  casambi-cli control scene --id 10
  casambi-cli control scene --id 10 --level 0.5
  casambi-cli control scene --id 10 --off`,
	Run: func(cmd *cobra.Command, args []string) {
		controller, cancel := setupController(1)

		var err error
		switch {
		case sceneOff:
			err = controller.TurnSceneOff(controlID)
		case cmd.Flags().Changed("level"):
			err = controller.SetSceneLevel(controlID, sceneLevel)
		default:
			err = controller.TurnSceneOn(controlID)
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			cancel()
			os.Exit(1)
		}
		finishControl(cancel)
	},
}

func init() {
	// Register Parent
	rootCmd.AddCommand(controlCmd)

	// Register Subcommands
	controlCmd.AddCommand(controlOnCmd)
	controlCmd.AddCommand(controlOffCmd)
	controlCmd.AddCommand(controlValueCmd)
	controlCmd.AddCommand(controlCCTCmd)
	controlCmd.AddCommand(controlRGBCmd)
	controlCmd.AddCommand(controlSceneCmd)

	// The target id is shared by every control subcommand
	for _, c := range []*cobra.Command{controlOnCmd, controlOffCmd, controlValueCmd, controlCCTCmd, controlRGBCmd, controlSceneCmd} {
		c.Flags().IntVar(&controlID, "id", 0, "Target unit or scene id")
		_ = c.MarkFlagRequired("id")
	}

	controlValueCmd.Flags().Float64Var(&controlValue, "value", 1.0, "Brightness within [0, 1]")
	_ = controlValueCmd.MarkFlagRequired("value")

	controlCCTCmd.Flags().IntVar(&controlCCT, "kelvin", 0, "Color temperature in kelvin")
	_ = controlCCTCmd.MarkFlagRequired("kelvin")

	controlRGBCmd.Flags().IntVar(&controlRed, "red", 0, "Red channel (0-255)")
	controlRGBCmd.Flags().IntVar(&controlGreen, "green", 0, "Green channel (0-255)")
	controlRGBCmd.Flags().IntVar(&controlBlue, "blue", 0, "Blue channel (0-255)")
	controlRGBCmd.Flags().IntVar(&controlWhite, "white", 0, "White channel (0-255, RGBW units only)")

	controlSceneCmd.Flags().Float64Var(&sceneLevel, "level", 1.0, "Scene level within [0, 1]")
	controlSceneCmd.Flags().BoolVar(&sceneOff, "off", false, "Deactivate the scene instead")
}
