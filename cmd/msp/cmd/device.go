package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"msp-toolkit/internal/model"
	"msp-toolkit/internal/service"
)

var (
	deviceClient string
	deviceType   string
	deviceRMMID  string
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage client devices",
}

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List devices",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(cmd)
		defer a.Close()

		devices, err := a.devices.List(cmd.Context(), deviceClient)
		if err != nil {
			fail(err)
		}
		if len(devices) == 0 {
			warn("No devices found")
			return
		}

		fmt.Printf("%-6s %-20s %-24s %-12s %-16s %s\n", bold("ID"), bold("CLIENT"), bold("NAME"), bold("TYPE"), bold("RMM ID"), bold("LAST SEEN"))
		for _, d := range devices {
			lastSeen := "-"
			if d.LastSeen != nil {
				lastSeen = d.LastSeen.Format(timeLayout)
			}
			fmt.Printf("%-6d %-20s %-24s %-12s %-16s %s\n", d.ID, d.ClientID, d.Name, d.Type, d.RMMDeviceID, lastSeen)
		}
	},
}

var deviceAddCmd = &cobra.Command{
	Use:     "add <client> <name>",
	Short:   "Register a device for a client",
	Example: `  msp device add acme-corp web-01 --type server --rmm-id 4711`,
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(cmd)
		defer a.Close()

		device, err := a.devices.Add(cmd.Context(), service.AddDeviceInput{
			ClientID:    args[0],
			Name:        args[1],
			Type:        model.DeviceType(deviceType),
			RMMDeviceID: deviceRMMID,
		})
		if err != nil {
			fail(err)
		}
		success("Device %s registered for %s (id %d)", device.Name, device.ClientID, device.ID)
	},
}

var deviceDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a device",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fail(&model.ValidationError{Field: "id", Value: args[0], Message: fmt.Sprintf("device id must be an integer, got %q", args[0])})
		}

		a := bootstrap(cmd)
		defer a.Close()

		if err := a.devices.Delete(cmd.Context(), id); err != nil {
			fail(err)
		}
		success("Device %d removed", id)
	},
}

func init() {
	rootCmd.AddCommand(deviceCmd)
	deviceCmd.AddCommand(deviceListCmd, deviceAddCmd, deviceDeleteCmd)

	deviceListCmd.Flags().StringVar(&deviceClient, "client", "", "only list devices of this client")
	deviceAddCmd.Flags().StringVar(&deviceType, "type", "workstation", "device type (workstation, server, network, mobile, other)")
	deviceAddCmd.Flags().StringVar(&deviceRMMID, "rmm-id", "", "identifier in the RMM platform")
}
