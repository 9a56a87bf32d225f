package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/Resonate-Protocol/resonate-capture/internal/capture"
	"github.com/Resonate-Protocol/resonate-capture/internal/telemetry"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture and playback devices",
	Long: `List the devices miniaudio can open. Capture devices can be used as the
microphone or game input; playback devices can be captured with --loopback
on backends that support it.`,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	devices, err := capture.ListDevices(telemetry.LogSink{})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tDEFAULT\tID\tNAME")
	for _, d := range devices {
		kind := "playback"
		if d.Input {
			kind = "capture"
		}
		def := ""
		if d.IsDefault {
			def = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", kind, def, d.ID, d.Name)
	}
	return w.Flush()
}
