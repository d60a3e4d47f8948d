package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/grab/internal/capture"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture devices",
	Long: `List the V4L2 capture devices reported by v4l2-ctl.

The INDEX column is the number to pass to grab.`,
	Example: `  # List devices in table format (default)
  grab devices

  # List devices in JSON format
  grab devices --format json`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

var devicesFormat string

func init() {
	rootCmd.AddCommand(devicesCmd)

	devicesCmd.Flags().StringVarP(&devicesFormat, "format", "f", "table", "output format (table or json)")
}

func runDevices(cmd *cobra.Command, args []string) error {
	devices, err := capture.ListDevices()
	if err != nil {
		return err
	}

	switch devicesFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(devices)
	case "table":
		return printDevicesTable(devices)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", devicesFormat)
	}
}

func printDevicesTable(devices []capture.Device) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "INDEX\tPATH\tNAME")
	fmt.Fprintln(w, "-----\t----\t----")

	for _, d := range devices {
		index := "-"
		if n := d.Index(); n >= 0 {
			index = fmt.Sprint(n)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", index, d.Path, d.Name)
	}

	return nil
}
