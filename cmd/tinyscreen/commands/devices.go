package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/TinyScreen/internal/device/all"
	"github.com/bryanchriswhite/TinyScreen/internal/source"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List display drivers and frame sources",
	Example: `  # Table (default)
  tinyscreen devices

  # JSON
  tinyscreen devices --format json`,
	RunE: runDevices,
}

var devicesFormat string

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.Flags().StringVarP(&devicesFormat, "format", "f", "table", "output format (table or json)")
}

type driverInfo struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	DefaultConnection string `json:"default_connection"`
}

func runDevices(cmd *cobra.Command, args []string) error {
	drivers := all.Registry().Drivers()
	infos := make([]driverInfo, 0, len(drivers))
	for _, d := range drivers {
		infos = append(infos, driverInfo{Name: d.Name, Description: d.Description, DefaultConnection: d.DefaultConnection})
	}

	switch devicesFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]interface{}{
			"displays": infos,
			"sources":  source.Kinds,
		})
	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DISPLAY\tDEFAULT CONNECTION\tDESCRIPTION")
		for _, d := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, d.DefaultConnection, d.Description)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "SOURCE\tDESCRIPTION")
		for _, kind := range []string{"ffmpeg", "image", "bars", "testcard", "x11grab"} {
			fmt.Fprintf(w, "%s\t%s\n", kind, source.Kinds[kind])
		}
		return w.Flush()
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", devicesFormat)
	}
}
