package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
	"github.com/bryanchriswhite/TinyScreen/internal/frame"
	"github.com/bryanchriswhite/TinyScreen/internal/geometry"
	"github.com/bryanchriswhite/TinyScreen/internal/pipeline"
)

var geometryCmd = &cobra.Command{
	Use:   "geometry",
	Short: "Show where a source would land on a display",
	Long: `Compute the viewport for a source on a display without any hardware.

The display is the in-memory panel described by --options (WIDTH, HEIGHT,
COLOURS, DEPTH, ASPECT, SELFEMITTING, CLIPAREA); the rendering flags pick the
view mode and algorithm as they would for play.`,
	Example: `  # 720x480 anamorphic DVD shown at 4:3 on a 128x64 OLED
  tinyscreen geometry --src 720x480 --display-size 320x240

  # Same, fit to width, on a panel with tall pixels
  tinyscreen geometry --src 720x480 --display-size 320x240 --viewmode 1 --options "aspect=150"`,
	RunE: runGeometry,
}

var geometryFormat string

func init() {
	rootCmd.AddCommand(geometryCmd)

	addRenderFlags(geometryCmd.Flags())
	geometryCmd.Flags().String("src", "720x480", "decoded source size WxH")
	geometryCmd.Flags().String("display-size", "", "presentation size WxH (default is the source size)")
	geometryCmd.Flags().String("format", "rgb24", "source pixel format")
	geometryCmd.Flags().StringVarP(&geometryFormat, "output", "o", "table", "output format (table or json)")
}

func runGeometry(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	flags, err := resolveFlags(cmd.Flags(), configMgr)
	if errors.Is(err, errHelpShown) {
		return nil
	}
	if err != nil {
		return err
	}

	var req pipeline.ConfigureRequest
	s, _ := cmd.Flags().GetString("src")
	if req.SrcW, req.SrcH, err = parseSize(s); err != nil {
		return err
	}
	req.DispW, req.DispH = req.SrcW, req.SrcH
	if s, _ := cmd.Flags().GetString("display-size"); s != "" {
		if req.DispW, req.DispH, err = parseSize(s); err != nil {
			return err
		}
	}
	f, _ := cmd.Flags().GetString("format")
	if req.Format, err = frame.ParseFormat(f); err != nil {
		return err
	}

	opts, err := device.ParseOptions(flags.Options)
	if err != nil {
		return err
	}
	panel, err := device.ParseMemoryConfig(opts, device.DefaultMemoryConfig)
	if err != nil {
		return err
	}
	mem, err := device.NewMemory(panel)
	if err != nil {
		return err
	}

	flags.Name = device.MemoryDriver.Name
	session, err := pipeline.Open(mem.Device(panel.ClipArea), flags, pipeline.WithScaler(flags.Scaler, flags.Interp))
	if err != nil {
		return err
	}
	defer session.Close()
	if err := session.Configure(context.Background(), req); err != nil {
		return err
	}

	st := session.Stats()
	switch geometryFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(st)
	case "table":
		vp := st.Viewport
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "SOURCE\t%dx%d %s\n", req.SrcW, req.SrcH, req.Format)
		fmt.Fprintf(w, "DISPLAY SIZE\t%dx%d\n", req.DispW, req.DispH)
		fmt.Fprintf(w, "CANVAS\t%dx%d (pixel aspect %d)\n", st.Profile.Width, st.Profile.Height, st.Profile.PixelAspect)
		fmt.Fprintf(w, "VIEW MODE\t%s\n", geometry.FitMode(flags.ViewMode))
		fmt.Fprintf(w, "FACTOR\t%.4f\n", vp.Factor)
		fmt.Fprintf(w, "VIEWPORT\t%dx%d+%d+%d\n", vp.W, vp.H, vp.X, vp.Y)
		fmt.Fprintf(w, "FAST BLIT\t%t\n", vp.FastBlit)
		fmt.Fprintf(w, "ALGORITHM\t%s\n", st.Algorithm)
		return w.Flush()
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", geometryFormat)
	}
}
