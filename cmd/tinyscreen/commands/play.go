package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/TinyScreen/internal/api"
	"github.com/bryanchriswhite/TinyScreen/internal/config"
	"github.com/bryanchriswhite/TinyScreen/internal/device"
	"github.com/bryanchriswhite/TinyScreen/internal/device/all"
	"github.com/bryanchriswhite/TinyScreen/internal/frame"
	"github.com/bryanchriswhite/TinyScreen/internal/logger"
	"github.com/bryanchriswhite/TinyScreen/internal/osd"
	"github.com/bryanchriswhite/TinyScreen/internal/pipeline"
	"github.com/bryanchriswhite/TinyScreen/internal/source"
)

var playCmd = &cobra.Command{
	Use:   "play [SOURCE]",
	Short: "Play a video, image or test pattern on a display",
	Long: `Play frames from SOURCE on a small display.

SOURCE is kind:argument, one of:
  ffmpeg:FILE     anything ffmpeg can decode (the default kind)
  image:GLOB      still images (png, jpeg, gif, webp, bmp)
  bars            colour bars
  testcard        test card with a frame counter (the default source)
  x11grab:DISPLAY X11 screen capture

Rendering flags start from the active config profile, then the --vo
sub-option string, then individual flags.` + config.HelpText,
	Example: `  # Test card on an emulated 128x64 OLED in a window
  tinyscreen play --name window --options "width=128;height=64;selfemitting"

  # A movie on a real SSD1306 on I2C bus 1, fit to width
  tinyscreen play --vo name=ssd1306:device=i2c?1:viewmode=1 movie.mp4

  # Halftone in the terminal, looping
  tinyscreen play --name term --dither 2 --loop ffmpeg:clip.webm

  # Stream the emulated panel to a browser with the status API on
  tinyscreen play --name mjpeg --api bars`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	addRenderFlags(playCmd.Flags())
	playCmd.Flags().Int("fps", 0, "frames per second (default from config, 0 in config means unpaced)")
	playCmd.Flags().Bool("loop", false, "restart finite sources at the end")
	playCmd.Flags().String("size", "", "source output size WxH (scaled by ffmpeg or generated)")
	playCmd.Flags().String("display-size", "", "presentation size WxH the source is meant for (default is the source size)")
	playCmd.Flags().Int("slice", 0, "draw in bands of this many source rows (0 draws whole frames)")
	playCmd.Flags().String("status", "", "status line shown on the display")
	playCmd.Flags().Bool("progress", false, "show playback progress for finite sources")
	playCmd.Flags().Bool("api", false, "start the status and control API")

	viper.BindPFlag("source_fps", playCmd.Flags().Lookup("fps"))
}

func runPlay(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("pipeline")

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	flags, err := resolveFlags(cmd.Flags(), configMgr)
	if errors.Is(err, errHelpShown) {
		return nil
	}
	if err != nil {
		return err
	}
	if flags.Name == "" {
		return fmt.Errorf("%w: no display name (use --name or --vo name=...)", config.ErrInvalidFlag)
	}

	fps := cfg.Source.FPS
	if cmd.Flags().Changed("fps") {
		fps = viper.GetInt("source_fps")
	}
	loop, _ := cmd.Flags().GetBool("loop")
	loop = loop || cfg.Source.Loop

	srcOpts := source.Options{Loop: loop}
	if s, _ := cmd.Flags().GetString("size"); s != "" {
		if srcOpts.Width, srcOpts.Height, err = parseSize(s); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	spec := "testcard"
	if len(args) == 1 {
		spec = args[0]
	}
	src, err := source.Open(ctx, spec, srcOpts)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	dev, err := all.Registry().Open(flags.Name, flags.Device, flags.Options)
	if err != nil {
		return err
	}

	osdMgr := osd.NewDefaultManager()
	if len(cfg.OSD.Widgets) > 0 {
		if err := osdMgr.LoadFromConfig(cfg.OSD.Widgets); err != nil {
			log.Warn().Err(err).Msg("Failed to load OSD widgets from config")
		}
	}
	osdMgr.SetEnabled(cfg.OSD.Enabled)
	if status, _ := cmd.Flags().GetString("status"); status != "" {
		osdMgr.SetStatus(status)
	}

	session, err := pipeline.Open(dev, flags,
		pipeline.WithScaler(flags.Scaler, flags.Interp),
		pipeline.WithOSD(osdMgr),
	)
	if err != nil {
		dev.Close()
		return err
	}
	defer session.Close()

	srcW, srcH := src.Size()
	req := pipeline.ConfigureRequest{SrcW: srcW, SrcH: srcH, DispW: srcW, DispH: srcH, Format: src.Format()}
	if s, _ := cmd.Flags().GetString("display-size"); s != "" {
		if req.DispW, req.DispH, err = parseSize(s); err != nil {
			return err
		}
	}
	if err := session.Configure(ctx, req); err != nil {
		return err
	}

	apiEnabled, _ := cmd.Flags().GetBool("api")
	if apiEnabled || cfg.Server.Enabled {
		port := cfg.Server.Port
		if viper.IsSet("server_port") && viper.GetInt("server_port") > 0 {
			port = viper.GetInt("server_port")
		}
		server := api.NewServer(configMgr, session, osdMgr)
		go func() {
			if err := server.Start(ctx, fmt.Sprintf(":%d", port)); err != nil {
				log.Error().Err(err).Msg("API server error")
			}
		}()
	}

	slice, _ := cmd.Flags().GetInt("slice")
	showProgress, _ := cmd.Flags().GetBool("progress")
	total := 0
	if sized, ok := src.(interface{ Len() int }); ok && !loop {
		total = sized.Len()
	}

	work := func(ctx context.Context) error {
		n, err := source.Play(ctx, src, fps, func(ctx context.Context, f frame.Frame) error {
			if err := drawFrame(ctx, session, f, slice); err != nil {
				return err
			}
			if showProgress && total > 0 {
				st := session.Stats()
				osdMgr.SetProgress(playedFraction(int(st.Frames+st.Slices), total, slice, srcH))
			}
			if err := session.DrawOSD(); err != nil {
				return err
			}
			return session.Flush()
		})
		log.Info().Int("frames", n).Msg("Playback finished")
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	if looper, ok := dev.(device.Looper); ok {
		return looper.Loop(ctx, work)
	}
	return work(ctx)
}

// drawFrame draws f whole, or in bands of slice rows.
func drawFrame(ctx context.Context, s *pipeline.Session, f frame.Frame, slice int) error {
	if slice <= 0 || slice >= f.Height {
		return s.DrawFrame(ctx, f)
	}
	for y := 0; y < f.Height; y += slice {
		h := min(slice, f.Height-y)
		if err := s.DrawSlice(ctx, f, 0, y, f.Width, h); err != nil {
			return err
		}
	}
	return nil
}

// playedFraction maps the number of draw calls made so far to 0..255.
func playedFraction(draws, total, slice, height int) int {
	perFrame := 1
	if slice > 0 && slice < height {
		perFrame = (height + slice - 1) / slice
	}
	return min(255, draws/perFrame*255/total)
}

// parseSize reads "WxH".
func parseSize(s string) (int, int, error) {
	ws, hs, found := strings.Cut(strings.ToLower(s), "x")
	if !found {
		return 0, 0, fmt.Errorf("invalid size %q (use WxH)", s)
	}
	w, err1 := strconv.Atoi(ws)
	h, err2 := strconv.Atoi(hs)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q (use WxH)", s)
	}
	return w, h, nil
}
