package commands

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/bryanchriswhite/grab/internal/api"
	"github.com/bryanchriswhite/grab/internal/capture"
	"github.com/bryanchriswhite/grab/internal/config"
	"github.com/bryanchriswhite/grab/internal/display"
	"github.com/bryanchriswhite/grab/internal/logger"
	"github.com/bryanchriswhite/grab/internal/loop"
	"github.com/bryanchriswhite/grab/internal/overlay"
	"github.com/bryanchriswhite/grab/internal/record"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "grab [device]",
		Short: "grab - preview, snapshot and record a camera",
		Long: `grab shows frames from a camera, a movie clip or a still image in a
preview window and lets you mirror, resize, snapshot and record them.

Keys:
  h          toggle horizontal flip
  v          toggle vertical flip
  + / -      grow / shrink the frame
  0 / n      back to normal size
  Space      save a snapshot (<timestamp>.bmp)
  Return     start or stop recording (<timestamp>.avi)
  Esc        quit

Click a pixel in the preview to print its BGR, HSV and gray values.`,
		Example: `  # Preview the first camera
  grab

  # Preview /dev/video2
  grab 2

  # Debug logging with readable output
  grab --log-level debug --pretty

  # Accept commands on http://127.0.0.1:8088/api
  grab --control-port 8088`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runGrab,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/grab/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", false, "human-readable log output")
	rootCmd.Flags().Int("control-port", 0, "enable the local control API on this port")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("pretty", rootCmd.PersistentFlags().Lookup("pretty"))
	viper.BindPFlag("control_port", rootCmd.Flags().Lookup("control-port"))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig reads the config file and applies command-line overrides
func loadConfig(args []string) (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config manager: %w", err)
	}

	if len(args) == 1 {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid device index %q", args[0])
		}
		if err := configMgr.SetDevice(index); err != nil {
			return nil, err
		}
	}

	if level := viper.GetString("log_level"); level != "" {
		configMgr.SetLogLevel(level)
	}
	if port := viper.GetInt("control_port"); port > 0 {
		configMgr.EnableControl(port)
	}
	return configMgr, nil
}

func runGrab(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig(args)
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	logger.Init(cfg.LogLevel, viper.GetBool("pretty"))
	configMgr.Watch(func(c *config.Config) {
		if level := viper.GetString("log_level"); level == "" {
			logger.SetLevel(c.LogLevel)
		}
	})
	logger.WithComponent("main").Debug().
		Str("config", configMgr.GetConfigPath()).
		Str("source", string(cfg.Source.Kind)).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := openSource(cfg)
	if err != nil {
		fmt.Println("Could not access the camera.")
		return err
	}
	session := capture.NewSession(source, capture.NewPostProcessor(cfg.Media))
	defer session.Close()

	indicator := overlay.NewIndicatorWidget("recording",
		cfg.Preview.IndicatorX, cfg.Preview.IndicatorY, cfg.Preview.IndicatorRadius,
		color.RGBA{R: 255, A: 255})
	overlays := overlay.NewManager()
	if err := overlays.AddWidget(indicator); err != nil {
		return err
	}

	recorder := record.NewController(
		record.VideoSinkOpener(cfg.Recording.Codec),
		record.NewNamer(cfg.Recording.OutputDir),
		cfg.Recording,
		indicator,
	)
	defer recorder.Close()

	size := initialSize(source, cfg.Media)
	win, err := display.Open(cfg.Preview.Title, size.X, size.Y)
	if err != nil {
		return fmt.Errorf("failed to open preview window: %w", err)
	}
	defer win.Close()

	l := loop.New(session, recorder, overlays, win, cfg, os.Stdout)
	win.OnClick(l.Probe)

	if cfg.Control.Enabled {
		server := api.NewServer(l, configMgr)
		l.OnMessage(server.Publish)
		go func() {
			if err := server.Start(ctx, cfg.Control.Address, cfg.Control.Port); err != nil {
				logger.WithComponent("main").Error().Err(err).Msg("Control API stopped")
			}
		}()
	}

	return l.Run(ctx)
}

// openSource builds the configured media source. Only a camera that cannot
// be opened at all is an error.
func openSource(cfg *config.Config) (*capture.Source, error) {
	switch cfg.Source.Kind {
	case config.SourceStill:
		return capture.NewStillSource(cfg.Source.Path), nil
	case config.SourceClip:
		return capture.OpenClipSource(cfg.Source.Path, cfg.Media), nil
	default:
		return capture.OpenDeviceSource(cfg.Source.Device, cfg.Media)
	}
}

// initialSize picks the preview window size before the first frame arrives
func initialSize(source *capture.Source, media config.MediaConfig) image.Point {
	if p := source.Placeholder(); !capture.IsEmpty(p) {
		return p.Bounds().Size()
	}
	return image.Pt(media.DefaultWidth, media.DefaultHeight)
}
