package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/callo451/deskwise-remote/internal/adapters/api"
	"github.com/callo451/deskwise-remote/internal/adapters/platform"
	"github.com/callo451/deskwise-remote/internal/adapters/rtc"
	"github.com/callo451/deskwise-remote/internal/adapters/toast"
	"github.com/callo451/deskwise-remote/internal/adapters/view"
	"github.com/callo451/deskwise-remote/internal/app"
	"github.com/callo451/deskwise-remote/internal/config"
	"github.com/callo451/deskwise-remote/internal/core"
	"github.com/callo451/deskwise-remote/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		configPath string
		asset      string
		recordPath string
	)
	pflag.StringVar(&configPath, "config", "", "path to config file")
	pflag.StringVar(&asset, "asset", "", "asset id to control")
	pflag.StringVar(&recordPath, "record", "", "record inbound video to this IVF file")
	pflag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if asset == "" {
		log.Fatal().Msg("--asset is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	client := api.NewClient(cfg.ServerURL)
	viewport := view.New()
	if recordPath != "" {
		rec, err := view.NewRecorder(recordPath)
		if err != nil {
			log.Fatal().Err(err).Msg("recording setup failed")
		}
		defer rec.Close()
		viewport.SetRecorder(rec)
	}
	toasts := toast.NewCenter(5 * time.Second)

	ctrl := app.NewSessionController(
		client,
		func(sess domain.RemoteSession) (core.MediaLink, error) { return rtc.NewOperatorConnection(sess) },
		client.Signalling,
		func(t core.SignalTransport, onSignal func(domain.SignalMessage), onFatal func(error)) app.SignalPump {
			return api.NewPoller(t, cfg.PollInterval, cfg.PollFailureThreshold, onSignal, onFatal)
		},
		viewport.Attach,
	)
	ctrl.OnConnState(func(st core.ConnState) {
		viewport.SetConnState(st)
		log.Info().Str("conn_state", string(st)).Msg("connection state")
	})

	if err := ctrl.Open(ctx, domain.AssetID(asset)); err != nil {
		log.Fatal().Err(err).Msg("could not start session")
	}
	defer ctrl.Close()

	if oc, ok := ctrl.Link().(*rtc.OperatorConnection); ok {
		oc.OnInputOpen(func() { toasts.Info("remote control ready") })
		sampler := rtc.NewSampler(oc, cfg.StatsInterval, viewport.FrameRate, func(m core.QualityMetrics) {
			log.Debug().
				Float64("fps", m.FramesPerSecond).
				Float64("rtt_ms", m.RTTMillis).
				Float64("kbps", m.BitrateKbps).
				Msg("quality sample")
		})
		go sampler.Run(ctx)
	}

	surface := app.NewControlSurface(
		ctrl.Link, viewport,
		platform.NopFullscreen{}, platform.ExecClipboard{},
		toasts, cfg.ScreenshotDir,
	)
	forward := rtc.NewForwarder(ctrl.Link, domain.RefWidth, domain.RefHeight)

	go repl(ctx, cancel, ctrl, surface, forward)

	<-ctx.Done()
}

// repl is the stand-in operator UI: one command per line.
func repl(ctx context.Context, quit context.CancelFunc,
	ctrl *app.SessionController, surface *app.ControlSurface, forward *rtc.Forwarder) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("commands: screenshot | monitor <n|all> | fullscreen | clipboard | move <x> <y> | click <button> | key <k> | retry | quit")

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "screenshot":
			if path, err := surface.Screenshot(); err == nil {
				fmt.Println("saved", path)
			}
		case "monitor":
			if len(fields) < 2 {
				fmt.Println("usage: monitor <n|all>")
				continue
			}
			index := domain.AllMonitors
			if fields[1] != "all" {
				n, err := strconv.Atoi(fields[1])
				if err != nil {
					fmt.Println("usage: monitor <n|all>")
					continue
				}
				index = n
			}
			_ = surface.SelectMonitor(index)
		case "fullscreen":
			_ = surface.ToggleFullscreen()
		case "clipboard":
			_ = surface.SyncClipboard(ctx)
		case "move":
			if len(fields) == 3 {
				x, _ := strconv.Atoi(fields[1])
				y, _ := strconv.Atoi(fields[2])
				_ = forward.MouseMove(x, y)
			}
		case "click":
			button := 0
			if len(fields) == 2 {
				button, _ = strconv.Atoi(fields[1])
			}
			_ = forward.MouseButton(0, 0, button, true)
			_ = forward.MouseButton(0, 0, button, false)
		case "key":
			if len(fields) == 2 {
				_ = forward.Key(fields[1], true)
				_ = forward.Key(fields[1], false)
			}
		case "retry":
			if err := ctrl.Retry(ctx); err != nil {
				fmt.Println("retry failed:", err)
			}
		case "quit":
			quit()
			return
		default:
			fmt.Println("unknown command")
		}
	}
}
