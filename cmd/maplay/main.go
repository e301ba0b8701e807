// ABOUTME: Entry point for the mabridge player
// ABOUTME: Loads configuration, applies CLI overrides and plays, renders or serves a source
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Resonate-Protocol/mabridge/internal/app"
	"github.com/Resonate-Protocol/mabridge/internal/config"
	"github.com/Resonate-Protocol/mabridge/internal/discovery"
	"github.com/Resonate-Protocol/mabridge/internal/version"
)

const discoveryTimeout = 10 * time.Second

var (
	configFile  = flag.String("config", "", "Config file (default: ./mabridge.yaml if present)")
	outputName  = flag.String("output", "", "Output backend: malgo, oto or wav")
	outFile     = flag.String("out", "", "WAV file path for -output wav")
	volume      = flag.Int("volume", -1, "Initial volume 0-100")
	loop        = flag.Bool("loop", false, "Loop the source")
	duration    = flag.Float64("duration", 0, "Stop after this many seconds")
	sampleRate  = flag.Int("rate", 0, "Output sample rate")
	channels    = flag.Int("channels", 0, "Output channel count")
	bitDepth    = flag.Int("bits", 0, "Output bit depth: 16, 24 or 32")
	waveform    = flag.String("waveform", "", "Test tone waveform when no source is given")
	frequency   = flag.Float64("freq", 0, "Test tone frequency in Hz")
	logLevel    = flag.String("log-level", "", "Log level: none, error, warn, info, debug")
	logFile     = flag.String("log-file", "", "Log file path")
	serveAddr   = flag.String("serve", "", "Serve the rendered stream over websocket on this address instead of playing")
	serveCodec  = flag.String("codec", "pcm", "Codec for -serve: pcm or opus")
	name        = flag.String("name", "", "mDNS service name for -serve (default: hostname-mabridge)")
	discover    = flag.Bool("discover", false, "Play the first stream server found via mDNS")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [file.wav|file.mp3|file.flac|file.ogg|ws://host/stream]\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so logs go to a file unless one was named
	useTUI := !*noTUI && *serveAddr == "" && cfg.Output != "wav"
	if useTUI && cfg.LogFile == "" {
		cfg.LogFile = "mabridge.log"
	}
	f, err := config.ConfigureLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if f != nil {
		defer f.Close()
	}

	logrus.Infof("Starting %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := flag.Arg(0)
	if *discover && source == "" {
		source, err = discoverSource(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	serviceName := *name
	if *serveAddr != "" && serviceName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serviceName = fmt.Sprintf("%s-mabridge", hostname)
	}

	player := app.New(app.Config{
		Source:    source,
		Settings:  cfg,
		UseTUI:    useTUI,
		Advertise: serviceName,
	})

	if *serveAddr != "" {
		err = player.Serve(ctx, *serveAddr, *serveCodec)
	} else {
		err = player.Run(ctx)
	}
	if err != nil {
		logrus.WithError(err).Error("Player failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logrus.Info("Player stopped")
}

// discoverSource browses mDNS for a stream server and returns its URL
func discoverSource(ctx context.Context) (string, error) {
	logrus.Info("Starting server discovery...")
	mgr := discovery.NewManager(discovery.Config{})
	defer mgr.Stop()

	ctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()
	server, err := mgr.Find(ctx)
	if err != nil {
		return "", err
	}
	logrus.Infof("Discovered %s at %s", server.Name, server.URL())
	return server.URL(), nil
}

// applyFlags overrides configuration with the flags that were set
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			cfg.Output = *outputName
		case "out":
			cfg.OutFile = *outFile
		case "volume":
			cfg.Volume = *volume
		case "loop":
			cfg.Loop = *loop
		case "duration":
			cfg.Duration = *duration
		case "rate":
			cfg.SampleRate = *sampleRate
		case "channels":
			cfg.Channels = *channels
		case "bits":
			cfg.BitDepth = *bitDepth
		case "waveform":
			cfg.Waveform = *waveform
		case "freq":
			cfg.Frequency = *frequency
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-file":
			cfg.LogFile = *logFile
		}
	})
}
