// Command etpu-soc composes and runs the SoC simulation.
//
// It builds the SoC from a config file, writes the software view of the
// address map, serves the bus over a TCP bridge and optionally announces
// the bridge via mDNS.
//
// Usage:
//
//	etpu-soc [flags]
//
// Flags:
//
//	-config string        SoC config file (YAML)
//	-sys-clk-freq float   Override the sys clock in Hz
//	-with-led-chaser      Include the LED chaser
//	-with-gpio            Include the GPIO block
//	-with-accel           Attach the accelerator
//	-gen-dir string       Write mem.h, regions.ld, csr.csv and regions_gen.go here
//	-listen string        Bridge listen address (default ":1234", empty disables)
//	-advertise            Announce the bridge via mDNS
//	-interface string     Network interface for mDNS
//	-trace string         Trace file (CBOR)
//	-interactive          Start the command console
//	-log-level string     debug, info, warn, error (default "info")
//
// Examples:
//
//	# Default ULX3S build with the console
//	etpu-soc -interactive
//
//	# Generate headers only
//	etpu-soc -config soc.yaml -gen-dir build/software -listen ""
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/etpu-project/etpu-go/cmd/etpu-soc/console"
	"github.com/etpu-project/etpu-go/pkg/bridge"
	"github.com/etpu-project/etpu-go/pkg/discovery"
	"github.com/etpu-project/etpu-go/pkg/gen"
	"github.com/etpu-project/etpu-go/pkg/log"
	"github.com/etpu-project/etpu-go/pkg/soc"
)

var (
	configFile    = flag.String("config", "", "SoC config file (YAML)")
	sysClkFreq    = flag.Float64("sys-clk-freq", 0, "Override the sys clock in Hz")
	withLEDChaser = flag.Bool("with-led-chaser", true, "Include the LED chaser")
	withGPIO      = flag.Bool("with-gpio", true, "Include the GPIO block")
	withAccel     = flag.Bool("with-accel", true, "Attach the accelerator")
	genDir        = flag.String("gen-dir", "", "Write the generated software view to this directory")
	listen        = flag.String("listen", fmt.Sprintf(":%d", discovery.DefaultPort), "Bridge listen address (empty disables)")
	advertise     = flag.Bool("advertise", false, "Announce the bridge via mDNS")
	iface         = flag.String("interface", "", "Network interface for mDNS")
	traceFile     = flag.String("trace", "", "Trace file (CBOR)")
	interactive   = flag.Bool("interactive", false, "Start the command console")
	logLevel      = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	if err := run(logger); err != nil {
		logger.Error("etpu-soc failed", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// loadConfig reads the config file and applies the flags set on the command
// line.
func loadConfig() (soc.Config, error) {
	cfg := soc.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = soc.LoadConfig(*configFile); err != nil {
			return cfg, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sys-clk-freq":
			cfg.SysClkFreq = *sysClkFreq
		case "with-led-chaser":
			cfg.WithLEDChaser = *withLEDChaser
		case "with-gpio":
			cfg.WithGPIO = *withGPIO
		case "with-accel":
			cfg.WithAccel = *withAccel
		}
	})
	return cfg, cfg.Validate()
}

func run(logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	var loggers []log.Logger
	if *traceFile != "" {
		fl, err := log.NewFileLogger(*traceFile)
		if err != nil {
			return fmt.Errorf("trace: %w", err)
		}
		defer fl.Close()
		loggers = append(loggers, fl)
		logger.Info("tracing", "file", *traceFile)
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}
	trace := log.NewMultiLogger(loggers...)

	session := uuid.NewString()
	s, err := soc.Build(cfg, soc.WithTrace(trace), soc.WithSessionID(session))
	if err != nil {
		return err
	}
	pll := s.PLLConfig()
	logger.Info("soc composed",
		"ident", s.Ident(),
		"build", s.BuildID(),
		"session", session,
		"sys_clk_hz", s.Domain().Freq,
		"pll", pll.String(),
		"regions", s.Regions().Len())

	if *genDir != "" {
		files, err := gen.WriteAll(*genDir, s.Regions())
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		for _, f := range files {
			logger.Info("generated", "file", f)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *listen != "" {
		info := bridge.Describe(s)
		srv, err := bridge.NewServer(bridge.ServerConfig{
			Address: *listen,
			Target:  s.Master(),
			Info:    info,
			Logger:  trace,
			OnError: func(err error) { logger.Warn("bridge", "error", err) },
		})
		if err != nil {
			return err
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("bridge: %w", err)
		}
		defer srv.Stop()
		logger.Info("bridge listening", "addr", srv.Addr())

		if *advertise {
			port := uint16(discovery.DefaultPort)
			if tcp, ok := srv.Addr().(*net.TCPAddr); ok {
				port = uint16(tcp.Port)
			}
			adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{Interface: *iface})
			if err := adv.Advertise(discovery.FromInfo(info, port)); err != nil {
				logger.Warn("mdns advertise failed", "error", err)
			} else {
				defer adv.Stop()
				logger.Info("advertising", "service", discovery.ServiceType, "port", port)
			}
		}
	}

	if *interactive {
		return console.New(s, os.Stdout).Run(ctx, cancel)
	}
	if *listen == "" {
		return nil
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig)
	return nil
}
