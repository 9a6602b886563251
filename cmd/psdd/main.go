// Command psdd is the host-side daemon for the precision sample dispenser.
//
// It loads the command and profile tables, opens the serial link to the
// dispenser, and exposes the controller operations on a minimal stdin
// console, standing in for a GUI front-end. Startup failures are fatal and
// reported before any console I/O, matching the error taxonomy of the
// original program.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/biometra/go-psd/command"
	"github.com/biometra/go-psd/dispenser"
	"github.com/biometra/go-psd/eventlog"
	"github.com/biometra/go-psd/link"
	"github.com/biometra/go-psd/logger"
)

// envConfig is the environment-sourced configuration, loaded after an
// optional .env file.
type envConfig struct {
	CommandsPath string `env:"PSD_COMMANDS" envDefault:"psdCommands"`
	ProfilesPath string `env:"PSD_PROFILES" envDefault:"psdProfiles"`
	Port         string `env:"PSD_PORT"` // overrides the command table's port path
	LogLevel     string `env:"PSD_LOG_LEVEL" envDefault:"info"`
}

func main() {
	logfile := flag.String("logfile", "psd.log", "path of the append-only event log")
	debug := flag.Bool("debug", false, "development mode: no serial port is opened and events are discarded")
	flag.Parse()

	_ = godotenv.Load()

	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "psdd: parse environment:", err)
		os.Exit(1)
	}

	logger.SetLevel(parseLevel(cfg.LogLevel))
	l := logger.GetLogger()

	table, err := command.LoadTable(cfg.CommandsPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "psdd:", err)
		os.Exit(1)
	}

	profiles, err := command.LoadProfiles(cfg.ProfilesPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "psdd:", err)
		os.Exit(1)
	}

	var (
		transport link.Transport
		elog      *eventlog.Log
	)

	if *debug {
		transport = link.NewNoopTransport()
		elog = eventlog.Nop()
	} else {
		serialParams := table.Serial()

		port := serialParams.Port
		if cfg.Port != "" {
			port = cfg.Port
		}

		st, err := link.OpenSerial(port, serialParams.Baud, serialParams.ReadTimeout)
		if err != nil {
			fmt.Fprintln(os.Stderr, "psdd:", err)
			os.Exit(1)
		}
		transport = st

		elog, err = eventlog.Open(*logfile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "psdd:", err)
			os.Exit(1)
		}
		defer elog.Close()
	}

	linkCfg, err := link.NewConfig(link.WithLogger(l), link.WithEventSink(elog))
	if err != nil {
		fmt.Fprintln(os.Stderr, "psdd:", err)
		os.Exit(1)
	}

	driver, err := link.NewDriver(transport, linkCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "psdd:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl, err := dispenser.NewController(ctx, table, profiles, driver, elog, linkCfg.TickPeriod(), l)
	if err != nil {
		fmt.Fprintln(os.Stderr, "psdd:", err)
		os.Exit(1)
	}

	if err := ctrl.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "psdd:", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	l.Info("psdd: started", "debug", *debug, "logfile", *logfile)

	runConsole(ctx, ctrl)
}

func parseLevel(s string) logger.Level {
	switch strings.ToLower(s) {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}
