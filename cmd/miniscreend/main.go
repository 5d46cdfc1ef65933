package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pi-top/miniscreen/internal/srv"
	"github.com/pi-top/miniscreen/internal/srv/config"
	"github.com/pi-top/miniscreen/internal/version"
	"github.com/sirupsen/logrus"
)

const configSuffix = "miniscreend"

type command struct {
	name    string
	summary string
	flags   *flag.FlagSet
	run     func(configDir string, debugMode bool)
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true})

	mainCommand := filepath.Base(os.Args[0])

	debugMode := flag.Bool("d", false, "Enable debug mode")
	configDir := flag.String("c", defaultConfigDir(), "Location of miniscreend config folder")

	commands := []*command{
		{name: "run", summary: "Run the daemon", run: runDaemon},
		{name: "version", summary: "Show the version number", run: func(string, bool) {
			fmt.Printf("Version %s\n", version.AppVersion.String())
		}},
	}
	for _, cmd := range commands {
		cmd := cmd
		cmd.flags = flag.NewFlagSet(cmd.name, flag.ExitOnError)
		cmd.flags.Usage = func() {
			fmt.Printf("\nUsage: %s %s\n", mainCommand, cmd.name)
			fmt.Printf("\n%s\n", cmd.summary)
		}
	}

	flag.Usage = func() {
		fmt.Printf("\nUsage: %s [OPTIONS] [COMMAND]\n", mainCommand)
		fmt.Printf("\nA control daemon for the pi-top miniscreen\n")
		fmt.Printf("\nOptions:\n")
		flag.PrintDefaults()
		fmt.Printf("\nCommands:\n")
		for _, cmd := range commands {
			fmt.Printf("  %-9s %s\n", cmd.name, cmd.summary)
		}
		fmt.Printf("\nRun '%s COMMAND --help' for more information on a command.\n", mainCommand)
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	for _, cmd := range commands {
		if cmd.name != flag.Arg(0) {
			continue
		}
		cmd.flags.Parse(flag.Args()[1:])
		if cmd.flags.NArg() > 0 {
			fmt.Printf("\n\"%s %s\" accepts no arguments\n", mainCommand, cmd.name)
			cmd.flags.Usage()
			os.Exit(1)
		}
		if *debugMode {
			logrus.SetLevel(logrus.DebugLevel)
			logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true, TimestampFormat: time.RFC3339Nano})
			logrus.Printf("Debug mode activated")
		}
		cmd.run(*configDir, *debugMode)
		return
	}

	fmt.Printf("\n%s is not a miniscreend command\n", flag.Arg(0))
	flag.Usage()
	os.Exit(1)
}

func defaultConfigDir() string {
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(userConfigDir, configSuffix)
	}
	return "./." + configSuffix
}

func runDaemon(configDir string, debugMode bool) {
	serverConfig, err := config.NewServerConfig(configDir, debugMode)
	if err != nil {
		logrus.Fatalf("Unable to load configuration: %v", err)
	}

	// Registered before Start, which may wait a long time for the miniscreen
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	serverApp := srv.NewServerApp(serverConfig, serverConfig.MiniscreenOpts())
	if err := serverApp.Start(); err != nil {
		logrus.Fatalf("Unable to start miniscreend: %v", err)
	}

	sig := <-ch
	logrus.Infof("Received signal: %v", sig)
	serverApp.Stop()
}
