package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"premiumdesk/cmd/flowscan"
	"premiumdesk/cmd/screen"
	"premiumdesk/cmd/watch"
	"premiumdesk/src/database"
)

var Version string

func SetupLogger() {
	level, err := logrus.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()

	app := cli.NewApp()
	app.Name = "premiumdesk"
	app.Usage = "Options income desk command line interface"
	app.Version = Version

	app.Commands = []cli.Command{
		monitorCMD,
		flowCMD,
		screenCMD,
		migrateCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	monitorCMD = cli.Command{
		Name:      "monitor",
		Usage:     "run the open position monitor",
		Action:    monitorAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "once", Usage: "run a single pass and exit"},
			cli.StringFlag{Name: "metrics-addr", Usage: "serve /metrics on this address, e.g. :9100"},
		},
		Description: `Values OPEN positions against live marks, expires lapsed positions and logs close signals`,
	}
	flowCMD = cli.Command{
		Name:      "flow",
		Usage:     "run the options flow service",
		Action:    flowAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "once", Usage: "run a single pass and exit"},
		},
		Description: `Refreshes flow analyses, raises unusual premium alerts and retires stale opportunities`,
	}
	screenCMD = cli.Command{
		Name:        "screen",
		Usage:       "screen underlyings for premium selling",
		Action:      screenAction,
		ArgsUsage:   "[SYMBOL...]",
		Flags:       []cli.Flag{},
		Description: `Fetches each underlying and checks it against the screening thresholds. Symbols default to SCREEN_SYMBOLS`,
	}
	migrateCMD = cli.Command{
		Name:        "migrate",
		Usage:       "run schema and data migrations",
		Action:      migrateAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Runs AutoMigrate and pending data migrations on the main database`,
	}
)

func monitorAction(c *cli.Context) error {
	logrus.Info("Starting monitor CMD")

	w := &watch.Watcher{
		Once:        c.Bool("once"),
		MetricsAddr: c.String("metrics-addr"),
	}
	if err := w.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func flowAction(c *cli.Context) error {
	logrus.Info("Starting flow CMD")

	f := &flowscan.FlowScan{Once: c.Bool("once")}
	if err := f.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func screenAction(c *cli.Context) error {
	logrus.Info("Starting screen CMD")

	s := &screen.Screener{Log: logrus.WithField("cmd", "screen")}
	if err := s.Start(c.Args()); err != nil {
		logrus.WithError(err).Error("Screening failed")
		return err
	}

	return nil
}

// migrateAction runs the same migration path as server startup.
func migrateAction(_ *cli.Context) error {
	logrus.Info("Starting migrate CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Migration failed")
		return err
	}

	return nil
}
