// Command beaconscan scans for BLE advertisements and prints them decoded,
// with iBeacon frames shown as structured records and everything else as a
// labeled hex/ASCII dump.
package main

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/net/context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/hirosichen/beacon"
	"github.com/hirosichen/beacon/bluez"
	"github.com/hirosichen/beacon/scan"
	"github.com/hirosichen/beacon/synth"
)

var commonFlags = []cli.Flag{
	cli.DurationFlag{Name: "duration, d", Value: 30 * time.Second, Usage: "scan duration"},
	cli.StringFlag{Name: "name, n", Usage: "accept only this exact device name"},
	cli.StringFlag{Name: "prefix, p", Usage: "accept only device names with this prefix"},
	cli.StringFlag{Name: "out, o", Usage: "write the transcript to this file when done"},
}

func main() {
	app := cli.NewApp()

	app.Name = "beaconscan"
	app.Usage = "Scan and decode BLE advertisements, including iBeacons"
	app.Version = "0.1.0"
	app.Action = cli.ShowAppHelp

	app.Commands = []cli.Command{
		{
			Name:    "scan",
			Aliases: []string{"s"},
			Usage:   "Scan the surroundings with the specified filter",
			Action:  doScan,
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "adapter, a", Value: "hci0", Usage: "BlueZ adapter"},
				cli.BoolFlag{Name: "dup", Usage: "deliver duplicate advertisements"},
			}, commonFlags...),
		},
		{
			Name:    "demo",
			Usage:   "Replay canned advertisements through the decoder (no radio needed)",
			Action:  doDemo,
			Flags:   commonFlags,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func doScan(c *cli.Context) error {
	dev, err := bluez.NewDevice(c.String("adapter"))
	if err != nil {
		// No scan facility: report once, don't offer a scan.
		logrus.WithError(err).Error("scan facility unavailable")
		return nil
	}
	defer dev.Close()
	return run(c, dev)
}

func doDemo(c *cli.Context) error {
	dev := synth.NewDevice(synth.DemoScript()...)
	defer dev.Close()
	return run(c, dev)
}

func run(c *cli.Context, dev beacon.Device) error {
	filter, err := buildFilter(c)
	if err != nil {
		return err
	}

	reporter := scan.NewReporter(os.Stdout)
	m := scan.NewManager(dev)

	fmt.Printf("Scanning for %s...\n", c.Duration("duration"))
	ctx := beacon.WithSigHandler(context.WithTimeout(context.Background(), c.Duration("duration")))
	s, err := m.Start(ctx, scan.Options{
		Filter:   filter,
		Handler:  reporter.Handle,
		AllowDup: c.Bool("dup"),
		Timeout:  c.Duration("duration"),
		OnStop:   reporter.Stopped,
	})
	if err != nil {
		// Scan-start rejection: one line, session state stays "not scanning".
		logrus.WithError(err).Error("can't start scan")
		return nil
	}
	<-s.Done()

	export(c.String("out"), reporter)
	return nil
}

func buildFilter(c *cli.Context) (beacon.AdvFilter, error) {
	name, prefix := c.String("name"), c.String("prefix")
	if name != "" && prefix != "" {
		return nil, errors.New("specify at most one of --name and --prefix")
	}
	switch {
	case name != "":
		return beacon.FilterName(name), nil
	case prefix != "":
		return beacon.FilterNamePrefix(prefix), nil
	}
	return nil, nil
}

// export writes the transcript to path. A failure is reported once and does
// not affect anything else.
func export(path string, r *scan.Reporter) {
	if path == "" {
		return
	}
	if err := os.WriteFile(path, []byte(r.Transcript()+"\n"), 0644); err != nil {
		logrus.WithError(err).Error("can't export transcript")
	}
}
