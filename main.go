package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/doitintl/capacity-scaler/internal/scaler"
	"github.com/doitintl/capacity-scaler/internal/scaler/azure"

	log "github.com/sirupsen/logrus"
)

var (
	// main context
	mainCtx context.Context
	// capacity scaler
	runner *scaler.Scaler
	// Version contains the current version.
	Version = "dev"
	// BuildDate contains a string with the build date.
	BuildDate = "unknown"
	// GitCommit git commit SHA
	GitCommit = "dirty"
	// GitBranch git branch
	GitBranch = "master"
)

func init() {
	// set log level
	log.SetLevel(log.WarnLevel)
	log.SetFormatter(&log.TextFormatter{})
}

func before(c *cli.Context) error {
	// set debug log level
	switch level := c.String("log-level"); level {
	case "debug", "DEBUG":
		log.SetLevel(log.DebugLevel)
	case "info", "INFO":
		log.SetLevel(log.InfoLevel)
	case "warning", "WARNING":
		log.SetLevel(log.WarnLevel)
	case "error", "ERROR":
		log.SetLevel(log.ErrorLevel)
	case "fatal", "FATAL":
		log.SetLevel(log.FatalLevel)
	case "panic", "PANIC":
		log.SetLevel(log.PanicLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
	// set log formatter to JSON
	if c.Bool("json") {
		log.SetFormatter(&log.JSONFormatter{})
	}
	// default credential chain: managed identity, environment, CLI
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return errors.Wrap(err, "failed to acquire Azure credential")
	}
	runner = scaler.NewScaler(azure.NewClient(cred, nil))
	return nil
}

// print the structured result to stdout; emitted on failure paths too, so
// automation gets the last known state alongside the exit status
func report(r *scaler.OperationResult) {
	if r == nil {
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		log.WithError(err).Error("failed to serialize result")
	}
}

func scaleCmd(c *cli.Context) error {
	sku, err := scaler.ParseSku(c.String("sku"))
	if err != nil {
		return err
	}
	if c.Int("timeout") <= 0 {
		return errors.New("timeout must be a positive number of minutes")
	}
	log.Debug("scaling capacity")
	result, err := runner.Scale(mainCtx, scaler.ScaleRequest{
		Resource: c.String("capacity"),
		Target:   sku,
		Wait:     c.Bool("wait"),
		Timeout:  time.Duration(c.Int("timeout")) * time.Minute,
	})
	report(result)
	if err != nil {
		return errors.Wrap(err, "failed to scale capacity")
	}
	return nil
}

func resumeCmd(c *cli.Context) error {
	if c.Int("timeout") <= 0 {
		return errors.New("timeout must be a positive number of minutes")
	}
	log.Debug("resuming capacity")
	result, err := runner.Resume(mainCtx, c.String("capacity"), c.Bool("wait"),
		time.Duration(c.Int("timeout"))*time.Minute)
	report(result)
	if err != nil {
		return errors.Wrap(err, "failed to resume capacity")
	}
	return nil
}

func suspendCmd(c *cli.Context) error {
	log.Debug("suspending capacity")
	result, err := runner.Suspend(mainCtx, c.String("capacity"))
	report(result)
	if err != nil {
		return errors.Wrap(err, "failed to suspend capacity")
	}
	return nil
}

func statusCmd(c *cli.Context) error {
	log.Debug("reading capacity status")
	result, err := runner.Status(mainCtx, c.String("capacity"))
	report(result)
	if err != nil {
		return errors.Wrap(err, "failed to read capacity status")
	}
	return nil
}

func init() {
	// handle termination signal
	mainCtx = handleSignals()
}

func handleSignals() context.Context {
	// Graceful shut-down on SIGINT/SIGTERM
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	// create cancelable context
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer cancel()
		sid := <-sig
		log.Printf("received signal: %d\n", sid)
		log.Println("canceling main command ...")
	}()

	return ctx
}

func main() {
	capacityFlag := &cli.StringFlag{
		Name:     "capacity",
		Usage:    "ARM resource identifier of the Fabric capacity",
		EnvVars:  []string{"CAPACITY_RESOURCE_ID"},
		Required: true,
	}
	waitFlag := &cli.BoolFlag{
		Name:  "wait",
		Usage: "wait for the operation to complete",
		Value: true,
	}
	timeoutFlag := &cli.IntFlag{
		Name:  "timeout",
		Usage: "operation timeout in minutes",
		Value: 10,
	}
	app := &cli.App{
		Commands: []*cli.Command{
			{
				Name:  "scale",
				Usage: "scale a Fabric capacity to the target sku, resuming it first if paused",
				Flags: []cli.Flag{
					capacityFlag,
					&cli.StringFlag{
						Name:     "sku",
						Usage:    fmt.Sprintf("target sku, one of %v", scaler.Skus),
						EnvVars:  []string{"CAPACITY_TARGET_SKU"},
						Required: true,
					},
					waitFlag,
					timeoutFlag,
				},
				Action: scaleCmd,
			},
			{
				Name:   "resume",
				Usage:  "resume a paused Fabric capacity",
				Flags:  []cli.Flag{capacityFlag, waitFlag, timeoutFlag},
				Action: resumeCmd,
			},
			{
				Name:   "suspend",
				Usage:  "suspend a running Fabric capacity",
				Flags:  []cli.Flag{capacityFlag},
				Action: suspendCmd,
			},
			{
				Name:   "status",
				Usage:  "print the current state of a Fabric capacity",
				Flags:  []cli.Flag{capacityFlag},
				Action: statusCmd,
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "produce log in JSON format: Logstash and Splunk friendly",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "set log level (debug, info, warning(*), error, fatal, panic)",
				Value: "warning",
			},
		},
		Name:    "capacity-scaler",
		Usage:   "capacity-scaler CLI",
		Before:  before,
		Version: Version,
	}
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Printf("capacity-scaler %s\n", Version)
		fmt.Printf("  Build date: %s\n", BuildDate)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		fmt.Printf("  Git branch: %s\n", GitBranch)
		fmt.Printf("  Built with: %s\n", runtime.Version())
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
