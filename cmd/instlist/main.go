package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/client"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/instance"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/loader"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/format"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/infrastructure/config"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/infrastructure/logging"
)

type options struct {
	configPath string
	server     string
	dir        string
	groupFile  string
	format     string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "instlist: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var opts options
	flags := pflag.NewFlagSet("instlist", pflag.ContinueOnError)
	flags.StringVar(&opts.configPath, "config", "", "Config file")
	flags.StringVar(&opts.server, "server", "", "List from a running server instead of scanning locally")
	flags.StringVar(&opts.dir, "dir", "", "Instance root directory")
	flags.StringVar(&opts.groupFile, "groups", "", "Group file")
	flags.StringVarP(&opts.format, "format", "f", format.JSON, "Output format (json, yaml, toml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log scan progress to stderr")
	if err := flags.Parse(args); err != nil {
		return err
	}

	// Reject the format before doing any work
	if _, err := format.Marshal(opts.format, struct{}{}); err != nil {
		return err
	}

	var (
		doc format.Document
		err error
	)
	if opts.server != "" {
		doc, err = fetch(ctx, opts.server)
	} else {
		doc, err = scan(ctx, opts)
	}
	if err != nil {
		return err
	}
	return format.Write(stdout, opts.format, doc)
}

func fetch(ctx context.Context, server string) (format.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return client.New(server, client.DefaultRetryConfig()).List(ctx)
}

func scan(ctx context.Context, opts options) (format.Document, error) {
	cfg, err := config.LoadFrom(opts.configPath)
	if err != nil {
		return format.Document{}, err
	}
	if opts.dir != "" {
		cfg.Instances.Dir = opts.dir
	}
	if opts.groupFile != "" {
		cfg.Instances.GroupFile = opts.groupFile
	}

	logger := logging.NewNop()
	if opts.verbose {
		logger = logging.FromSettings("debug", true)
	}
	defer func() { _ = logger.Sync() }()

	cfgLoader := loader.NewCfgLoader(logger.Component("loader"), cfg.Instances.KnownTypes...).
		WithMarker(cfg.Instances.Marker)
	scanner := instance.NewScanner(cfgLoader, logger.Component("scanner")).
		WithMarker(cfg.Instances.Marker).
		WithIgnore(cfg.Instances.Ignore...)
	list := instance.NewList(cfg.Instances.Dir, scanner, logger.Component("instances")).
		WithGroupFile(cfg.Instances.GroupFile)

	report := list.LoadAll(ctx)
	if report.RootError != "" {
		return format.Document{}, fmt.Errorf("scan %s: %s", cfg.Instances.Dir, report.RootError)
	}

	generation, views := list.Views()
	return format.NewDocument(generation, views), nil
}
