package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pteich/configstruct"
	"go.uber.org/zap"

	"github.com/pteich/elastic-repository/export"
	"github.com/pteich/elastic-repository/flags"
	"github.com/pteich/elastic-repository/logging"
)

var Version string

func main() {
	os.Exit(run())
}

func run() int {
	conf := flags.Default()
	if err := configstruct.Parse(&conf); err != nil {
		fmt.Fprintf(os.Stderr, "invalid arguments: %s\n", err)
		return 2
	}

	logger, err := logging.New(conf.LogLevel, conf.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %s\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug("starting elastic-repository", zap.String("version", Version))
	if err := export.Run(ctx, &conf, logger); err != nil {
		logger.Error("export failed", zap.Error(err))
		return 1
	}
	return 0
}
