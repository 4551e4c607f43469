package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		slog.Warn("Interrupt signal")
		cancel()
	}()

	if err := run(ctx, os.Getenv, os.Getwd, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, getenv func(string) string, getwd func() (string, error), args []string) error {
	c := NewConfig()

	if err := c.LoadDotEnv(getwd); err != nil {
		slog.Error("can't read .env file", "error", err.Error())
		return err
	}
	c.LoadEnv(getenv)

	if err := c.ParseFlags(args); err != nil {
		slog.Error("can't parse flags", "error", err.Error())
		return err
	}

	if err := c.Validate(); err != nil {
		slog.Error("invalid config", "error", err.Error())
		return err
	}

	app, err := NewPipelineApp(ctx, c)
	if err != nil {
		slog.Error("can't initialize app, sorry", "error", err.Error())
		return err
	}

	if _, err := app.Run(ctx); err != nil {
		return err
	}

	return nil
}
