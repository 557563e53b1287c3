// Command promptcanvas is a natural-language image editor.
//
//	promptcanvas [-config config.yaml] [image]   interactive terminal editor
//	promptcanvas [-config config.yaml] serve     HTTP API
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Fepozopo/promptcanvas/pkg/cli"
	"github.com/Fepozopo/promptcanvas/pkg/config"
	"github.com/Fepozopo/promptcanvas/pkg/logging"
	"github.com/Fepozopo/promptcanvas/pkg/server"
	"github.com/Fepozopo/promptcanvas/pkg/studio"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	version := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *version {
		fmt.Println(cli.Version)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.Log.Mode); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logging.Sync()

	env, err := studio.Setup(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer env.Close()
	env.Warmup(context.Background())

	args := flag.Args()
	if len(args) > 0 && args[0] == "serve" {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		gin.SetMode(cfg.Server.Mode)
		srv := server.New(cfg.Server, env, cli.Version)
		if err := srv.Run(ctx); err != nil {
			logging.Logger.Error("server stopped", zap.Error(err))
			return err
		}
		logging.Logger.Info("server exited")
		return nil
	}
	return cli.RunCLI(context.Background(), env, args)
}
