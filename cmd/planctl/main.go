package main

import (
	"fmt"
	"os"

	"github.com/smartplanning/planning/internal/cli"
	"github.com/smartplanning/planning/internal/config"
	"github.com/smartplanning/planning/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 日志写到 stderr，stdout 留给排班结果
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		Output: "stderr",
	})

	app := &cli.App{
		Out:       os.Stdout,
		Scheduler: cfg.Scheduler,
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}
	return cli.NewRootCmd(app).Execute()
}
