package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"git.hub.com/wangyl/camera-gateway/app"
	"git.hub.com/wangyl/camera-gateway/pkg/logger"
	"git.hub.com/wangyl/camera-gateway/pkg/settings"
	"git.hub.com/wangyl/camera-gateway/pkg/snowflake"
	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	configPath  string
	logLevel    string
	logDir      string
	development bool
)

func main() {
	a := kingpin.New(filepath.Base(os.Args[0]), "camera media over plain http")
	a.HelpFlag.Short('h')
	a.Flag("config", "config path (toml or yaml)").Short('c').StringVar(&configPath)
	a.Flag("log-level", "debug, info, warn or error").StringVar(&logLevel)
	a.Flag("log-dir", "directory for rotated log files").StringVar(&logDir)
	a.Flag("dev", "colored console logging").BoolVar(&development)
	if _, err := a.Parse(os.Args[1:]); err != nil {
		logger.GetLogger().Error("init flag fail: " + err.Error())
		os.Exit(-1)
	}
	//init config
	cfg, err := settings.ReadConfig(configPath)
	if err != nil {
		logger.GetLogger().Error("init config fail: " + err.Error())
		os.Exit(-1)
	}
	if logLevel != "" {
		cfg.Logger.Level = logLevel
	}
	if logDir != "" {
		cfg.Logger.Dir = logDir
	}
	//init logger
	log, err := logger.Init(
		logger.SetLevelName(cfg.Logger.Level),
		logger.SetDevelopment(cfg.Logger.Development || development),
		logger.SetLogFileDir(cfg.Logger.Dir),
		logger.SetMaxAge(cfg.Logger.MaxAge),
		logger.SetMaxBackups(cfg.Logger.MaxBackups),
		logger.SetMaxSize(cfg.Logger.MaxSize),
		logger.SetConsole(true),
	)
	if err != nil {
		logger.GetLogger().Error("init logger fail: " + err.Error())
		os.Exit(-1)
	}
	defer log.Sync()
	if err := snowflake.Init(cfg.HTTP.NodeID); err != nil {
		log.Warn("init snowflake node fail, using node 1: " + err.Error())
	}

	gateway := app.NewGateway(cfg, log)
	if err := gateway.Serve(); err != nil {
		log.Error("start gateway fail: " + err.Error())
		os.Exit(-1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	s := <-quit
	log.Info("shutting down", zap.String("signal", s.String()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := gateway.Stop(ctx); err != nil {
		log.Warn("gateway stop: " + err.Error())
	}
}
