package main

import (
	"context"
	"errors"
	"os"

	"github.com/fsdevblog/paperify-pay/internal/app"
	"github.com/fsdevblog/paperify-pay/internal/config"
	"github.com/fsdevblog/paperify-pay/internal/logger"
)

func main() {
	conf := config.MustLoadConfig()
	l := logger.New(os.Stdout, conf.LogLevel)

	if err := app.New(conf, l).Run(); err != nil {
		if errors.Is(err, context.Canceled) {
			l.Info("graceful shutdown")
			os.Exit(0)
		}
		l.WithError(err).Fatal("app stopped")
	}
}
