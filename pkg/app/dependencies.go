package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Ramsey-B/stem/pkg/startup"
)

func (a *App) buildStartup() *startup.Startup {
	s := startup.NewStartup[any](a.logger, a.cfg.StartupMaxAttempts)
	s.AddDependency(&httpServerDependency{app: a})
	if a.consumer != nil {
		s.AddDependency(&consumerDependency{app: a})
	}
	return s
}

type httpServerDependency struct {
	app *App
}

func (d *httpServerDependency) GetName() string {
	return "http-server"
}

func (d *httpServerDependency) DependsOn() []string {
	return nil
}

func (d *httpServerDependency) Start(ctx context.Context) error {
	go func() {
		addr := fmt.Sprintf(":%d", d.app.cfg.Port)
		if err := d.app.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.app.logger.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()
	return nil
}

func (d *httpServerDependency) Stop(ctx context.Context) error {
	return d.app.echo.Shutdown(ctx)
}

type consumerDependency struct {
	app *App
}

func (d *consumerDependency) GetName() string {
	return "kafka-consumer"
}

func (d *consumerDependency) DependsOn() []string {
	return nil
}

func (d *consumerDependency) Start(ctx context.Context) error {
	return d.app.consumer.Start(ctx)
}

func (d *consumerDependency) Stop(ctx context.Context) error {
	return d.app.consumer.Stop()
}
