// Package handler exposes the HTTP API as a single serverless function. Background reminders do not run here.
package handler

import (
	"net/http"
	"sync"

	"roombook/config"
	"roombook/di"
	"roombook/shared/logger"
)

var (
	app  *di.Application
	once sync.Once
)

func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()

	once.Do(func() {
		cfg := config.Get()

		logger.InitLogger(cfg.Server.Env)

		logger.SetLogLevel(cfg)

		app = di.InitializeService()
	})

	app.HTTP.ServeHTTP(w, r)
}
