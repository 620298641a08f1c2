// Package httpserver runs an http.Server with graceful shutdown and provides
// the small pieces every flag service endpoint needs: request ids and health
// checks.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//
//	r := chi.NewRouter()
//	r.Use(httpserver.RequestID)
//	r.Get("/livez", httpserver.HealthCheckHandler(log))
//	r.Get("/readyz", httpserver.HealthCheckHandler(log, store.Ready))
//
//	if err := srv.Run(ctx, r); err != nil {
//		return err
//	}
//
// Run returns when ctx is cancelled; wire it to signal.NotifyContext for
// SIGINT/SIGTERM handling.
package httpserver
