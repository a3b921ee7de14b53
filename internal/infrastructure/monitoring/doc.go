/*
Package monitoring provides Prometheus metrics for the launcher backend.

# Overview

Metrics are registered with a private registry so that tests and multiple
servers in one process never collide on the default registerer. Metrics
implements instance.Recorder, which lets the instance list and scanner
report loads, loader outcomes and emitted events directly.

# Usage

	metrics := monitoring.NewMetrics()
	list.WithRecorder(metrics)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
