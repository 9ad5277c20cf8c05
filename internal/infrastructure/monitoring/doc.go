/*
Package monitoring provides Prometheus metrics for the relay.

# Overview

Every Metrics value owns a private registry, so tests and multiple servers
in one process never collide on registration. The registry also carries the
Go runtime and process collectors.

# Metrics

  - ketonai_http_requests_total{method,path,status}
  - ketonai_http_request_duration_seconds{method,path}
  - ketonai_relay_outcomes_total{outcome}
  - ketonai_relay_fragments_total, ketonai_relay_bytes_total
  - ketonai_relay_active_streams
  - ketonai_backend_open_duration_seconds{result}
  - ketonai_breaker_state{breaker}
  - ketonai_uptime_seconds

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
