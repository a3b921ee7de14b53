/*
Package tracing provides lightweight request tracing for the HTTP API.

# Overview

Every request gets a span. The trace id is taken from the X-Trace-ID header
when a caller sends one, so a CLI invocation and the server requests it
makes share a trace. Finished spans are logged by a background collector.

# Usage

	tracer := tracing.New("server", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	// Outgoing requests
	headers := map[string]string{}
	tracing.InjectTraceContext(ctx, headers)

# Trace Format

  - X-Trace-ID: Unique identifier for entire request flow
  - X-Span-ID: Identifier for current operation
*/
package tracing
