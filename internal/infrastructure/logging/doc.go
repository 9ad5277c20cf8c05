// Package logging builds the relay's zap logger from LogConfig.
//
// Production writes JSON lines to stdout. LOG_DEV=true switches to colored
// console output with stack traces. Every line carries service=ketonai;
// request handlers add request_id, trace_id and span_id through
// tracing.Fields.
//
//	logger, err := logging.New(cfg.Logging)
//	logger.Info("Server starting", zap.String("port", "3000"))
//	logger.Error("Gemini stream failed", zap.Error(err))
package logging
