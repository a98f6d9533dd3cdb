// Package logging provides structured logging helpers for mailbridge.
//
// It keeps attribute names consistent across packages and masks the values
// that must never reach a log line in clear: access tokens are reduced to
// their length and sender addresses to a hash or their domain.
//
// # Usage Patterns
//
//	logger := logging.WithRequest(slog.Default(), r.Method, route, requestID)
//	logger.Warn("partial body",
//	    logging.MessageID(id),
//	    logging.Err(err))
package logging
