// Package httputil provides the small HTTP toolkit behind `hubcap watch`:
// JSON replies, structured request logging and panic recovery.
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.RecoveryMiddleware(logger),
//		httputil.LoggingMiddleware(logger),
//	)(mux)
//
// Error bodies always have the shape {"error": "..."}.
package httputil
