// Package middleware provides the gin middleware shared by every route.
//
//   - CORS: any origin, via gin-contrib/cors
//   - RequestLogger: one zap line per finished request
//   - Recovery: panic to 500 with a logged stack
//
// Example Usage:
//
//	router.Use(middleware.Recovery(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RequestLogger(logger))
package middleware
