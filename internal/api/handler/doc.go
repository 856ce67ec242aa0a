// Package handler exposes the PhishLens analyzer and verdict log over HTTP
// using gin, together with the shared middleware and Prometheus metrics.
package handler
