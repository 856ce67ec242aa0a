// Package health periodically probes the services PhishLens depends on
// (the verdict oracle and the verdict log database) and tracks whether each
// one is healthy. A dependency is marked degraded after FailThreshold
// consecutive failures, or on its first failure if it was never healthy.
package health
