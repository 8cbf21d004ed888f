// Package prometheus exposes Engine metrics in Prometheus text format.
//
// Counters are named goaccount_*_total and the login latency histogram is
// goaccount_login_latency_seconds. Callers mount Handler wherever they
// serve /metrics; nothing is registered globally.
package prometheus
