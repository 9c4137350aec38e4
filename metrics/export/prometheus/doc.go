// Package prometheus exports goPassport engine metrics through
// client_golang. [Collector] can be registered on any registry; [Handler]
// serves a dedicated one.
package prometheus
