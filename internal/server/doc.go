// Package server hosts the Fiber HTTP service and the request middleware
// chain that turns every inbound request into a classify → resolve →
// respond pipeline. It owns the contracts (FetchResolver, Passthrough,
// RequestClassifier) that the strategy layer implements, plus the shared
// origin HTTP client. Diagnostics surfaces live under routes/ and are the
// only paths exempt from interception, so keep exports narrow and accept
// explicit dependencies.
package server
