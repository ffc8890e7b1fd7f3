// Package config provides configuration loading for grow-core.
//
// Configuration is read from a YAML file, merged over hardcoded defaults,
// and finally overridden by GROWCORE_* environment variables. Validation
// runs once at load time so every other package can trust the values it
// receives.
//
// The resilience section supplies the default retry/breaker parameters for
// outbound vendor calls; the vendors section carries per-brand endpoints.
package config
