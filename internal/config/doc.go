// Package config loads the node daemon's configuration.
//
// Configuration comes from three layers, each overriding the last:
// hardcoded defaults, a YAML file, and NODELINK_* environment variables
// (reserved for secrets and per-deployment values). Load validates the
// merged result so the daemon fails at startup, not mid-flight.
package config
