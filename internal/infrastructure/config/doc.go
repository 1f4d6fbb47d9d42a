// Package config loads and validates the bridge configuration.
//
// Configuration is read from a YAML file, starting from hardcoded defaults,
// then overridden by environment variables (QSYSBRIDGE_SECTION_KEY pattern).
//
// The only required setting is core.host, the address of the Q-SYS core
// whose QRC interface the bridge fronts. Everything else has a working
// default for a single-core LAN deployment.
package config
