// Package config holds the module's compile-time configuration constants
// as a plain exported-var block, with no viper/env parsing layer.
package config

var (
	// RedisAddress is a default Redis server address. No package in this
	// module reads it: the CLI demo does not use Redis, and the store tests
	// dial an address of their own.
	RedisAddress = "localhost:6379"

	// SessionPickleKeyPattern namespaces a session's pickled bytes in
	// Redis.
	SessionPickleKeyPattern = "olmsession:pickle:%s"
)
