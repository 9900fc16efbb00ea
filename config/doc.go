// Package config loads and validates the YAML configuration used by the
// quaerit CLI. Programmatic users of the engine usually skip this package and
// configure through functional options instead; the CLI layers flag values
// over a loaded file, which in turn layers over Default.
package config
