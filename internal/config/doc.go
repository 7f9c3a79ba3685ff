// Package config loads, normalizes, and validates glossa configuration.
//
// Configuration lives in a TOML file (~/.config/glossa/config.toml by
// default, or glossa.toml in the working directory) and is decoded over
// repository defaults. Normalization expands ~ paths, canonicalizes
// language tags, and fills derived defaults; validation rejects configs the
// daemon cannot run with. Other packages should treat the returned Config as
// read-only.
package config
