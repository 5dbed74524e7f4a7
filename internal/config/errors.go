package config

import "errors"

var (
	// ErrInvalidConfig wraps every Validate failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps failures reading the YAML file or the environment.
	ErrLoadConfig = errors.New("load config failed")
	// ErrDotenv marks a dotenv file that exists but cannot be parsed, or an
	// explicitly named one that is missing.
	ErrDotenv = errors.New("dotenv")
)
