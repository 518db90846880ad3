// Package config loads typed configuration structs from environment
// variables using caarlos0/env struct tags, with optional .env file support
// via godotenv for local development.
//
// Each configuration type is parsed exactly once per process and cached, so
// components can call Load for the config they need without coordinating
// initialization order.
package config
