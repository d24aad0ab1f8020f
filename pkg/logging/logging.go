// Package logging builds the process logger and scrubs credentials from
// anything that ends up in it.
package logging

import (
	"go.uber.org/zap"
)

// New builds the process logger. Local development gets the console encoder;
// everything else logs structured JSON.
func New(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
