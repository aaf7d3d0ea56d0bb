package handler

import (
	"github.com/kerm1977/altair/internal/tenant"
	"github.com/kerm1977/altair/pkg/config"
)

var (
	registry *tenant.Registry
	cfg      *config.Config
)

// Init wires the handler package to its registry and configuration.
// Must be called before any route is served.
func Init(r *tenant.Registry, c *config.Config) {
	registry = r
	cfg = c
}
