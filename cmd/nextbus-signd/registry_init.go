package main

import (
	"log/slog"

	"github.com/nextbus/signd/internal/signhub"
)

// initRegistry constructs the signhub.Registry from the backpressure
// policy named in configuration, mirroring the teacher's initHub.
func initRegistry(cfg *appConfig, l *slog.Logger) *signhub.Registry {
	var policy signhub.BackpressurePolicy
	switch cfg.registryPolicy {
	case "kick":
		policy = signhub.PolicyKick
	default:
		policy = signhub.PolicyDrop
	}
	reg := signhub.New(policy, defaultOverflowCeiling)
	l.Info("registry_config", "policy", cfg.registryPolicy, "overflow_ceiling", defaultOverflowCeiling)
	return reg
}

// defaultOverflowCeiling is the per-session outbound queue depth above
// which the registry's backpressure policy kicks in on broadcast,
// signalling a wedged writer rather than ordinary slow consumption
// (SPEC_FULL §10.5).
const defaultOverflowCeiling = 1024
