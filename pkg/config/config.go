// Package config loads OperatorConfig from CLI flags, with process
// environment variables providing the flags' defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// OperatorConfig holds the cluster-wide defaults and tunables shared,
// read-only, by every reconciliation.
type OperatorConfig struct {
	HCloudToken               string
	DefaultNetwork            string
	DynamicNodeSelector       bool
	DefaultLBRetries          int
	DefaultLBTimeout          int
	DefaultLBInterval         int
	DefaultLBLocation         string
	DefaultLBType             string
	DefaultLBAlgorithm        string
	DefaultLBProxyModeEnabled bool
	IPv6Ingress               bool
	LogLevel                  string
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Load binds OperatorConfig's fields onto fs (environment variables provide
// the flags' defaults, following the original's clap `env = "..."` pattern)
// and parses args. HCLOUD_TOKEN has no default; Load returns an error if it
// ends up empty, since it's the one field the process cannot run without.
func Load(fs *flag.FlagSet, args []string) (*OperatorConfig, error) {
	cfg := &OperatorConfig{}

	fs.StringVar(&cfg.HCloudToken, "hcloud-token", envString("HCLOUD_TOKEN", ""), "HCloud API bearer token")
	fs.StringVar(&cfg.DefaultNetwork, "default-network", envString("DEFAULT_NETWORK", ""), "Fallback private-network name")
	fs.BoolVar(&cfg.DynamicNodeSelector, "dynamic-node-selector", envBool("DYNAMIC_NODE_SELECTOR", true), "Choose pod-tracking resolver vs. label-selector resolver")
	fs.IntVar(&cfg.DefaultLBRetries, "default-lb-retries", envInt("DEFAULT_LB_RETRIES", 3), "Health-check retries")
	fs.IntVar(&cfg.DefaultLBTimeout, "default-lb-timeout", envInt("DEFAULT_LB_TIMEOUT", 10), "Health-check timeout (seconds)")
	fs.IntVar(&cfg.DefaultLBInterval, "default-lb-interval", envInt("DEFAULT_LB_INTERVAL", 15), "Health-check interval (seconds)")
	fs.StringVar(&cfg.DefaultLBLocation, "default-lb-location", envString("DEFAULT_LB_LOCATION", "hel1"), "HCloud region")
	fs.StringVar(&cfg.DefaultLBType, "default-lb-type", envString("DEFAULT_LB_TYPE", "lb11"), "HCloud LB SKU")
	fs.StringVar(&cfg.DefaultLBAlgorithm, "default-lb-algorithm", envString("DEFAULT_LB_ALGORITHM", "least-connections"), "round-robin | least-connections")
	fs.BoolVar(&cfg.DefaultLBProxyModeEnabled, "default-lb-proxy-mode-enabled", envBool("DEFAULT_LB_PROXY_MODE_ENABLED", false), "PROXY-protocol default")
	fs.BoolVar(&cfg.IPv6Ingress, "ipv6-ingress", envBool("IPV6_INGRESS", false), "Publish LB IPv6 into Service ingress status")
	fs.StringVar(&cfg.LogLevel, "log-level", envString("LOG_LEVEL", "INFO"), "Log verbosity")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if cfg.HCloudToken == "" {
		return nil, fmt.Errorf("HCLOUD_TOKEN is required")
	}

	return cfg, nil
}
