package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	listenAddr      string
	httpListenAddr  string
	metricsAddr     string
	logFormat       string
	logLevel        string
	readTimeout     time.Duration
	maxSessions     int
	registryPolicy  string
	mdnsEnable      bool
	mdnsName        string
	logMetricsEvery time.Duration
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	listen := flag.String("listen", ":4502", "TCP listen address for sign connections")
	httpListen := flag.String("http-listen", ":8080", "HTTP intake listen address")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	readTimeout := flag.Duration("read-timeout", 60*time.Second, "Per-connection rolling read deadline")
	maxSessions := flag.Int("max-sessions", 0, "Maximum simultaneous sign sessions (0 = unlimited)")
	registryPolicy := flag.String("registry-policy", "drop", "Backpressure policy for a wedged session: drop|kick")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS/Avahi advertisement")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default nextbus-signd-<hostname>)")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.listenAddr = *listen
	cfg.httpListenAddr = *httpListen
	cfg.metricsAddr = *metricsAddr
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.readTimeout = *readTimeout
	cfg.maxSessions = *maxSessions
	cfg.registryPolicy = *registryPolicy
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName
	cfg.logMetricsEvery = *logMetricsEvery

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate performs basic semantic validation of the parsed configuration.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	switch c.registryPolicy {
	case "drop", "kick":
	default:
		return fmt.Errorf("invalid registry-policy: %s", c.registryPolicy)
	}
	if c.readTimeout <= 0 {
		return fmt.Errorf("read-timeout must be > 0")
	}
	if c.maxSessions < 0 {
		return fmt.Errorf("max-sessions must be >= 0")
	}
	if c.logMetricsEvery < 0 {
		return fmt.Errorf("log-metrics-interval must be >= 0")
	}
	return nil
}

// applyEnvOverrides maps NEXTBUS_SIGND_* environment variables to config
// fields unless the corresponding flag was explicitly set, mirroring the
// teacher's CAN_SERVER_* convention (flag wins when set).
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["listen"]; !ok {
		if v, ok := get("NEXTBUS_SIGND_LISTEN"); ok && v != "" {
			c.listenAddr = v
		}
	}
	if _, ok := set["http-listen"]; !ok {
		if v, ok := get("NEXTBUS_SIGND_HTTP_LISTEN"); ok && v != "" {
			c.httpListenAddr = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("NEXTBUS_SIGND_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("NEXTBUS_SIGND_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("NEXTBUS_SIGND_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["read-timeout"]; !ok {
		if v, ok := get("NEXTBUS_SIGND_READ_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.readTimeout = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid NEXTBUS_SIGND_READ_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["max-sessions"]; !ok {
		if v, ok := get("NEXTBUS_SIGND_MAX_SESSIONS"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.maxSessions = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid NEXTBUS_SIGND_MAX_SESSIONS: %w", err)
			}
		}
	}
	if _, ok := set["registry-policy"]; !ok {
		if v, ok := get("NEXTBUS_SIGND_REGISTRY_POLICY"); ok && v != "" {
			c.registryPolicy = v
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("NEXTBUS_SIGND_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("NEXTBUS_SIGND_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("NEXTBUS_SIGND_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid NEXTBUS_SIGND_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	return firstErr
}
