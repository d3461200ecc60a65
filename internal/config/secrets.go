package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables holding credentials. Each also accepts a *_FILE
// variant pointing at a mounted secret.
const (
	EnvMQTTPassword     = "QUESTBOX_MQTT_PASSWORD"
	EnvPostgresPassword = "QUESTBOX_PG_PASSWORD"
	EnvInfluxToken      = "QUESTBOX_INFLUX_TOKEN"
	EnvOperatorUser     = "QUESTBOX_OPERATOR_USER"
	EnvOperatorPass     = "QUESTBOX_OPERATOR_PASS"
)

// Secrets are credentials kept out of box.yaml.
type Secrets struct {
	MQTTPassword     string
	PostgresPassword string
	InfluxToken      string
	OperatorUser     string
	OperatorPass     string
}

// OperatorAuthEnabled reports whether operator endpoints require basic auth.
func (s Secrets) OperatorAuthEnabled() bool {
	return s.OperatorUser != "" && s.OperatorPass != ""
}

// LoadSecrets resolves every credential. A partially configured operator
// login (user without password or the reverse) is rejected.
func LoadSecrets() (Secrets, error) {
	var s Secrets
	targets := []struct {
		env string
		dst *string
	}{
		{EnvMQTTPassword, &s.MQTTPassword},
		{EnvPostgresPassword, &s.PostgresPassword},
		{EnvInfluxToken, &s.InfluxToken},
		{EnvOperatorUser, &s.OperatorUser},
		{EnvOperatorPass, &s.OperatorPass},
	}
	for _, t := range targets {
		v, err := ResolveSecret(t.env)
		if err != nil {
			return Secrets{}, err
		}
		*t.dst = v
	}

	if (s.OperatorUser == "") != (s.OperatorPass == "") {
		return Secrets{}, fmt.Errorf("%s and %s must be set together", EnvOperatorUser, EnvOperatorPass)
	}
	return s, nil
}

// ResolveSecret reads a secret value using the *_FILE convention.
// If envName+"_FILE" is set, reads the secret from that file path.
// Otherwise falls back to the value of envName.
// Returns empty string if neither is set.
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if filePath := os.Getenv(fileEnv); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, filePath, err)
		}
		return strings.TrimSpace(string(content)), nil
	}

	return os.Getenv(envName), nil
}
