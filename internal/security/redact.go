// Package security provides secret redaction for values that leave the
// process: snapshot files, logs, and captured tool output.
package security

import (
	"regexp"

	"github.com/dht-tools/dht/internal/errors"
)

// redactedPlaceholder replaces values that must never be recorded.
const redactedPlaceholder = "[REDACTED]"

// sensitiveNamePattern matches environment variable names whose values
// are secrets by convention, regardless of what the value looks like.
var sensitiveNamePattern = regexp.MustCompile(
	`(?i)(TOKEN|SECRET|PASSWORD|PASSWD|CREDENTIAL|API_?KEY|PRIVATE_KEY|AUTH)`)

// IsSensitiveName reports whether an environment variable name implies a
// secret value.
func IsSensitiveName(name string) bool {
	return sensitiveNamePattern.MatchString(name)
}

// RedactEnv sanitizes one environment variable for recording. Variables
// with secret-implying names are replaced wholesale; other values only
// have embedded credentials (URL basic auth, known token formats)
// scrubbed, so paths and URLs stay diffable.
func RedactEnv(name, value string) string {
	if value == "" {
		return value
	}
	if IsSensitiveName(name) {
		return redactedPlaceholder
	}
	return errors.RedactSensitive(value)
}

// RedactEnvMap sanitizes a captured environment in place and returns it.
func RedactEnvMap(env map[string]string) map[string]string {
	for name, value := range env {
		env[name] = RedactEnv(name, value)
	}
	return env
}
