package ident

import (
	"fmt"
	"strings"

	"github.com/purc-tools/purcrdr/constants"
)

// ExtractHostName, ExtractAppName, and ExtractRunnerName parse
// "@host/app/runner" into its components, returning "" on malformed
// input.

func splitEndpoint(endpoint string) (host, app, runner string, ok bool) {
	if !strings.HasPrefix(endpoint, "@") {
		return "", "", "", false
	}
	parts := strings.Split(endpoint[1:], "/")
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

func ExtractHostName(endpoint string) string {
	h, _, _, ok := splitEndpoint(endpoint)
	if !ok {
		return ""
	}
	return h
}

func ExtractAppName(endpoint string) string {
	_, a, _, ok := splitEndpoint(endpoint)
	if !ok {
		return ""
	}
	return a
}

func ExtractRunnerName(endpoint string) string {
	_, _, r, ok := splitEndpoint(endpoint)
	if !ok {
		return ""
	}
	return r
}

// AssembleEndpointName joins (host, app, runner) into "@host/app/runner",
// returning an error if the result would exceed MaxEndpointNameLen or
// any component fails validation.
func AssembleEndpointName(host, app, runner string) (string, error) {
	if !IsValidToken(host, constants.MaxHostNameLen) {
		return "", fmt.Errorf("invalid host name %q", host)
	}
	if !IsValidAppName(app, constants.MaxAppNameLen) {
		return "", fmt.Errorf("invalid app name %q", app)
	}
	if !IsValidToken(runner, constants.MaxRunnerNameLen) {
		return "", fmt.Errorf("invalid runner name %q", runner)
	}
	name := "@" + host + "/" + app + "/" + runner
	if len(name) > constants.MaxEndpointNameLen {
		return "", fmt.Errorf("assembled endpoint name too long: %d bytes", len(name))
	}
	return name, nil
}
