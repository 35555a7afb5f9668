package client

import "strings"

// setupRoutes may be called even while the account still requires
// setup: profile self-service, file upload, and the auth surface.
var setupRoutes = []string{
	"/api/proxy/profile",
	"/api/proxy/files/upload",
	"/auth",
}

// routeExempt reports whether a path escapes the setup gate. Setup
// routes are exempt, and follow actions are always allowed pre-setup
// regardless of where they live.
func routeExempt(path string) bool {
	if strings.Contains(path, "follow") {
		return true
	}
	for _, route := range setupRoutes {
		if strings.HasPrefix(path, route) {
			return true
		}
	}
	return false
}
