// Package policy implements Access Control (spec §4.10): the cheat filter
// applied to in-game requests before they are forwarded to an engine.
package policy

import (
	"github.com/lguibr/sc2-proxy/config"
	"github.com/lguibr/sc2-proxy/wire"
)

// IsRequestAllowed is pure and total: for DisableCheats == false it always
// returns true (spec testable property #5). When cheats are disabled, a
// Debug request is allowed only if every command in it is a pure drawing
// overlay.
func IsRequestAllowed(req wire.Request, limits config.RequestLimits) bool {
	if !limits.DisableCheats {
		return true
	}
	if !req.IsDebug() {
		return true
	}
	return !req.HasNonDrawDebugCommand()
}

// IsInterfaceAllowed enforces match_defaults.game.allowed_interfaces (spec
// §9 open question, resolved: checked once, at join time, against the
// InterfaceOptions a client's JoinGame request carries). A nil or empty
// allowlist imposes no restriction. An interface option the request does
// not set at all is never checked: allowed_interfaces names what a client
// is permitted to turn on, not what it must.
func IsInterfaceAllowed(interfaceOptions map[string]bool, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	permitted := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		permitted[name] = true
	}
	for name, on := range interfaceOptions {
		if on && !permitted[name] {
			return false
		}
	}
	return true
}
