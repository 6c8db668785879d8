package toolplugin

import "errors"

// errNotAProvider is returned when a dispensed plugin does not implement
// the Provider interface.
var errNotAProvider = errors.New("plugin does not implement toolplugin.Provider")
