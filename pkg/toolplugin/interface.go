// Package toolplugin provides the public interface for dht tool provider
// plugins. A provider is an external binary that contributes tool
// definitions (name, version command, install hint) to the dht registry.
// Plugin authors implement Provider and call Serve from their main.
package toolplugin

// Info contains metadata about a tool provider.
type Info struct {
	// Name is the provider name.
	Name string `json:"name"`
	// Version is the provider version.
	Version string `json:"version"`
	// Description is a short description of the provider.
	Description string `json:"description"`
}

// ToolSpec declares one tool the provider contributes.
type ToolSpec struct {
	// Name is the registry key, e.g. "terraform".
	Name string `json:"name"`
	// Executable is the binary to invoke; defaults to Name when empty.
	Executable string `json:"executable,omitempty"`
	// VersionArgs is the argv (after the executable) that prints a version.
	VersionArgs []string `json:"version_args,omitempty"`
	// VersionPattern is a regex whose first capture group is the version.
	// Empty uses dht's default dotted-number pattern.
	VersionPattern string `json:"version_pattern,omitempty"`
	// InstallHint tells the user how to get the tool.
	InstallHint string `json:"install_hint,omitempty"`
}

// Provider is the interface a tool provider plugin must implement.
type Provider interface {
	// Info returns metadata about the provider.
	Info() (Info, error)

	// Tools returns the tool definitions this provider contributes.
	Tools() ([]ToolSpec, error)
}
