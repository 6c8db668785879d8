package toolplugin

import (
	"os"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

const (
	// PluginName is the name used for the plugin map.
	PluginName = "dht-tool-provider"

	// MagicCookieKey is the key for the plugin handshake.
	MagicCookieKey = "DHT_TOOL_PLUGIN"

	// MagicCookieValue is the value for the plugin handshake.
	MagicCookieValue = "dht-tools-v1"
)

// Handshake is the handshake config for tool provider plugins.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   MagicCookieKey,
	MagicCookieValue: MagicCookieValue,
}

// Serve starts the plugin server with the given provider implementation.
// This should be called from the plugin's main function.
func Serve(impl Provider) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			PluginName: &rpcPlugin{Impl: impl},
		},
	})
}

// Load starts the provider binary at path, performs the handshake, and
// returns its info and tool definitions. The plugin process is torn down
// before Load returns.
func Load(path string) (Info, []ToolSpec, error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			PluginName: &rpcPlugin{},
		},
		Cmd: exec.Command(path),
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:   "toolplugin",
			Level:  hclog.Warn,
			Output: os.Stderr,
		}),
	})
	defer client.Kill()

	rpcClient, err := client.Client()
	if err != nil {
		return Info{}, nil, err
	}

	raw, err := rpcClient.Dispense(PluginName)
	if err != nil {
		return Info{}, nil, err
	}

	provider, ok := raw.(Provider)
	if !ok {
		return Info{}, nil, errNotAProvider
	}

	info, err := provider.Info()
	if err != nil {
		return Info{}, nil, err
	}
	tools, err := provider.Tools()
	if err != nil {
		return Info{}, nil, err
	}
	return info, tools, nil
}
