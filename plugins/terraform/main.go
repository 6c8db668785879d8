// Command terraform-provider is a dht tool provider plugin contributing
// HashiCorp tool definitions to the registry. Build it and load it with
// `dht tools list --plugin ./terraform-provider`.
package main

import "github.com/dht-tools/dht/pkg/toolplugin"

type provider struct{}

func (provider) Info() (toolplugin.Info, error) {
	return toolplugin.Info{
		Name:        "terraform",
		Version:     "0.1.0",
		Description: "HashiCorp tooling definitions for dht",
	}, nil
}

func (provider) Tools() ([]toolplugin.ToolSpec, error) {
	return []toolplugin.ToolSpec{
		{
			Name:        "terraform",
			VersionArgs: []string{"version"},
			InstallHint: "https://developer.hashicorp.com/terraform/install",
		},
		{
			Name:        "packer",
			VersionArgs: []string{"version"},
			InstallHint: "https://developer.hashicorp.com/packer/install",
		},
		{
			Name:        "vault",
			VersionArgs: []string{"version"},
			// `vault version` prints "Vault v1.17.2 (...)".
			VersionPattern: `v(\d+\.\d+\.\d+)`,
			InstallHint:    "https://developer.hashicorp.com/vault/install",
		},
	}, nil
}

func main() {
	toolplugin.Serve(provider{})
}
