package toolplugin

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct{}

func (fakeProvider) Info() (Info, error) {
	return Info{Name: "fake", Version: "1.0.0", Description: "test provider"}, nil
}

func (fakeProvider) Tools() ([]ToolSpec, error) {
	return []ToolSpec{
		{Name: "terraform", VersionArgs: []string{"version"}},
		{Name: "vault", VersionPattern: `v(\d+\.\d+\.\d+)`},
	}, nil
}

// serveTest runs the plugin server in-process and returns a connected
// client, so the rpc round trip is tested without building a binary.
func serveTest(t *testing.T, impl Provider) *plugin.Client {
	t.Helper()

	reattachCh := make(chan *plugin.ReattachConfig, 1)
	closeCh := make(chan struct{})

	go plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			PluginName: &rpcPlugin{Impl: impl},
		},
		Test: &plugin.ServeTestConfig{
			ReattachConfigCh: reattachCh,
			CloseCh:          closeCh,
		},
	})

	var reattach *plugin.ReattachConfig
	select {
	case reattach = <-reattachCh:
	case <-time.After(5 * time.Second):
		t.Fatal("plugin server did not start")
	}

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			PluginName: &rpcPlugin{},
		},
		Reattach: reattach,
		Logger:   hclog.NewNullLogger(),
	})

	t.Cleanup(func() {
		client.Kill()
		close(closeCh)
	})

	return client
}

func TestProviderRoundTrip(t *testing.T) {
	client := serveTest(t, fakeProvider{})

	rpcClient, err := client.Client()
	require.NoError(t, err)

	raw, err := rpcClient.Dispense(PluginName)
	require.NoError(t, err)

	provider, ok := raw.(Provider)
	require.True(t, ok)

	info, err := provider.Info()
	require.NoError(t, err)
	assert.Equal(t, "fake", info.Name)
	assert.Equal(t, "1.0.0", info.Version)

	tools, err := provider.Tools()
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "terraform", tools[0].Name)
	assert.Equal(t, []string{"version"}, tools[0].VersionArgs)
	assert.Equal(t, `v(\d+\.\d+\.\d+)`, tools[1].VersionPattern)
}

func TestLoadMissingBinary(t *testing.T) {
	_, _, err := Load("/nonexistent/dht-test-plugin")
	require.Error(t, err)
}
