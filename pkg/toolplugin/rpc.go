package toolplugin

import (
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// rpcPlugin implements plugin.Plugin over go-plugin's net/rpc transport.
// Tool definitions are small, gob-friendly structs, so the rpc transport
// keeps providers free of any codegen.
type rpcPlugin struct {
	Impl Provider
}

// Server implements plugin.Plugin.
func (p *rpcPlugin) Server(*plugin.MuxBroker) (any, error) {
	return &providerServer{impl: p.Impl}, nil
}

// Client implements plugin.Plugin.
func (p *rpcPlugin) Client(_ *plugin.MuxBroker, c *rpc.Client) (any, error) {
	return &providerClient{client: c}, nil
}

// providerServer is the rpc server side running inside the plugin process.
type providerServer struct {
	impl Provider
}

func (s *providerServer) Info(_ struct{}, reply *Info) error {
	info, err := s.impl.Info()
	if err != nil {
		return err
	}
	*reply = info
	return nil
}

func (s *providerServer) Tools(_ struct{}, reply *[]ToolSpec) error {
	tools, err := s.impl.Tools()
	if err != nil {
		return err
	}
	*reply = tools
	return nil
}

// providerClient is the host-side Provider backed by the rpc connection.
type providerClient struct {
	client *rpc.Client
}

var _ Provider = (*providerClient)(nil)

func (c *providerClient) Info() (Info, error) {
	var reply Info
	err := c.client.Call("Plugin.Info", struct{}{}, &reply)
	return reply, err
}

func (c *providerClient) Tools() ([]ToolSpec, error) {
	var reply []ToolSpec
	err := c.client.Call("Plugin.Tools", struct{}{}, &reply)
	return reply, err
}
