package delegation

import (
	"context"
	"net/rpc"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/stakepool/liquidcore/common/quantity"
)

// Handshake is the plugin handshake config shared by host and plugin
// binary; MagicCookieValue guards against accidentally executing an
// unrelated binary as a delegation plugin.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "STAKEPOOL_DELEGATION_PLUGIN",
	MagicCookieValue: "liquid-staking-endpoint",
}

// pluginRPC adapts the net/rpc wire protocol go-plugin uses by default to
// the Endpoint interface.
type pluginRPC struct{ client *rpc.Client }

func (p *pluginRPC) DepositAndStake(_ context.Context, amount *quantity.Quantity) error {
	return p.client.Call("Plugin.DepositAndStake", amount.String(), &struct{}{})
}

func (p *pluginRPC) Unstake(_ context.Context, amount *quantity.Quantity) error {
	return p.client.Call("Plugin.Unstake", amount.String(), &struct{}{})
}

func (p *pluginRPC) Withdraw(_ context.Context, amount *quantity.Quantity) error {
	return p.client.Call("Plugin.Withdraw", amount.String(), &struct{}{})
}

func (p *pluginRPC) GetAccountTotalBalance(_ context.Context) (*quantity.Quantity, error) {
	var reply string
	if err := p.client.Call("Plugin.GetAccountTotalBalance", struct{}{}, &reply); err != nil {
		return nil, err
	}
	return parseQuantity(reply)
}

func (p *pluginRPC) GetAccount(_ context.Context) (AccountView, error) {
	var reply accountReply
	if err := p.client.Call("Plugin.GetAccount", struct{}{}, &reply); err != nil {
		return AccountView{}, err
	}
	staked, err := parseQuantity(reply.StakedBalance)
	if err != nil {
		return AccountView{}, err
	}
	unstaked, err := parseQuantity(reply.UnstakedBalance)
	if err != nil {
		return AccountView{}, err
	}
	return AccountView{StakedBalance: staked, UnstakedBalance: unstaked, CanWithdraw: reply.CanWithdraw}, nil
}

// endpointPlugin is the go-plugin.Plugin implementation the host side
// registers under the name "endpoint".
type endpointPlugin struct{}

func (endpointPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return nil, nil
}

func (endpointPlugin) Client(_ *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &pluginRPC{client: c}, nil
}

// DialPluginEndpoint launches an external delegation-endpoint plugin
// binary over the hashicorp/go-plugin net/rpc transport. This is the
// integration point for delegation targets too exotic to speak gRPC —
// e.g. a thin adapter shelling out to a chain-specific CLI.
func DialPluginEndpoint(path string) (Endpoint, *plugin.Client, error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			"endpoint": &endpointPlugin{},
		},
		Cmd:    exec.Command(path),
		Logger: hclog.NewNullLogger(),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, nil, err
	}
	raw, err := rpcClient.Dispense("endpoint")
	if err != nil {
		client.Kill()
		return nil, nil, err
	}
	return raw.(Endpoint), client, nil
}
