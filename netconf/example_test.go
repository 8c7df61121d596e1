package netconf_test

import (
	"context"
	"fmt"

	"github.com/damianoneill/netconf-tasks/config"
	"github.com/damianoneill/netconf-tasks/core"
	"github.com/damianoneill/netconf-tasks/inventory"
	"github.com/damianoneill/netconf-tasks/netconf"
	"github.com/damianoneill/netconf-tasks/netconf/testserver"
)

func newExampleNornir(port int) *core.Nornir {
	h := inventory.NewHost("device", inventory.Attributes{
		Hostname: "localhost",
		Port:     port,
		Username: testserver.TestUserName,
		Password: testserver.TestPassword,
	})
	return core.New(inventory.New([]*inventory.Host{h}, nil, nil), config.New())
}

func ExampleCapabilities() {
	ts := testserver.NewTestNetconfServer(nil).WithCapabilities([]string{
		"urn:ietf:params:netconf:base:1.0",
		"urn:ietf:params:netconf:capability:candidate:1.0",
	})
	defer ts.Close()

	nr := newExampleNornir(ts.Port())
	defer nr.Close(context.Background()) // nolint: errcheck

	ar, err := nr.Run(context.Background(), "netconf_capabilities", netconf.Capabilities)
	if err != nil {
		fmt.Printf("Failed to run task %v\n", err)
		return
	}
	for _, c := range ar.Host("device")[0].Result.([]string) {
		fmt.Println(c)
	}
	// Output:
	// urn:ietf:params:netconf:base:1.0
	// urn:ietf:params:netconf:capability:candidate:1.0
}

func ExampleGetConfig() {
	ts := testserver.NewTestNetconfServer(nil).
		WithRequestHandler(testserver.DataRequestHandler(`<system><hostname>device</hostname></system>`))
	defer ts.Close()

	nr := newExampleNornir(ts.Port())
	defer nr.Close(context.Background()) // nolint: errcheck

	ar, err := nr.Run(context.Background(), "get_config", netconf.GetConfig(netconf.RunningCfg, `<system/>`))
	if err != nil {
		fmt.Printf("Failed to run task %v\n", err)
		return
	}
	fmt.Println(ar.Host("device")[0].Result)
	// Output: <system><hostname>device</hostname></system>
}
