package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sectionrouting/event"
	"sectionrouting/identity"
	"sectionrouting/statemachine"
	"sectionrouting/timer"
	"sectionrouting/transport/p2p"
)

// devnetNodeSpec is one entry of a devnet YAML manifest: just enough to
// start a local node and have it find the others via mDNS.
type devnetNodeSpec struct {
	ListenAddr   string `yaml:"listen_addr"`
	DiscoveryTag string `yaml:"discovery_tag"`
}

type devnetManifest struct {
	Nodes []devnetNodeSpec `yaml:"nodes"`
}

func devnetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devnet <manifest.yaml>",
		Short: "start a local multi-node devnet from a YAML manifest",
		Args:  cobra.ExactArgs(1),
		RunE:  devnetStart,
	}
	return cmd
}

func devnetStart(cmd *cobra.Command, args []string) error {
	b, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var manifest devnetManifest
	if err := yaml.Unmarshal(b, &manifest); err != nil {
		return fmt.Errorf("parse devnet manifest: %w", err)
	}
	if len(manifest.Nodes) == 0 {
		return fmt.Errorf("devnet manifest names no nodes")
	}

	machines := make([]*statemachine.Machine, 0, len(manifest.Nodes))
	closers := make([]func() error, 0, len(manifest.Nodes))
	for i, spec := range manifest.Nodes {
		self, err := identity.Gen()
		if err != nil {
			return fmt.Errorf("node %d: generate identity: %w", i, err)
		}
		svc, err := p2p.New(spec.ListenAddr, spec.DiscoveryTag)
		if err != nil {
			return fmt.Errorf("node %d: start transport: %w", i, err)
		}
		scfg := statemachine.DefaultConfig()
		scfg.Clock = clock.New()
		tm := timer.New(scfg.Clock)
		m := statemachine.New(scfg, self, svc, tm, identity.ECDSAVerifier{}, event.LogBox{})
		go m.Run()
		machines = append(machines, m)
		closers = append(closers, svc.Close)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "devnet started with %d nodes\n", len(machines))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	for i, m := range machines {
		m.Stop()
		if err := closers[i](); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "node %d: close: %v\n", i, err)
		}
	}
	return nil
}
