package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sectionconfig "sectionrouting/config"
	"sectionrouting/diagnostics"
	"sectionrouting/event"
	"sectionrouting/identity"
	"sectionrouting/statemachine"
	"sectionrouting/timer"
	"sectionrouting/transport/p2p"

	"github.com/benbjohnson/clock"
)

var diagnosticsAddr string

func nodeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "node", Short: "run and inspect a section-routing node"}
	start := &cobra.Command{
		Use:   "start [config]",
		Short: "bootstrap and run a node until terminated",
		Args:  cobra.MaximumNArgs(1),
		RunE:  nodeStart,
	}
	start.Flags().StringVar(&diagnosticsAddr, "diagnostics-addr", "127.0.0.1:8090", "address for the diagnostics HTTP server")
	status := &cobra.Command{
		Use:   "status",
		Short: "query a running node's diagnostics server",
		Args:  cobra.NoArgs,
		RunE:  nodeStatus,
	}
	status.Flags().StringVar(&diagnosticsAddr, "diagnostics-addr", "127.0.0.1:8090", "address of the diagnostics HTTP server")
	cmd.AddCommand(start, status)
	return cmd
}

func nodeStart(cmd *cobra.Command, args []string) error {
	env := ""
	if len(args) > 0 {
		env = args[0]
	}
	_ = godotenv.Load()

	cfg, err := sectionconfig.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lvl, err := logrus.ParseLevel(cfg.Logging.Level)
	if err == nil {
		logrus.SetLevel(lvl)
	}

	self, err := identity.Gen()
	if err != nil {
		return fmt.Errorf("generate identity: %w", err)
	}

	svc, err := p2p.New(cfg.Network.ListenAddr, cfg.Network.DiscoveryTag)
	if err != nil {
		return fmt.Errorf("start transport: %w", err)
	}

	scfg := statemachine.DefaultConfig()
	scfg.Clock = clock.New()
	scfg.Network.ElderSize = cfg.Section.ElderSize
	scfg.Network.SafeSectionSize = cfg.Section.SafeSectionSize
	scfg.JoinTimeout = cfg.Timeouts.Join

	tm := timer.New(scfg.Clock)
	machine := statemachine.New(scfg, self, svc, tm, identity.ECDSAVerifier{}, event.LogBox{})
	go machine.Run()

	bootCtx, cancel := signalContext()
	defer cancel()
	if err := svc.DialSeeds(bootCtx, cfg.Network.BootstrapPeers); err != nil {
		logrus.Warnf("bootstrap dial: %v", err)
	}

	diag := diagnostics.NewServer(machine, cfg.Section.ElderSize)
	server := &http.Server{Addr: diagnosticsAddr, Handler: diag}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Warnf("diagnostics server: %v", err)
		}
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "node started, diagnostics at http://%s\n", diagnosticsAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	machine.Stop()
	_ = server.Close()
	_ = svc.Close()
	return nil
}

func nodeStatus(cmd *cobra.Command, _ []string) error {
	prefix, err := getJSON(fmt.Sprintf("http://%s/prefix", diagnosticsAddr))
	if err != nil {
		return err
	}
	elder, err := getJSON(fmt.Sprintf("http://%s/elder", diagnosticsAddr))
	if err != nil {
		return err
	}
	neighbours, err := getJSON(fmt.Sprintf("http://%s/neighbours", diagnosticsAddr))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "prefix: %s\nelder: %s\nneighbours: %s\n", prefix, elder, neighbours)
	return nil
}
