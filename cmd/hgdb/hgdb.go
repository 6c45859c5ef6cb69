// Package hgdb wires the hgdb debug server into the cucaracha CLI: a
// replay-mode session (C9) that drives the Runtime Orchestrator (C7) from a
// captured waveform instead of a live simulator, listening for debugger
// clients over TCP (C6). A live VPI-backed session is started the same way
// by whatever process embeds rtl.VPIClient; this command only covers the
// waveform-driven path a Go binary can run standalone.
package hgdb

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Kuree/hgdb-sub000/pkg/hgdb/hgdblog"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/orchestrator"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/rtl"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/rtl/replay"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/scheduler"
	"github.com/Kuree/hgdb-sub000/pkg/hgdb/transport"
)

var (
	wavePath   string
	symbolURI  string
	clockName  string
	portFlag   uint16
	wsPortFlag uint16
	logEnabled bool
	noDB       bool
)

// ReplayCmd represents the replay subcommand.
var ReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run an hgdb debug server against a captured waveform",
	Long: `replay drives the hgdb Runtime Orchestrator from a VCD waveform instead of a
live RTL simulator (the C9 replay shim), so a debugger client can step through a
previously recorded run the same way it would step through a live one.

Startup still honors spec.md's plusarg switches (+DEBUG_PORT=<u16>, +DEBUG_LOG,
+DEBUG_NO_DB), synthesized here from the equivalent flags so the same
orchestrator.ParsePlusArgs path a VPI-embedded session uses gets exercised.`,
	RunE: runReplay,
}

func init() {
	ReplayCmd.Flags().StringVar(&wavePath, "wave", "", "path to the VCD waveform to replay (required)")
	ReplayCmd.Flags().StringVar(&symbolURI, "symbol", "", "symbol table URI: a .db/.json file, tcp://host:port, or ws://host/path (required unless --no-db)")
	ReplayCmd.Flags().StringVar(&clockName, "clock", "clk", "full name of the clock signal to evaluate breakpoints on")
	ReplayCmd.Flags().Uint16Var(&portFlag, "port", orchestrator.DefaultPort, "transport listen port (+DEBUG_PORT)")
	ReplayCmd.Flags().Uint16Var(&wsPortFlag, "ws-port", 0, "also listen for websocket debugger clients on this port (0 disables)")
	ReplayCmd.Flags().BoolVar(&logEnabled, "log", false, "enable info logging (+DEBUG_LOG)")
	ReplayCmd.Flags().BoolVar(&noDB, "no-db", false, "skip loading a symbol table (+DEBUG_NO_DB)")
	_ = ReplayCmd.MarkFlagRequired("wave")
}

func runReplay(cmd *cobra.Command, args []string) error {
	if wavePath == "" {
		return fmt.Errorf("--wave is required")
	}

	f, err := os.Open(wavePath)
	if err != nil {
		return fmt.Errorf("open waveform %s: %w", wavePath, err)
	}
	wave, err := replay.ParseVCD(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("parse waveform %s: %w", wavePath, err)
	}

	argv := []string{fmt.Sprintf("+DEBUG_PORT=%d", portFlag)}
	if logEnabled {
		argv = append(argv, "+DEBUG_LOG")
	}
	if noDB {
		argv = append(argv, "+DEBUG_NO_DB")
	}
	client := replay.New(wave, argv)
	startup := orchestrator.ParsePlusArgs(client.Argv())

	logger := hgdblog.New(startup.LogEnabled, os.Stderr)
	bus := transport.NewDispatcher(logger)
	defer bus.Close()

	debugger := orchestrator.New(client, scheduler.IdentityResolver, bus, logger)
	orchestrator.NewDispatcher(debugger, bus)

	if !startup.NoDB && symbolURI != "" {
		if err := debugger.LoadSymbolTable(symbolURI, nil); err != nil {
			return fmt.Errorf("load symbol table: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", startup.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", startup.Port, err)
	}
	listener := transport.NewListener(bus, logger)
	go func() {
		if err := listener.Serve(ctx, ln); err != nil {
			logger.Error("transport listener stopped", "err", err)
		}
	}()

	if wsPortFlag != 0 {
		upgrader := transport.NewWSUpgrader(bus, logger)
		srv := &http.Server{Addr: fmt.Sprintf(":%d", wsPortFlag), Handler: upgrader}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("websocket listener stopped", "err", err)
			}
		}()
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
		logger.Info("hgdb websocket server listening", "port", wsPortFlag)
	}

	logger.Info("hgdb replay server listening", "port", startup.Port, "wave", wavePath)

	go func() {
		debugger.Run(ctx)
		driveClockEdges(ctx, debugger, client, clockName)
	}()

	<-ctx.Done()
	debugger.Stop()
	return ln.Close()
}

// driveClockEdges walks the replay client's waveform forward, invoking Eval
// on every value-change of clockName - the Go analog of a live simulator's
// posedge callback firing into hgdb's eval hook (spec.md 4.7 point 3).
func driveClockEdges(ctx context.Context, debugger *orchestrator.Debugger, client *replay.Client, clockName string) {
	h, ok := client.HandleByName(clockName)
	if !ok {
		return
	}
	client.RegisterCB(rtl.CallbackValueChange, h, nil, func(data any) {
		_ = debugger.Eval(ctx)
	})
	for !debugger.Stopped() {
		if ctx.Err() != nil {
			return
		}
		if !client.Advance() {
			return
		}
	}
}
