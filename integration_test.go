package etpu_test

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/etpu-project/etpu-go/pkg/accel"
	"github.com/etpu-project/etpu-go/pkg/bridge"
	"github.com/etpu-project/etpu-go/pkg/discovery"
	"github.com/etpu-project/etpu-go/pkg/log"
	"github.com/etpu-project/etpu-go/pkg/soc"
)

func startBridge(t *testing.T, s *soc.SoC, logger log.Logger) *bridge.Server {
	t.Helper()
	server, err := bridge.NewServer(bridge.ServerConfig{
		Address: "127.0.0.1:0",
		Target:  s.Master(),
		Info:    bridge.Describe(s),
		Logger:  logger,
	})
	if err != nil {
		t.Fatalf("Failed to create bridge: %v", err)
	}
	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start bridge: %v", err)
	}
	t.Cleanup(func() { server.Stop() })
	return server
}

// TestE2E_ReadWrite drives the accelerator through the bridge and checks the
// recorded trace.
func TestE2E_ReadWrite(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "session"+log.FileExt)
	trace, err := log.NewFileLogger(tracePath)
	if err != nil {
		t.Fatalf("Failed to open trace: %v", err)
	}

	s, err := soc.Build(soc.DefaultConfig(),
		soc.WithCore(accel.NewRegisterCore(2)),
		soc.WithTrace(trace),
		soc.WithSessionID("e2e"),
	)
	if err != nil {
		t.Fatalf("Failed to build SoC: %v", err)
	}
	server := startBridge(t, s, trace)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := bridge.DialRetry(ctx, server.Addr().String(), nil, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	info, err := client.Info()
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.BuildID != s.BuildID().String() {
		t.Errorf("BuildID mismatch: expected %s, got %s", s.BuildID(), info.BuildID)
	}

	const addr = 0x30000000 + accel.StreamBase
	if err := client.Write(addr, 0xCAFEF00D); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := client.Read(addr)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got != 0xCAFEF00D {
		t.Errorf("Read mismatch: expected 0xcafef00d, got 0x%08x", got)
	}

	if _, err := client.Read(0x70000000); !errors.Is(err, soc.ErrBusError) {
		t.Errorf("Unmapped read: expected ErrBusError, got %v", err)
	}

	server.Stop()
	if err := trace.Close(); err != nil {
		t.Fatalf("Failed to close trace: %v", err)
	}

	reader, err := log.NewFilteredReader(tracePath, log.Filter{Layer: ptr(log.LayerBus), Slave: soc.RegionAccel})
	if err != nil {
		t.Fatalf("Failed to open trace: %v", err)
	}
	defer reader.Close()
	events, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}

	var writes, reads int
	for _, e := range events {
		if e.Transaction == nil {
			continue
		}
		if e.SessionID != "e2e" {
			t.Errorf("SessionID mismatch: expected e2e, got %s", e.SessionID)
		}
		if e.Transaction.Write {
			writes++
		} else {
			reads++
		}
	}
	if writes != 1 || reads != 1 {
		t.Errorf("Expected 1 write and 1 read on the accelerator, got %d and %d", writes, reads)
	}
}

// TestE2E_Discovery tests that a host can find a bridge via mDNS.
func TestE2E_Discovery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	s, err := soc.Build(soc.DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to build SoC: %v", err)
	}
	server := startBridge(t, s, nil)
	_, portStr, _ := net.SplitHostPort(server.Addr().String())
	port, _ := strconv.Atoi(portStr)

	advertiser := discovery.NewAdvertiser(discovery.AdvertiserConfig{})
	if err := advertiser.Advertise(discovery.FromInfo(bridge.Describe(s), uint16(port))); err != nil {
		t.Fatalf("Failed to advertise: %v", err)
	}
	defer advertiser.Stop()

	// Give mDNS time to propagate
	time.Sleep(500 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	found, err := discovery.NewBrowser(discovery.BrowserConfig{}).Find(ctx, s.BuildID().String())
	if err != nil {
		t.Fatalf("Failed to find bridge: %v", err)
	}
	if found.Port != uint16(port) {
		t.Errorf("Port mismatch: expected %d, got %d", port, found.Port)
	}
	if len(found.Regions) != s.Regions().Len() {
		t.Errorf("Region count mismatch: expected %d, got %d", s.Regions().Len(), len(found.Regions))
	}
}

func ptr[T any](v T) *T { return &v }
