package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/agenthost/agenthost/internal/logging"
)

// freeAddr reserves a loopback port and releases it for the server.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

// waitForServer polls the health endpoint until the listener is up.
func waitForServer(t *testing.T, base string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server at %s never became healthy", base)
}

func TestServer(t *testing.T) {
	// The collector registers with the default registry exactly once per
	// process, which is what the metrics endpoint serves.
	NewCollector("test", "dev")

	addr := freeAddr(t)
	srv := NewServer(addr, logging.NewLoggerWithWriter(&bytes.Buffer{}, "json", "info"))
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	base := "http://" + addr
	waitForServer(t, base)

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if string(body) != "ok\n" {
			t.Errorf("body = %q, want ok", body)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(base + "/metrics")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}

		decoder := expfmt.NewDecoder(resp.Body, expfmt.NewFormat(expfmt.TypeTextPlain))
		families := make(map[string]*dto.MetricFamily)
		for {
			var mf dto.MetricFamily
			if err := decoder.Decode(&mf); err != nil {
				if err == io.EOF {
					break
				}
				t.Fatalf("decode metrics: %v", err)
			}
			families[mf.GetName()] = &mf
		}

		if _, ok := families["agenthost_info"]; !ok {
			t.Errorf("agenthost_info not exported, got %d families", len(families))
		}
		if _, ok := families["agenthost_live_processes"]; !ok {
			t.Error("agenthost_live_processes not exported")
		}
	})
}

func TestServer_ShutdownStopsListener(t *testing.T) {
	addr := freeAddr(t)
	srv := NewServer(addr, logging.NewLoggerWithWriter(&bytes.Buffer{}, "json", "info"))
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}

	base := fmt.Sprintf("http://%s", addr)
	waitForServer(t, base)

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := http.Get(base + "/healthz"); err == nil {
		t.Error("listener still accepting after Shutdown")
	}
}
