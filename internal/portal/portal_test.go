package portal

import (
	"bytes"
	"context"
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wenbinhou/xcp/internal/transfer"
	"github.com/wenbinhou/xcp/internal/xlog"
	"github.com/wenbinhou/xcp/internal/xsocket"
)

func TestClientServerPushRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	payload := make([]byte, 300*1024)
	if _, err := rand.Read(payload); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	srcPath := filepath.Join(srcDir, "payload.bin")
	if err := os.WriteFile(srcPath, payload, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	portalLn, err := xsocket.Listen(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}, xsocket.DefaultListenOptions())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	const channelMultiplicity = 3
	server := NewServer(portalLn, channelMultiplicity, nil, xlog.Nop)
	go server.Run()
	defer server.Close()

	req := Request{
		IsFromServerToClient: false,
		ServerPath:           filepath.Join(dstDir, "payload.bin"),
		LocalPath:            srcPath,
		Recursive:            false,
		BlockSize:            transfer.MinBlockSize,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := Run(ctx, []*net.TCPAddr{portalLn.Addr()}, req, nil, xlog.Nop)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer client.Close()

	if got := client.Result(); got != ResultSucceeded {
		t.Fatalf("result = %s, want succeeded", got)
	}

	gotPath := filepath.Join(dstDir, "payload.bin")
	got, err := os.ReadFile(gotPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("destination content mismatch: got %d bytes, want %d bytes", len(got), len(payload))
	}
}

func TestClientServerPullRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	payload := make([]byte, 150*1024)
	if _, err := rand.Read(payload); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	srcPath := filepath.Join(srcDir, "remote.bin")
	if err := os.WriteFile(srcPath, payload, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	portalLn, err := xsocket.Listen(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}, xsocket.DefaultListenOptions())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	const channelMultiplicity = 2
	server := NewServer(portalLn, channelMultiplicity, nil, xlog.Nop)
	go server.Run()
	defer server.Close()

	dstPath := filepath.Join(dstDir, "local.bin")
	req := Request{
		IsFromServerToClient: true,
		ServerPath:           srcPath,
		LocalPath:            dstPath,
		BlockSize:            transfer.MinBlockSize,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := Run(ctx, []*net.TCPAddr{portalLn.Addr()}, req, nil, xlog.Nop)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer client.Close()

	if got := client.Result(); got != ResultSucceeded {
		t.Fatalf("result = %s, want succeeded", got)
	}

	got, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("destination content mismatch: got %d bytes, want %d bytes", len(got), len(payload))
	}
}
