package transfer

import (
	"bytes"
	"context"
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wenbinhou/xcp/internal/xsocket"
)

func loopbackPair(t *testing.T) (a, b *xsocket.Conn) {
	t.Helper()

	ln, err := xsocket.Listen(&net.TCPAddr{IP: net.ParseIP("127.0.0.1")}, xsocket.DefaultListenOptions())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan *xsocket.Conn, 1)
	acceptErr := make(chan error, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- c
	}()

	client, err := xsocket.Dial(context.Background(), ln.Addr(), xsocket.DefaultDialOptions())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	select {
	case server := <-accepted:
		return client, server
	case err := <-acceptErr:
		t.Fatalf("Accept: %v", err)
		return nil, nil
	}
}

// TestSingleFileMultiChannelRoundTrip exercises the partition and byte
// equality invariants (spec.md §8 properties 1-2) across N=3 channels
// feeding a single file, with a fixed (non-adaptive) block size small
// enough that every channel claims several blocks.
func TestSingleFileMultiChannelRoundTrip(t *testing.T) {
	const channels = 3
	const fileSize = 777 * 1024 // not a clean multiple of the block size

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "payload.bin")
	content := make([]byte, fileSize)
	if _, err := rand.Read(content); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	if err := os.WriteFile(srcPath, content, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	destDir := filepath.Join(dir, "dest")
	if err := os.Mkdir(destDir, 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	destPath := filepath.Join(destDir, "copy.bin")

	src, err := NewSource(srcPath, 64*1024, false, nil)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	defer src.Close()

	dst := NewDestination(destPath)
	if err := dst.InitTransferInfo(src.Manifest(), channels, nil); err != nil {
		t.Fatalf("InitTransferInfo: %v", err)
	}
	defer dst.Close()

	var wg sync.WaitGroup
	for i := 0; i < channels; i++ {
		sendSide, recvSide := loopbackPair(t)
		wg.Add(2)
		go func() {
			defer wg.Done()
			defer sendSide.Close()
			if err := src.InvokeChannel(sendSide); err != nil {
				t.Errorf("source InvokeChannel: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			defer recvSide.Close()
			if err := dst.InvokeChannel(recvSide); err != nil {
				t.Errorf("destination InvokeChannel: %v", err)
			}
		}()
	}
	wg.Wait()

	portalSrcSide, portalDstSide := loopbackPair(t)
	defer portalSrcSide.Close()
	defer portalDstSide.Close()

	wg.Add(2)
	var srcPortalErr, dstPortalErr error
	go func() {
		defer wg.Done()
		dstPortalErr = dst.InvokePortal(portalDstSide)
	}()
	go func() {
		defer wg.Done()
		srcPortalErr = src.InvokePortal(portalSrcSide)
	}()
	wg.Wait()

	if dstPortalErr != nil {
		t.Fatalf("destination InvokePortal: %v", dstPortalErr)
	}
	if srcPortalErr != nil {
		t.Fatalf("source InvokePortal: %v", srcPortalErr)
	}

	got, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("ReadFile destination: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("destination content mismatch: got %d bytes, want %d bytes", len(got), len(content))
	}
	if src.TransferredSize() != uint64(fileSize) {
		t.Errorf("source TransferredSize = %d, want %d", src.TransferredSize(), fileSize)
	}
	if dst.TransferredSize() != uint64(fileSize) {
		t.Errorf("destination TransferredSize = %d, want %d", dst.TransferredSize(), fileSize)
	}
}

// TestEmptyFileRoundTrip covers a zero-byte file (part of the directory
// scenario in spec.md §8 S3): it must be created with the right
// permissions and never touched by the channel loop.
func TestEmptyFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "empty.bin")
	if err := os.WriteFile(srcPath, nil, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	destPath := filepath.Join(dir, "dest", "empty.bin")
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	src, err := NewSource(srcPath, 0, false, nil)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	defer src.Close()

	dst := NewDestination(destPath)
	if err := dst.InitTransferInfo(src.Manifest(), 1, nil); err != nil {
		t.Fatalf("InitTransferInfo: %v", err)
	}
	defer dst.Close()

	sendSide, recvSide := loopbackPair(t)
	defer sendSide.Close()
	defer recvSide.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := src.InvokeChannel(sendSide); err != nil {
			t.Errorf("source InvokeChannel: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := dst.InvokeChannel(recvSide); err != nil {
			t.Errorf("destination InvokeChannel: %v", err)
		}
	}()
	wg.Wait()

	fi, err := os.Stat(destPath)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if fi.Size() != 0 {
		t.Errorf("destination size = %d, want 0", fi.Size())
	}
	if fi.Mode().Perm() != 0600 {
		t.Errorf("destination permissions = %o, want 600", fi.Mode().Perm())
	}
}
