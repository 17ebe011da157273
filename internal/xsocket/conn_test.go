package xsocket

import (
	"context"
	"net"
	"os"
	"testing"
	"time"
)

func listenLoopback(t *testing.T) *Listener {
	t.Helper()
	addr := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0}
	ln, err := Listen(addr, DefaultListenOptions())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln
}

func TestDialAcceptSendAll(t *testing.T) {
	ln := listenLoopback(t)

	accepted := make(chan *Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		accepted <- c
	}()

	client, err := Dial(context.Background(), ln.Addr(), DefaultDialOptions())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	server := <-accepted
	defer server.Close()

	payload := []byte("hello over xsocket")
	if err := client.SendAll(payload); err != nil {
		t.Fatalf("SendAll: %v", err)
	}

	buf := make([]byte, len(payload))
	if err := server.RecvExact(buf); err != nil {
		t.Fatalf("RecvExact: %v", err)
	}
	if string(buf) != string(payload) {
		t.Fatalf("got %q, want %q", buf, payload)
	}
}

func TestSendVectored(t *testing.T) {
	ln := listenLoopback(t)

	accepted := make(chan *Conn, 1)
	go func() {
		c, _ := ln.Accept()
		accepted <- c
	}()

	client, err := Dial(context.Background(), ln.Addr(), DefaultDialOptions())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	server := <-accepted
	defer server.Close()

	bufs := net.Buffers{[]byte("abc"), []byte("def")}
	if err := client.SendVectored(bufs); err != nil {
		t.Fatalf("SendVectored: %v", err)
	}

	got := make([]byte, 6)
	if err := server.RecvExact(got); err != nil {
		t.Fatalf("RecvExact: %v", err)
	}
	if string(got) != "abcdef" {
		t.Fatalf("got %q, want %q", got, "abcdef")
	}
}

func TestSendFile(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "xsocket-sendfile")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	content := []byte("the quick brown fox jumps over the lazy dog")
	if _, err := tmp.Write(content); err != nil {
		t.Fatalf("Write: %v", err)
	}

	ln := listenLoopback(t)

	accepted := make(chan *Conn, 1)
	go func() {
		c, _ := ln.Accept()
		accepted <- c
	}()

	client, err := Dial(context.Background(), ln.Addr(), DefaultDialOptions())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	server := <-accepted
	defer server.Close()

	n, err := client.SendFile(tmp, 4, int64(len(content)-4))
	if err != nil {
		t.Fatalf("SendFile: %v", err)
	}
	if n != int64(len(content)-4) {
		t.Fatalf("sent %d bytes, want %d", n, len(content)-4)
	}

	got := make([]byte, len(content)-4)
	if err := server.RecvExact(got); err != nil {
		t.Fatalf("RecvExact: %v", err)
	}
	if string(got) != string(content[4:]) {
		t.Fatalf("got %q, want %q", got, content[4:])
	}
}

func TestConnCloseIdempotent(t *testing.T) {
	ln := listenLoopback(t)
	go func() {
		c, _ := ln.Accept()
		if c != nil {
			c.Close()
		}
	}()

	client, err := Dial(context.Background(), ln.Addr(), DefaultDialOptions())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			client.Close()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("concurrent Close did not return")
		}
	}
	if !client.Disposed() {
		t.Fatal("expected connection to be disposed")
	}
}
