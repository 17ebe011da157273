package wire

import (
	"bytes"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	opt := "hello"
	w := NewWriter()
	w.Bool(true).Uint32(42).Uint64(1 << 40).Int64(-7).String("abc").OptionalString(&opt).OptionalString(nil)
	w.SequenceHeader(2)
	w.String("x")
	w.String("y")

	r := NewReader(w.Payload())

	if v, err := r.Bool(); err != nil || v != true {
		t.Fatalf("Bool: %v, %v", v, err)
	}
	if v, err := r.Uint32(); err != nil || v != 42 {
		t.Fatalf("Uint32: %v, %v", v, err)
	}
	if v, err := r.Uint64(); err != nil || v != 1<<40 {
		t.Fatalf("Uint64: %v, %v", v, err)
	}
	if v, err := r.Int64(); err != nil || v != -7 {
		t.Fatalf("Int64: %v, %v", v, err)
	}
	if v, err := r.String(); err != nil || v != "abc" {
		t.Fatalf("String: %v, %v", v, err)
	}
	if v, err := r.OptionalString(); err != nil || v == nil || *v != "hello" {
		t.Fatalf("OptionalString(present): %v, %v", v, err)
	}
	if v, err := r.OptionalString(); err != nil || v != nil {
		t.Fatalf("OptionalString(absent): %v, %v", v, err)
	}
	n, err := r.SequenceHeader()
	if err != nil || n != 2 {
		t.Fatalf("SequenceHeader: %v, %v", n, err)
	}
	for _, want := range []string{"x", "y"} {
		if v, err := r.String(); err != nil || v != want {
			t.Fatalf("sequence element: %v, %v", v, err)
		}
	}
	if !r.Done() {
		t.Fatal("expected reader to be exhausted")
	}
}

func TestReaderShortPayload(t *testing.T) {
	r := NewReader([]byte{0, 0, 0})
	if _, err := r.Uint32(); err == nil {
		t.Fatal("expected error reading uint32 from 3-byte buffer")
	}
}

func TestReaderRejectsOversizedLength(t *testing.T) {
	w := NewWriter()
	w.Uint32(MaxLength + 1)
	r := NewReader(w.Payload())
	if _, err := r.Bytes(); err == nil {
		t.Fatal("expected Bytes to reject a length above MaxLength")
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("payload-bytes")

	if err := WriteFrame(&buf, MsgServerInformation, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	gotType, gotPayload, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if gotType != MsgServerInformation {
		t.Fatalf("type = %d, want %d", gotType, MsgServerInformation)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Fatalf("payload = %q, want %q", gotPayload, payload)
	}
}

func TestNegotiate(t *testing.T) {
	cases := []struct {
		name                               string
		sMin, sMax, cMin, cMax, wantResult uint16
	}{
		{"exact match", 1, 1, 1, 1, 1},
		{"client offers wider range", 1, 1, 1, 5, 1},
		{"server offers wider range", 1, 5, 3, 3, 3},
		{"disjoint ranges", 1, 1, 2, 2, VersionInvalid},
		{"malformed client range", 1, 5, 3, 1, VersionInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Negotiate(tc.sMin, tc.sMax, tc.cMin, tc.cMax)
			if got != tc.wantResult {
				t.Fatalf("Negotiate(%d,%d,%d,%d) = %d, want %d", tc.sMin, tc.sMax, tc.cMin, tc.cMax, got, tc.wantResult)
			}
		})
	}
}

func TestBlockHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	h := BlockHeader{FileIndex: 3, Offset: 1 << 33, BlockSize: 1 << 20}

	if err := WriteBlockHeader(&buf, h); err != nil {
		t.Fatalf("WriteBlockHeader: %v", err)
	}
	got, err := ReadBlockHeader(&buf)
	if err != nil {
		t.Fatalf("ReadBlockHeader: %v", err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
	if got.IsEndOfStream() {
		t.Fatal("ordinary block header reported as end-of-stream")
	}
}

func TestEndOfStreamSentinel(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBlockHeader(&buf, EndOfStream()); err != nil {
		t.Fatalf("WriteBlockHeader: %v", err)
	}
	got, err := ReadBlockHeader(&buf)
	if err != nil {
		t.Fatalf("ReadBlockHeader: %v", err)
	}
	if !got.IsEndOfStream() {
		t.Fatal("expected sentinel header to report IsEndOfStream")
	}
}
