package wire

import "testing"

func TestServerInformationRoundTrip(t *testing.T) {
	want := ServerInformation{ServerChannels: []ChannelEndpoint{
		{Address: "10.0.0.1:62582", Multiplicity: 8},
		{Address: "10.0.0.1:62583", Multiplicity: 4},
	}}

	got, err := DecodeServerInformation(want.Encode())
	if err != nil {
		t.Fatalf("DecodeServerInformation: %v", err)
	}
	if len(got.ServerChannels) != len(want.ServerChannels) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want.ServerChannels {
		if got.ServerChannels[i] != want.ServerChannels[i] {
			t.Fatalf("server_channels[%d] = %+v, want %+v", i, got.ServerChannels[i], want.ServerChannels[i])
		}
	}
}

func TestClientTransferRequestRoundTripPush(t *testing.T) {
	want := ClientTransferRequest{
		IsFromServerToClient: false,
		ServerPath:           "/dest",
		TransferBlockSize:    0,
		IsRecursive:          true,
		User:                 UserIdentity{UserName: "alice"},
		TransferInfo: &BasicTransferInfo{
			SourceIsDirectory: true,
			DirsInfo:          []BasicDirectoryInfo{{RelativePath: "src", PosixPerm: 0o755}},
			FilesInfo:         []BasicFileInfo{{RelativePath: "src/a.txt", Size: 3, PosixPerm: 0o644}},
		},
	}

	got, err := DecodeClientTransferRequest(want.Encode())
	if err != nil {
		t.Fatalf("DecodeClientTransferRequest: %v", err)
	}
	if got.ServerPath != want.ServerPath || got.IsRecursive != want.IsRecursive || got.User.UserName != want.User.UserName {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if got.TransferInfo == nil {
		t.Fatal("expected transfer_info to be present for a push request")
	}
	if got.TransferInfo.TotalBytes() != 3 {
		t.Fatalf("TotalBytes = %d, want 3", got.TransferInfo.TotalBytes())
	}
}

func TestClientTransferRequestRoundTripPull(t *testing.T) {
	want := ClientTransferRequest{
		IsFromServerToClient: true,
		ServerPath:           "/src",
		IsRecursive:          true,
	}

	got, err := DecodeClientTransferRequest(want.Encode())
	if err != nil {
		t.Fatalf("DecodeClientTransferRequest: %v", err)
	}
	if got.TransferInfo != nil {
		t.Fatal("expected transfer_info to be absent for a pull request")
	}
}

func TestServerTransferResponseRejection(t *testing.T) {
	want := ServerTransferResponse{ErrorCode: 2, ErrorMessage: "destination path escapes server root"}

	got, err := DecodeServerTransferResponse(want.Encode())
	if err != nil {
		t.Fatalf("DecodeServerTransferResponse: %v", err)
	}
	if got.Accepted() {
		t.Fatal("expected Accepted() == false")
	}
	if got.ErrorMessage != want.ErrorMessage {
		t.Fatalf("ErrorMessage = %q, want %q", got.ErrorMessage, want.ErrorMessage)
	}
}

func TestServerTransferResponseAcceptance(t *testing.T) {
	want := ServerTransferResponse{
		ErrorCode: 0,
		TransferInfo: &BasicTransferInfo{
			FilesInfo: []BasicFileInfo{{RelativePath: "a.txt", Size: 1 << 20}},
		},
	}

	got, err := DecodeServerTransferResponse(want.Encode())
	if err != nil {
		t.Fatalf("DecodeServerTransferResponse: %v", err)
	}
	if !got.Accepted() {
		t.Fatal("expected Accepted() == true")
	}
	if got.TransferInfo == nil || got.TransferInfo.TotalBytes() != 1<<20 {
		t.Fatalf("got %+v", got.TransferInfo)
	}
}

func TestTransferDestinationFinishedRoundTrip(t *testing.T) {
	want := TransferDestinationFinished{ErrorCode: 0}

	got, err := DecodeTransferDestinationFinished(want.Encode())
	if err != nil {
		t.Fatalf("DecodeTransferDestinationFinished: %v", err)
	}
	if !got.Success() {
		t.Fatal("expected Success() == true")
	}
}
