package api

import (
	"testing"

	"reelcut/internal/testsupport"
)

// Uploads and downloads stream raw video for minutes, so the server must not
// cap whole-request read or write time; only header reads get a deadline.
func TestServerTimeoutsAllowStreamingBodies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv := NewServer(ServerConfig{Config: cfg})

	if srv.httpServer.ReadTimeout != 0 {
		t.Fatalf("ReadTimeout = %v, want 0 so slow uploads are not cut off", srv.httpServer.ReadTimeout)
	}
	if srv.httpServer.WriteTimeout != 0 {
		t.Fatalf("WriteTimeout = %v, want 0 so long downloads are not cut off", srv.httpServer.WriteTimeout)
	}
	if srv.httpServer.ReadHeaderTimeout <= 0 {
		t.Fatalf("ReadHeaderTimeout = %v, want a positive bound", srv.httpServer.ReadHeaderTimeout)
	}
}
