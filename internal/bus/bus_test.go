package bus

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestPidManagerBasics(t *testing.T) {
	tempDir := t.TempDir()

	testPidManager := &pidManager{
		path: filepath.Join(tempDir, PidName),
	}

	t.Run("create and remove PID file", func(t *testing.T) {
		err := testPidManager.create()
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}

		pidData, err := os.ReadFile(testPidManager.path)
		if err != nil {
			t.Fatalf("failed to read PID file: %v", err)
		}

		expectedPid := strconv.Itoa(os.Getpid())
		if string(pidData) != expectedPid {
			t.Errorf("PID file contains %q, expected %q", string(pidData), expectedPid)
		}

		err = testPidManager.remove()
		if err != nil {
			t.Fatalf("remove failed: %v", err)
		}

		if _, err := os.Stat(testPidManager.path); !os.IsNotExist(err) {
			t.Error("PID file should not exist after removal")
		}
	})

	t.Run("checkExisting with no PID file", func(t *testing.T) {
		if err := testPidManager.checkExisting(); err != nil {
			t.Errorf("checkExisting should not error when no PID file exists: %v", err)
		}
	})

	t.Run("checkExisting with current process", func(t *testing.T) {
		if err := testPidManager.create(); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		defer testPidManager.remove()

		if err := testPidManager.checkExisting(); err == nil {
			t.Error("checkExisting should fail when process is running")
		}
	})

	t.Run("checkExisting with stale PID file", func(t *testing.T) {
		if err := os.WriteFile(testPidManager.path, []byte("99999999"), 0o600); err != nil {
			t.Fatalf("failed to write stale PID file: %v", err)
		}

		if err := testPidManager.checkExisting(); err != nil {
			t.Errorf("checkExisting should succeed with stale PID: %v", err)
		}
		if _, err := os.Stat(testPidManager.path); !os.IsNotExist(err) {
			t.Error("stale PID file should be removed")
		}
	})

	t.Run("checkExisting with invalid PID file", func(t *testing.T) {
		if err := os.WriteFile(testPidManager.path, []byte("invalid"), 0o600); err != nil {
			t.Fatalf("failed to write invalid PID file: %v", err)
		}

		if err := testPidManager.checkExisting(); err != nil {
			t.Errorf("checkExisting should succeed with invalid PID: %v", err)
		}
		if _, err := os.Stat(testPidManager.path); !os.IsNotExist(err) {
			t.Error("invalid PID file should be removed")
		}
	})
}

func TestIsProcessAlive(t *testing.T) {
	pm := &pidManager{}

	t.Run("current process", func(t *testing.T) {
		if !pm.isProcessAlive(os.Getpid()) {
			t.Error("current process should be alive")
		}
	})

	t.Run("non-existent process", func(t *testing.T) {
		if pm.isProcessAlive(99999999) {
			t.Error("process 99999999 should not be alive")
		}
	})
}

func TestSocketManagerBasics(t *testing.T) {
	tempDir := t.TempDir()
	testSocketManager := &socketManager{
		path: filepath.Join(tempDir, SockName),
	}

	t.Run("dial without listener", func(t *testing.T) {
		if _, err := testSocketManager.dial(); err == nil {
			t.Error("dial should fail without listener")
		}
	})

	t.Run("listen replaces stale socket", func(t *testing.T) {
		if err := os.WriteFile(testSocketManager.path, []byte("stale"), 0o600); err != nil {
			t.Fatalf("failed to write stale socket: %v", err)
		}
		listener, err := testSocketManager.listen()
		if err != nil {
			t.Fatalf("listen failed: %v", err)
		}
		listener.Close()
	})
}

func startServe(t *testing.T, h Handler) (*socketManager, context.CancelFunc, chan error) {
	t.Helper()
	sm := &socketManager{path: filepath.Join(t.TempDir(), SockName)}
	ln, err := sm.listen()
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- Serve(ctx, ln, h, nil) }()
	return sm, cancel, errCh
}

func TestServe(t *testing.T) {
	got := make(chan byte, 4)
	sm, cancel, errCh := startServe(t, func(cmd byte) string {
		got <- cmd
		switch cmd {
		case CmdStatus:
			return FormatStatus([]string{"connections", "uptime"}, map[string]string{"connections": "2", "uptime": "5s"})
		case CmdVersion:
			return "STATUS proto=" + ProtoVer
		default:
			return "ERR unknown"
		}
	})

	resp, err := sm.send(CmdStatus)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if resp != "STATUS connections=2 uptime=5s\n" {
		t.Errorf("unexpected status reply %q", resp)
	}

	kind, fields := ParseReply(resp)
	if kind != "STATUS" || fields["connections"] != "2" || fields["uptime"] != "5s" {
		t.Errorf("ParseReply = %q %v", kind, fields)
	}

	resp, err = sm.send(CmdVersion)
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if resp != "STATUS proto="+ProtoVer+"\n" {
		t.Errorf("unexpected version reply %q", resp)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve returned %v after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	close(got)
	var seen []byte
	for c := range got {
		seen = append(seen, c)
	}
	if string(seen) != "sv" {
		t.Errorf("handler saw %q", seen)
	}
}

func TestServeEmptyLine(t *testing.T) {
	sm, cancel, _ := startServe(t, func(byte) string { return "OK" })
	defer cancel()

	c, err := sm.dial()
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer c.Close()
	if _, err := c.Write([]byte("\n")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	buf := make([]byte, 64)
	c.SetReadDeadline(time.Now().Add(time.Second))
	n, err := c.Read(buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(buf[:n]) != "ERR empty\n" {
		t.Errorf("unexpected reply %q", buf[:n])
	}
}

func TestPathFunctions(t *testing.T) {
	t.Setenv("HYPRLINGO_RUNTIME_DIR", "")

	path, err := SockPath()
	if err != nil {
		t.Fatalf("SockPath failed: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Error("SockPath should return absolute path")
	}
	if filepath.Base(path) != SockName {
		t.Errorf("SockPath should end with %s, got %s", SockName, filepath.Base(path))
	}

	path, err = PidPath()
	if err != nil {
		t.Fatalf("PidPath failed: %v", err)
	}
	if filepath.Base(path) != PidName {
		t.Errorf("PidPath should end with %s, got %s", PidName, filepath.Base(path))
	}
}

func TestPublicAPIWithRuntimeDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HYPRLINGO_RUNTIME_DIR", dir)

	if err := CheckExistingDaemon(); err != nil {
		t.Errorf("CheckExistingDaemon with no daemon: %v", err)
	}
	if err := CreatePidFile(); err != nil {
		t.Fatalf("CreatePidFile failed: %v", err)
	}
	if err := CheckExistingDaemon(); err == nil {
		t.Error("CheckExistingDaemon should fail while the PID file names this process")
	}
	if err := RemovePidFile(); err != nil {
		t.Errorf("RemovePidFile failed: %v", err)
	}

	ln, err := Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()
	if ln.Addr().(*net.UnixAddr).Name != filepath.Join(dir, SockName) {
		t.Errorf("listening on %s", ln.Addr())
	}
}
