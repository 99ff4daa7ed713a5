package bus

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/leonardotrapani/hyprlingo/internal/logging"
	"go.uber.org/zap"
)

const SockName = "control.sock"
const PidName = "hyprlingo.pid"
const ProtoVer = "1"

// Control commands, one byte followed by a newline
const (
	CmdStatus  byte = 's'
	CmdStop    byte = 'q'
	CmdVersion byte = 'v'
)

const dialTimeout = 2 * time.Second

// ~/.cache/hyprlingo, overridable with HYPRLINGO_RUNTIME_DIR
func runtimeDir() (string, error) {
	if dir := os.Getenv("HYPRLINGO_RUNTIME_DIR"); dir != "" {
		return dir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hyprlingo"), nil
}

func getSockPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SockName), nil
}

func getPidPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PidName), nil
}

// SockPath returns the control socket location.
func SockPath() (string, error) {
	return getSockPath()
}

// PidPath returns the PID file location.
func PidPath() (string, error) {
	return getPidPath()
}

type socketManager struct {
	path string
}

func (s *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(s.path) // stale socket from last run
	return net.Listen("unix", s.path)
}

func (s *socketManager) dial() (net.Conn, error) {
	return net.DialTimeout("unix", s.path, dialTimeout)
}

func (s *socketManager) send(cmd byte) (string, error) {
	c, err := s.dial()
	if err != nil {
		return "", err
	}
	defer c.Close()

	c.SetDeadline(time.Now().Add(dialTimeout))
	if _, err := c.Write([]byte{cmd, '\n'}); err != nil {
		return "", err
	}
	return bufio.NewReader(c).ReadString('\n')
}

type pidManager struct {
	path string
}

func (p *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *pidManager) remove() error {
	return os.Remove(p.path)
}

// checkExisting fails if the PID file names a live process. Stale or
// unreadable PID files are removed.
func (p *pidManager) checkExisting() error {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		_ = os.Remove(p.path)
		return nil
	}
	if !p.isProcessAlive(pid) {
		_ = os.Remove(p.path)
		return nil
	}
	return fmt.Errorf("daemon already running with PID %d", pid)
}

func (p *pidManager) isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	// EPERM means the process exists but belongs to someone else
	return err == nil || errors.Is(err, syscall.EPERM)
}

func defaultSocket() (*socketManager, error) {
	path, err := getSockPath()
	if err != nil {
		return nil, err
	}
	return &socketManager{path: path}, nil
}

func defaultPid() (*pidManager, error) {
	path, err := getPidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: path}, nil
}

func Listen() (net.Listener, error) {
	sm, err := defaultSocket()
	if err != nil {
		return nil, err
	}
	return sm.listen()
}

func Dial() (net.Conn, error) {
	sm, err := defaultSocket()
	if err != nil {
		return nil, err
	}
	return sm.dial()
}

// SendCommand sends one command to the running daemon and returns its reply line.
func SendCommand(cmd byte) (string, error) {
	sm, err := defaultSocket()
	if err != nil {
		return "", err
	}
	return sm.send(cmd)
}

func CheckExistingDaemon() error {
	pm, err := defaultPid()
	if err != nil {
		return err
	}
	return pm.checkExisting()
}

func CreatePidFile() error {
	pm, err := defaultPid()
	if err != nil {
		return err
	}
	return pm.create()
}

func RemovePidFile() error {
	pm, err := defaultPid()
	if err != nil {
		return err
	}
	return pm.remove()
}

// Handler answers one command with a single reply line (without newline).
type Handler func(cmd byte) string

// Serve answers commands on ln until ctx is done. Each connection carries one
// command.
func Serve(ctx context.Context, ln net.Listener, h Handler, log *zap.SugaredLogger) error {
	log = logging.OrNop(log).Named("bus")

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		go handle(c, h, log)
	}
}

func handle(c net.Conn, h Handler, log *zap.SugaredLogger) {
	defer c.Close()
	c.SetDeadline(time.Now().Add(dialTimeout))

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Debugw("client read error", "error", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	line = strings.TrimSpace(line)
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	fmt.Fprintf(c, "%s\n", h(line[0]))
}

// ParseReply splits "STATUS k=v k2=v2" into its kind and fields.
func ParseReply(line string) (kind string, fields map[string]string) {
	parts := strings.Fields(strings.TrimSpace(line))
	fields = make(map[string]string)
	if len(parts) == 0 {
		return "", fields
	}
	for _, p := range parts[1:] {
		if k, v, ok := strings.Cut(p, "="); ok {
			fields[k] = v
		}
	}
	return parts[0], fields
}

// FormatStatus renders a STATUS reply with keys in the given order.
func FormatStatus(keys []string, fields map[string]string) string {
	var b strings.Builder
	b.WriteString("STATUS")
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, fields[k])
	}
	return b.String()
}
