package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"

	"github.com/cwbudde/sjconv/conv"
	"github.com/cwbudde/sjconv/host"
	"github.com/cwbudde/sjconv/internal/simhost"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func writeTempIRWav(t *testing.T, data []float32, numCh, sampleRate int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ir.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, numCh, 1)
	buf := &audio.Float32Buffer{
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: numCh},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("wav write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("wav close: %v", err)
	}
	return path
}

type result struct {
	code   int
	stdout *syncBuffer
	stderr *syncBuffer
}

// start runs the effect against h on a separate goroutine.
func start(ctx context.Context, h *simhost.Host, args ...string) (<-chan int, *syncBuffer, *syncBuffer) {
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	done := make(chan int, 1)
	go func() {
		done <- Run(ctx, Options{
			Version:   "test",
			Args:      args,
			Stdout:    stdout,
			Stderr:    stderr,
			Connector: h,
		})
	}()
	return done, stdout, stderr
}

func runToExit(t *testing.T, h *simhost.Host, args ...string) result {
	t.Helper()
	done, stdout, stderr := start(context.Background(), h, args...)
	select {
	case code := <-done:
		return result{code, stdout, stderr}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return")
	}
	return result{}
}

func waitActivated(t *testing.T, h *simhost.Host, done <-chan int) {
	t.Helper()
	select {
	case <-h.Activated():
	case code := <-done:
		t.Fatalf("Run exited early with %d", code)
	case <-time.After(5 * time.Second):
		t.Fatalf("client never activated")
	}
}

func waitExit(t *testing.T, done <-chan int) int {
	t.Helper()
	select {
	case code := <-done:
		return code
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after shutdown")
	}
	return -1
}

func TestRunProcessesUntilHostShutdown(t *testing.T) {
	ir := writeTempIRWav(t, []float32{0.5, 0.25}, 1, 48000)
	h := simhost.New(48000, 8)

	done, stdout, stderr := start(context.Background(), h, "-f", ir, "-p", "2", "--name", "conv-test")
	waitActivated(t, h, done)

	if h.ClientName() != "conv-test" {
		t.Fatalf("client name: got %q", h.ClientName())
	}
	want := []string{"Input.1", "Output.1", "Input.2", "Output.2"}
	if got := strings.Join(h.Ports(), ","); got != strings.Join(want, ",") {
		t.Fatalf("ports: %s", got)
	}

	in := make([]float32, 8)
	in[0] = 1
	h.Port("Input.2").Write(in)
	h.Cycle()
	out := h.Port("Output.2").Read(8)
	if out[0] < 0.49 || out[0] > 0.51 || out[1] < 0.24 || out[1] > 0.26 {
		t.Fatalf("unexpected convolution output: %v", out)
	}

	h.Shutdown("server stopped")
	if code := waitExit(t, done); code != 0 {
		t.Fatalf("exit code: got %d, stderr=%s", code, stderr)
	}

	for _, line := range []string{"File loaded: channels=1 sample_rate=48000", "Started", "Shut down cleanly"} {
		if !strings.Contains(stdout.String(), line) {
			t.Fatalf("stdout missing %q:\n%s", line, stdout)
		}
	}
	if !strings.Contains(stderr.String(), "reason=\"server stopped\"") {
		t.Fatalf("shutdown reason not logged:\n%s", stderr)
	}
	if h.Running() {
		t.Fatalf("client still running after exit")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ir := writeTempIRWav(t, []float32{1}, 1, 44100)
	h := simhost.New(44100, 64)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done, stdout, _ := start(ctx, h, "-f", ir)
	waitActivated(t, h, done)

	cancel()
	if code := waitExit(t, done); code != 0 {
		t.Fatalf("exit code: got %d", code)
	}
	if !strings.Contains(stdout.String(), "Shut down cleanly") {
		t.Fatalf("missing confirmation:\n%s", stdout)
	}
	if !h.Closed() {
		t.Fatalf("client not closed")
	}
}

func TestRunFailsWhenReinitFails(t *testing.T) {
	ir := writeTempIRWav(t, []float32{1, 0.5}, 1, 48000)
	h := simhost.New(48000, 32)

	done, stdout, stderr := start(context.Background(), h, "-f", ir, "-p", "1")
	waitActivated(t, h, done)

	if ctl := h.SetBufferSize(conv.MaxBlockSize + 1); ctl != host.Quit {
		t.Fatalf("expected the handler to stop the stream")
	}
	if code := waitExit(t, done); code != 1 {
		t.Fatalf("exit code: got %d", code)
	}
	if strings.Contains(stdout.String(), "Shut down cleanly") {
		t.Fatalf("failed reinit reported as clean shutdown")
	}
	if !strings.Contains(stderr.String(), "exceeds") {
		t.Fatalf("init failure not reported:\n%s", stderr)
	}
}

func TestRunSurvivesBufferSizeChange(t *testing.T) {
	ir := writeTempIRWav(t, []float32{1, 0.5}, 1, 48000)
	h := simhost.New(48000, 32)

	done, _, _ := start(context.Background(), h, "-f", ir)
	waitActivated(t, h, done)

	if ctl := h.SetBufferSize(128); ctl != host.Continue {
		t.Fatalf("reinit at 128 should succeed")
	}
	in := make([]float32, 128)
	in[0] = 1
	h.Port("Input.1").Write(in)
	h.Cycle()
	if out := h.Port("Output.1").Read(128); out[1] < 0.49 || out[1] > 0.51 {
		t.Fatalf("unexpected output after reinit: %v", out[:4])
	}

	h.Shutdown("done")
	if code := waitExit(t, done); code != 0 {
		t.Fatalf("exit code: got %d", code)
	}
}

func TestRunStartupFailures(t *testing.T) {
	mono := writeTempIRWav(t, []float32{1, 0.5}, 1, 48000)
	stereo := writeTempIRWav(t, []float32{1, 1, 0.5, 0.5}, 2, 48000)
	boom := errors.New("boom")

	tests := []struct {
		name   string
		args   []string
		setup  func(h *simhost.Host)
		stderr string
		closed bool
	}{
		{name: "missing file", args: []string{"-f", filepath.Join(t.TempDir(), "none.wav")}, stderr: "load failed"},
		{name: "stereo impulse", args: []string{"-f", stereo}, stderr: "only 1 channel"},
		{name: "zero ports", args: []string{"-f", mono, "-p", "0"}, stderr: "ports must be >= 1"},
		{name: "connect", args: []string{"-f", mono}, setup: func(h *simhost.Host) { h.ConnectErr = boom }, stderr: "couldn't create client"},
		{name: "rate mismatch", args: []string{"-f", mono}, setup: func(h *simhost.Host) {}, stderr: "must match", closed: true},
		{name: "port registration", args: []string{"-f", mono}, setup: func(h *simhost.Host) { h.RegisterErr = boom; h.RegisterFailAt = 3 }, stderr: "port registration failed", closed: true},
		{name: "activate", args: []string{"-f", mono}, setup: func(h *simhost.Host) { h.ActivateErr = boom }, stderr: "couldn't activate", closed: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rate := 48000
			if tc.name == "rate mismatch" {
				rate = 44100
			}
			h := simhost.New(rate, 64)
			if tc.setup != nil {
				tc.setup(h)
			}
			r := runToExit(t, h, tc.args...)
			if r.code != 1 {
				t.Fatalf("exit code: got %d", r.code)
			}
			if !strings.Contains(r.stderr.String(), tc.stderr) {
				t.Fatalf("stderr missing %q:\n%s", tc.stderr, r.stderr)
			}
			if strings.Contains(r.stdout.String(), "Started") {
				t.Fatalf("failed startup acknowledged as started")
			}
			if tc.closed && !h.Closed() {
				t.Fatalf("client left open after failure")
			}
		})
	}
}

func TestRunPrintsVersion(t *testing.T) {
	r := runToExit(t, simhost.New(48000, 64), "--version")
	if r.code != 0 || strings.TrimSpace(r.stdout.String()) != "sjconv test" {
		t.Fatalf("unexpected version output: code=%d out=%q", r.code, r.stdout)
	}
}

func TestRunHelpExitsZero(t *testing.T) {
	r := runToExit(t, simhost.New(48000, 64), "-h")
	if r.code != 0 {
		t.Fatalf("exit code: got %d", r.code)
	}
	if !strings.Contains(r.stderr.String(), "-ports") {
		t.Fatalf("usage not printed:\n%s", r.stderr)
	}
}
