package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ccanvas/bindings"
	"ccanvas/internal/config"
	"ccanvas/internal/testsupport"
)

const waitTimeout = 2 * time.Second

type cliTestEnv struct {
	cfg        *config.Config
	srv        *testsupport.FakeServer
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t)
	return &cliTestEnv{
		cfg:        cfg,
		srv:        testsupport.NewFakeServer(t, cfg.Sockets.RequestSocket),
		configPath: filepath.Join(t.TempDir(), "absent.toml"),
	}
}

// lockedBuffer lets a test read output while a command is still writing.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (env *cliTestEnv) command(ctx context.Context, args []string, stdout, stderr *lockedBuffer) func() error {
	cmd := newRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetContext(ctx)
	flags := []string{
		"--config", env.configPath,
		"--request-socket", env.cfg.Sockets.RequestSocket,
		"--listener-socket", env.cfg.Sockets.ListenerSocket,
	}
	cmd.SetArgs(append(flags, args...))
	return cmd.Execute
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr lockedBuffer
	err := env.command(context.Background(), args, &stdout, &stderr)()
	return stdout.String(), stderr.String(), err
}

func TestCLIDrawSendsOneRender(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "draw", "--x", "2", "--fg", "red", "hi")
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if !strings.Contains(out, "Drew 2 cells") {
		t.Fatalf("unexpected draw output: %q", out)
	}
	if n := env.srv.Count(testsupport.OfType(bindings.TagRender)); n != 1 {
		t.Fatalf("sent %d renders, want 1", n)
	}
	render := env.srv.WaitFor(testsupport.OfType(bindings.TagRender), waitTimeout).Content().(bindings.Render)
	tasks := render.Content.(bindings.RenderMultiple).Tasks
	first := tasks[0].(bindings.SetColouredChar)
	if first.X != 2 || first.C != 'h' || first.Fg != bindings.Red {
		t.Fatalf("first task = %+v", first)
	}
}

func TestCLIDrawRejectsBadColour(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "draw", "--bg", "ultraviolet", "x"); err == nil {
		t.Fatal("expected invalid colour to fail")
	}
	if n := len(env.srv.Requests()); n != 0 {
		t.Fatalf("invalid input still sent %d requests", n)
	}
}

func TestCLISpawnPrintsDiscriminator(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "spawn", "--parent", "1", "shell", "sh", "-c", "true")
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if strings.TrimSpace(out) != "1.1" {
		t.Fatalf("unexpected spawn output: %q", out)
	}
	spawn := env.srv.WaitFor(testsupport.OfType(bindings.TagSpawn), waitTimeout).Content().(bindings.Spawn)
	if spawn.Command != "sh" || len(spawn.Args) != 2 || spawn.Args[0] != "-c" {
		t.Fatalf("spawn request = %+v", spawn)
	}

	out, _, err = runCLI(t, env, "--json", "space", "new", "side")
	if err != nil {
		t.Fatalf("space new: %v", err)
	}
	var created struct {
		Discrim []uint32 `json:"discrim"`
	}
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode space output %q: %v", out, err)
	}
	if len(created.Discrim) != 2 || created.Discrim[0] != 1 {
		t.Fatalf("created space %v", created.Discrim)
	}
}

func TestCLIListenCapturesAndQuits(t *testing.T) {
	env := setupCLITestEnv(t)
	var stdout, stderr lockedBuffer
	run := env.command(context.Background(), []string{"listen", "--keys", "--capture", "--quit-key", "q"}, &stdout, &stderr)

	done := make(chan error, 1)
	go func() { done <- run() }()

	sub := env.srv.WaitFor(testsupport.OfType(bindings.TagSubscribe), waitTimeout).Content().(bindings.Subscribe)
	multi, ok := sub.Channel.(bindings.Multiple)
	if !ok || len(multi.Subs) != 1 {
		t.Fatalf("subscription = %#v", sub.Channel)
	}
	if err := env.srv.PushEvent(5, bindings.KeyEvent{Code: bindings.CharKey('a'), Modifier: bindings.ModNone}); err != nil {
		t.Fatalf("push key a: %v", err)
	}
	if err := env.srv.PushEvent(6, bindings.KeyEvent{Code: bindings.CharKey('q'), Modifier: bindings.ModNone}); err != nil {
		t.Fatalf("push key q: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("listen: %v (stderr %s)", err, stderr.String())
		}
	case <-time.After(waitTimeout):
		t.Fatal("listen did not exit on the quit key")
	}

	drop := env.srv.WaitFor(testsupport.OfType(bindings.TagDrop), waitTimeout).Content().(bindings.Drop)
	if drop.Discrim == nil || *drop.Discrim != bindings.Master() {
		t.Fatalf("quit key sent %+v, want drop of master", drop)
	}
	for _, id := range []uint32{5, 6} {
		confirm := env.srv.WaitFor(func(req bindings.Request) bool {
			c, ok := req.Content().(bindings.ConfirmReceive)
			return ok && c.ID == id
		}, waitTimeout).Content().(bindings.ConfirmReceive)
		if confirm.Pass {
			t.Fatalf("event %d should be captured", id)
		}
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two JSON lines, got %q", stdout.String())
	}
	var record struct {
		ID    uint32          `json:"id"`
		Event json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode line %q: %v", lines[0], err)
	}
	ev, err := bindings.DecodeEventVariant(record.Event)
	if err != nil || record.ID != 5 {
		t.Fatalf("line 0 = %q (%v)", lines[0], err)
	}
	if key := ev.(bindings.KeyEvent); key.Code != bindings.CharKey('a') {
		t.Fatalf("first event = %+v", key)
	}
}

func TestCLIListenStopsOnCancel(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	var stdout, stderr lockedBuffer
	run := env.command(ctx, []string{"listen", "--mouse", "--resize"}, &stdout, &stderr)

	done := make(chan error, 1)
	go func() { done <- run() }()
	env.srv.WaitFor(testsupport.OfType(bindings.TagSubscribe), waitTimeout)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("listen returned error on cancel: %v", err)
		}
	case <-time.After(waitTimeout):
		t.Fatal("listen ignored cancellation")
	}
}

func TestCLIMessageBroadcastExit(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "message", "1.3", "hello"); err != nil {
		t.Fatalf("message: %v", err)
	}
	if _, _, err := runCLI(t, env, "broadcast", "everyone"); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if _, _, err := runCLI(t, env, "cursor", "style", "steady", "bar"); err != nil {
		t.Fatalf("cursor style: %v", err)
	}
	if _, _, err := runCLI(t, env, "exit"); err != nil {
		t.Fatalf("exit: %v", err)
	}

	if n := env.srv.Count(testsupport.OfType(bindings.TagMessage)); n != 2 {
		t.Fatalf("sent %d messages, want 2", n)
	}
	direct := env.srv.WaitFor(testsupport.OfType(bindings.TagMessage), waitTimeout)
	if direct.Target() != bindings.NewDiscriminator(1, 3) {
		t.Fatalf("message target = %v", direct.Target())
	}
	style := env.srv.WaitFor(testsupport.OfType(bindings.TagRender), waitTimeout).Content().(bindings.Render)
	if style.Content != (bindings.SetCursorStyle{Style: bindings.CursorSteadyBar}) {
		t.Fatalf("cursor render = %#v", style.Content)
	}
	env.srv.WaitFor(testsupport.OfType(bindings.TagDrop), waitTimeout)
}

func TestCLIReportsMissingServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t)
	env := &cliTestEnv{cfg: cfg, configPath: filepath.Join(t.TempDir(), "absent.toml")}

	_, _, err := runCLI(t, env, "exit")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected socket not found error, got %v", err)
	}
}

func TestCLIConfigInitAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "ccanvas", "config.toml")

	out, _, err := runCLI(t, env, "config", "init", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected init output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}
	if _, _, err := runCLI(t, env, "config", "init", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	out, _, err = runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "sockets.request_socket") || !strings.Contains(out, env.cfg.Sockets.RequestSocket) {
		t.Fatalf("config show missing request socket: %q", out)
	}
}

func TestCLIReportsMetricsOnExit(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[metrics]\nenabled = true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, stderr, err := runCLI(t, env, "--json", "draw", "x")
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	want := `{"name":"ccanvas_client_requests_total","labels":{"type":"render"},"value":1}`
	if !strings.Contains(stderr, want) {
		t.Fatalf("metrics report missing %s in stderr:\n%s", want, stderr)
	}
}
