package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestConfig_Validate(t *testing.T) {
	cfg := NewConfig(".")
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultDebounce, cfg.Debounce)

	cfg.Debounce = -time.Second
	assert.EqualError(t, cfg.Validate(), "debounce cannot be negative: -1s")

	cfg = NewConfig(".")
	cfg.Exclude = []string{"[bad"}
	assert.EqualError(t, cfg.Validate(), `invalid exclude pattern "[bad"`)
}

func TestDebounce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	input := make(chan Event)
	output := make(chan Event)
	done := make(chan struct{})
	go func() {
		debounce(ctx, input, output, 50*time.Millisecond)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		input <- Event{Path: "a.md"}
	}
	input <- Event{Path: "b.md"}

	got := map[string]int{}
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-output:
			got[ev.Path]++
		case <-timeout:
			t.Fatalf("timed out, got %v", got)
		}
	}
	select {
	case ev := <-output:
		t.Fatalf("unexpected extra event %v", ev)
	case <-time.After(150 * time.Millisecond):
	}
	assert.Equal(t, map[string]int{"a.md": 1, "b.md": 1}, got)

	cancel()
	<-done
}

func TestWatcher_Run(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "agents"), 0o755))

	cfg := NewConfig(root)
	cfg.Debounce = 50 * time.Millisecond
	cfg.Exclude = []string{"drafts/**"}

	seen := make(chan string, 16)
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New(ctx, cfg, func(_ context.Context, ev Event) {
		seen <- filepath.Base(ev.Path)
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	write := func(parts ...string) {
		require.NoError(t, os.WriteFile(filepath.Join(append([]string{root}, parts...)...), []byte("x"), 0o644))
	}
	expect := func(name string) {
		t.Helper()
		select {
		case got := <-seen:
			assert.Equal(t, name, got)
		case <-time.After(3 * time.Second):
			t.Fatalf("no event for %s", name)
		}
	}

	write("node_modules", "pkg", "ignored.md")
	for i := 0; i < 3; i++ {
		write("agents", "reviewer.md")
	}
	expect("reviewer.md")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "drafts"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "skills", "new"), 0o755))
	time.Sleep(200 * time.Millisecond)
	write("drafts", "wip.md")
	write("skills", "new", "SKILL.md")
	expect("SKILL.md")

	select {
	case got := <-seen:
		t.Fatalf("unexpected event for %s", got)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
