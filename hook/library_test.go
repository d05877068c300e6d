// SPDX-License-Identifier: GPL-3.0-or-later

package hook

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/loonaro/sandbox/ipc"
	"github.com/loonaro/sandbox/telemetry"
)

// fakeResolver resolves every (library, function) to a distinct,
// deterministic non-zero address so installed hooks never collide in the
// process-wide trampoline registry across test cases.
type fakeResolver struct {
	mu   sync.Mutex
	next Address
}

func (r *fakeResolver) Resolve(library, function string) (Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next += 0x100
	return r.next, nil
}

// fakePatcher never touches real memory; it just records installs so a
// test can assert Detach restores everything.
type fakePatcher struct {
	mu        sync.Mutex
	installed map[Address]bool
}

func newFakePatcher() *fakePatcher {
	return &fakePatcher{installed: map[Address]bool{}}
}

func (p *fakePatcher) Install(target, detour Address) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.installed[target] = true
	return []byte{0xDE, 0xAD}, nil
}

func (p *fakePatcher) Restore(target Address, saved []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.installed, target)
	return nil
}

func (p *fakePatcher) installedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.installed)
}

func startFakeAgent(t *testing.T, cfg ipc.HookConfig) (socketPath string, stop func()) {
	t.Helper()
	dir := t.TempDir()
	socketPath = filepath.Join(dir, "agent.sock")

	srv := ipc.NewServer(socketPath, func(ipc.Handshake) ipc.HookConfig {
		return cfg
	}, func(ctx context.Context, pid int, ev ipc.EventEnvelope) {
	}, telemetry.DefaultSLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx)
		close(done)
	}()

	// Give the listener a moment to bind before the test dials it.
	for i := 0; i < 100; i++ {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		time.Sleep(time.Millisecond)
	}

	return socketPath, func() {
		cancel()
		<-done
	}
}

func TestLibraryAttachInstallsConfiguredCategoriesAndDetachDisablesAll(t *testing.T) {
	cfg := ipc.HookConfig{
		Categories: []string{"memory", "crypto"},
		GenericHooks: []ipc.GenericHookSpec{
			{Library: "shlwapi.dll", Function: "PathIsDirectoryW", Arity: 1},
		},
	}
	socketPath, stop := startFakeAgent(t, cfg)
	defer stop()

	resolver := &fakeResolver{}
	patcher := newFakePatcher()
	lib := &Library{Resolver: resolver, Patcher: patcher, Logger: telemetry.DefaultSLogger()}

	if err := lib.Attach(socketPath, 4242, "sample.exe"); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	wantInstalled := len(catalog["memory"]) + len(catalog["crypto"]) + len(cfg.GenericHooks)
	if got := patcher.installedCount(); got != wantInstalled {
		t.Fatalf("got %d installed hooks, want %d", got, wantInstalled)
	}

	if err := lib.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if got := patcher.installedCount(); got != 0 {
		t.Fatalf("got %d hooks still installed after Detach, want 0", got)
	}
}

func TestLibraryAttachSkipsFailedInstallsAndProceeds(t *testing.T) {
	cfg := ipc.HookConfig{Categories: []string{"memory"}}
	socketPath, stop := startFakeAgent(t, cfg)
	defer stop()

	lib := &Library{
		Resolver: resolverFunc(func(library, function string) (Address, error) {
			return 0, errUnresolvable
		}),
		Patcher: newFakePatcher(),
		Logger:  telemetry.DefaultSLogger(),
	}

	// Attach must not fail outright just because every hook install fails;
	// failures are logged/emitted as status events and skipped.
	if err := lib.Attach(socketPath, 1, "sample.exe"); err != nil {
		t.Fatalf("Attach returned error on install failures: %v", err)
	}
}

type resolverFunc func(library, function string) (Address, error)

func (f resolverFunc) Resolve(library, function string) (Address, error) { return f(library, function) }

var errUnresolvable = &resolveError{"unresolvable in test"}

type resolveError struct{ msg string }

func (e *resolveError) Error() string { return e.msg }
