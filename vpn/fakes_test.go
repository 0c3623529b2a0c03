package vpn

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/yllada/wg-manager/common"
	"github.com/yllada/wg-manager/history"
)

// fakeRunner answers commands from a table keyed by "binary arg1 arg2...".
type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string][]string
	errs    map[string]error
	calls   []string
	stdin   []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string][]string{}, errs: map[string]error{}}
}

// on queues outputs for a command. The last output repeats.
func (f *fakeRunner) on(cmd string, outputs ...string) *fakeRunner {
	f.outputs[cmd] = outputs
	return f
}

func (f *fakeRunner) fail(cmd string, err error) *fakeRunner {
	f.errs[cmd] = err
	return f
}

func (f *fakeRunner) run(ctx context.Context, stdin, binary string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cmd := strings.Join(append([]string{binary}, args...), " ")
	f.calls = append(f.calls, cmd)
	f.stdin = append(f.stdin, stdin)

	if err := f.errs[cmd]; err != nil {
		return nil, err
	}
	outs, ok := f.outputs[cmd]
	if !ok {
		return nil, fmt.Errorf("%w: unexpected command %q", common.ErrExternalTool, cmd)
	}
	out := outs[0]
	if len(outs) > 1 {
		f.outputs[cmd] = outs[1:]
	}
	return []byte(out), nil
}

func (f *fakeRunner) count(cmd string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == cmd {
			n++
		}
	}
	return n
}

// fakeKeyGen hands out numbered keys.
type fakeKeyGen struct {
	n   int
	err error
}

func (g *fakeKeyGen) GenerateKeyPair(ctx context.Context) (string, string, error) {
	if g.err != nil {
		return "", "", g.err
	}
	g.n++
	return fmt.Sprintf("PRIV%d", g.n), fmt.Sprintf("PUB%d", g.n), nil
}

func (g *fakeKeyGen) DerivePublicKey(ctx context.Context, priv string) (string, error) {
	return "derived(" + priv + ")", nil
}

type fakeService struct {
	status  common.ServiceStatus
	actions []common.ServiceAction
	err     error
}

func (s *fakeService) Status(ctx context.Context, iface string) common.ServiceStatus {
	return s.status
}

func (s *fakeService) Control(ctx context.Context, iface string, action common.ServiceAction) error {
	s.actions = append(s.actions, action)
	return s.err
}

type fakeStats struct {
	mu    sync.Mutex
	stats [][]common.PeerStats
	err   error
	calls int
}

func (s *fakeStats) LiveStats(ctx context.Context, iface string) ([]common.PeerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.stats) == 0 {
		return nil, nil
	}
	out := s.stats[0]
	if len(s.stats) > 1 {
		s.stats = s.stats[1:]
	}
	return out, nil
}

type memKeyStore map[string]string

func (m memKeyStore) Store(pub, priv string) error { m[pub] = priv; return nil }

func (m memKeyStore) Get(pub string) (string, error) {
	priv, ok := m[pub]
	if !ok {
		return "", common.ErrKeyNotFound
	}
	return priv, nil
}

func (m memKeyStore) Delete(pub string) error { delete(m, pub); return nil }

type memHistory struct {
	events []history.Event
}

func (h *memHistory) Record(ctx context.Context, ev history.Event) error {
	h.events = append(h.events, ev)
	return nil
}
