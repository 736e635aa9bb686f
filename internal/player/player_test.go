package player

import (
	"context"
	"os/exec"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testController spawns real short-lived processes through the command
// seam instead of VLC. The sweep is disabled so tests never pkill.
func testController(t *testing.T, argv ...string) (*Controller, *spawnLog) {
	t.Helper()
	c := NewController("cvlc")
	c.sweepName = ""

	log := &spawnLog{}
	c.newCommand = func(path string, o Options) *exec.Cmd {
		log.record(path)
		return exec.Command(argv[0], argv[1:]...)
	}
	t.Cleanup(c.Stop)
	return c, log
}

type spawnLog struct {
	mu        sync.Mutex
	paths     []string
	prevAlive []bool
	lastPID   int
}

func (l *spawnLog) record(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	alive := false
	if l.lastPID != 0 {
		alive = syscall.Kill(l.lastPID, 0) == nil
	}
	l.paths = append(l.paths, path)
	l.prevAlive = append(l.prevAlive, alive)
}

func (l *spawnLog) notePID(pid int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastPID = pid
}

func TestPlayStartsBeforeStoppingPrevious(t *testing.T) {
	c, log := testController(t, "sleep", "60")

	require.NoError(t, c.Play("first.mp4", Options{Loop: true}))
	require.True(t, c.Alive())
	firstPID := c.current.cmd.Process.Pid
	log.notePID(firstPID)

	require.NoError(t, c.Play("second.mp4", Options{Loop: true}))

	// The second spawn must have happened while the first process was
	// still running; only after the settle window is the old one told
	// to exit.
	require.Len(t, log.paths, 2)
	assert.True(t, log.prevAlive[1], "previous process must be alive when the new one spawns")

	assert.True(t, c.Alive())
	require.Eventually(t, func() bool {
		return syscall.Kill(firstPID, 0) != nil
	}, 3*time.Second, 20*time.Millisecond, "old process must be gone after the swap")
}

func TestAtMostOneOwnedProcess(t *testing.T) {
	c, _ := testController(t, "sleep", "60")

	for _, clip := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		require.NoError(t, c.Play(clip, Options{Loop: true}))
	}

	c.mu.Lock()
	current := c.current
	c.mu.Unlock()
	require.NotNil(t, current)
	assert.True(t, current.alive())
}

func TestPlayFailsWhenProcessDiesSettling(t *testing.T) {
	c, _ := testController(t, "sleep", "60")
	require.NoError(t, c.Play("idle.mp4", Options{Loop: true}))

	c.newCommand = func(path string, o Options) *exec.Cmd {
		return exec.Command("false")
	}
	err := c.Play("broken.mp4", Options{})
	require.Error(t, err)

	// The old clip must survive a failed swap.
	assert.True(t, c.Alive())
}

func TestStopIsIdempotent(t *testing.T) {
	c, _ := testController(t, "sleep", "60")
	require.NoError(t, c.Play("idle.mp4", Options{Loop: true}))

	c.Stop()
	assert.False(t, c.Alive())

	// Second stop with no active process is a no-op.
	c.Stop()
	assert.False(t, c.Alive())
}

func TestPlayOnceBlocksToCompletion(t *testing.T) {
	c, _ := testController(t, "sleep", "0.2")

	start := time.Now()
	require.NoError(t, c.PlayOnce(context.Background(), "clip.mp4", Options{Audible: true}))
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)

	// One-shots never occupy the slot.
	assert.False(t, c.Alive())
}

func TestPlayOnceCancellation(t *testing.T) {
	c, _ := testController(t, "sleep", "60")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.PlayOnce(ctx, "clip.mp4", Options{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		contains []string
		excludes []string
	}{
		{
			name:     "idle loop",
			opts:     Options{Loop: true},
			contains: []string{"--loop", "--no-audio", "--fullscreen"},
			excludes: []string{"--play-and-exit", "--video-on-top"},
		},
		{
			name:     "command clip",
			opts:     Options{Audible: true, Topmost: true},
			contains: []string{"--play-and-exit", "--video-on-top"},
			excludes: []string{"--loop", "--no-audio"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := buildArgs("clip.mp4", tt.opts)
			assert.Equal(t, "clip.mp4", args[len(args)-1])
			for _, want := range tt.contains {
				assert.Contains(t, args, want)
			}
			for _, not := range tt.excludes {
				assert.NotContains(t, args, not)
			}
		})
	}
}
