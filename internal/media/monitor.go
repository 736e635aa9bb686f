package media

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/disk"

	"voicebox/internal/registry"
)

// Monitor polls for removable volumes and keeps the registry's removable
// namespace in sync. Scan results are cached per mount point, so
// unmounting one of several volumes only drops that volume's commands.
type Monitor struct {
	reg      *registry.Registry
	roots    []string
	interval time.Duration

	// mounts is the detection function; tests swap it out.
	mounts func() []string

	kick chan struct{}

	mu      sync.Mutex
	scanned map[string][]registry.Entry
	order   []string
}

func NewMonitor(reg *registry.Registry, roots []string, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Monitor{
		reg:      reg,
		roots:    roots,
		interval: interval,
		mounts:   func() []string { return detectMounts(roots) },
		kick:     make(chan struct{}, 1),
		scanned:  make(map[string][]registry.Entry),
	}
}

// Run polls until ctx is cancelled. A failed iteration is logged and the
// loop keeps going; one bad poll must never kill the monitor.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-m.kick:
		}
		m.rescan()
	}
}

// SetMountsFunc replaces mount detection; used by tests. It is not
// synchronized with Run and must be called before the monitor starts.
func (m *Monitor) SetMountsFunc(fn func() []string) {
	m.mounts = fn
}

// Kick requests an immediate poll without waiting for the next tick.
// Non-blocking; a pending kick is enough.
func (m *Monitor) Kick() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// ForceRescan recomputes the removable namespace synchronously. Called at
// startup so commands exist before recognition begins.
func (m *Monitor) ForceRescan() {
	m.rescan()
}

func (m *Monitor) rescan() {
	current := m.mounts()

	m.mu.Lock()
	defer m.mu.Unlock()

	mounted := make(map[string]bool, len(current))
	changed := false

	for _, mount := range current {
		mounted[mount] = true
		if _, ok := m.scanned[mount]; ok {
			continue
		}
		entries, err := Scan(mount)
		if err != nil {
			slog.Warn("removable scan failed", "mount", mount, "err", err)
		}
		slog.Info("removable media mounted", "mount", mount, "clips", len(entries))
		m.scanned[mount] = entries
		m.order = append(m.order, mount)
		changed = true
	}

	kept := m.order[:0]
	for _, mount := range m.order {
		if mounted[mount] {
			kept = append(kept, mount)
			continue
		}
		slog.Info("removable media unmounted", "mount", mount)
		delete(m.scanned, mount)
		changed = true
	}
	m.order = kept

	if !changed {
		return
	}

	var union []registry.Entry
	for _, mount := range m.order {
		union = append(union, m.scanned[mount]...)
	}
	m.reg.ReplaceNamespace(registry.Removable, union)
}

// detectMounts reports the active mount points that look like removable
// media: anything the OS lists under the configured roots or the
// conventional /media and /mnt prefixes.
func detectMounts(roots []string) []string {
	parts, err := disk.Partitions(false)
	if err != nil {
		slog.Warn("partition enumeration failed", "err", err)
		return nil
	}

	seen := make(map[string]bool)
	var mounts []string
	for _, p := range parts {
		if !removableMount(p.Mountpoint, roots) {
			continue
		}
		if !seen[p.Mountpoint] {
			seen[p.Mountpoint] = true
			mounts = append(mounts, p.Mountpoint)
		}
	}
	sort.Strings(mounts)
	return mounts
}

func removableMount(mountpoint string, roots []string) bool {
	if mountpoint == "" || mountpoint == "/" {
		return false
	}
	for _, root := range roots {
		if mountpoint == root || strings.HasPrefix(mountpoint, root+"/") {
			return true
		}
	}
	return strings.HasPrefix(mountpoint, "/media/") || strings.HasPrefix(mountpoint, "/mnt/")
}
