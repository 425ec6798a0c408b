// Package registry tracks the active detectors and runs the violation
// escalation path: count, record, and punish at the configured ceiling.
package registry

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/check"
	"cheatguard/internal/config"
	"cheatguard/internal/player"
)

// Observer receives every confirmed violation record. Alerting, storage
// and the violations topic all attach here.
type Observer interface {
	ObserveViolation(check.Violation)
}

// Registry holds the detector set and implements check.ViolationSink.
type Registry struct {
	cfg    *config.ChecksConfig
	store  *player.Store
	logger *slog.Logger
	bypass check.BypassFunc

	mu     sync.RWMutex
	checks map[string]check.Check

	obsMu     sync.RWMutex
	observers []Observer

	dispatcher *Dispatcher

	violationCount atomic.Uint64
	punishCount    atomic.Uint64
}

// New creates an empty registry. dispatcher may be nil when punishment
// delivery is disabled.
func New(cfg *config.ChecksConfig, store *player.Store, dispatcher *Dispatcher, logger *slog.Logger) *Registry {
	return &Registry{
		cfg:        cfg,
		store:      store,
		logger:     logger,
		checks:     make(map[string]check.Check),
		dispatcher: dispatcher,
	}
}

// SetBypass installs the exemption predicate. Players it approves are
// never flagged or punished.
func (r *Registry) SetBypass(fn check.BypassFunc) {
	r.bypass = fn
}

// StaticBypass builds an exemption predicate from a fixed list of player
// UUID strings, the form the config carries. Entries that do not parse
// are skipped; config validation rejects them before this runs. Returns
// nil when the list yields no usable ids.
func StaticBypass(raw []string) check.BypassFunc {
	set := make(map[uuid.UUID]struct{}, len(raw))
	for _, s := range raw {
		if id, err := uuid.Parse(s); err == nil {
			set[id] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return func(id uuid.UUID) bool {
		_, ok := set[id]
		return ok
	}
}

// Register adds a detector. Later registrations with the same name
// replace earlier ones.
func (r *Registry) Register(c check.Check) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[c.Name()] = c
}

// ByName returns a detector by its registered name.
func (r *Registry) ByName(name string) (check.Check, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.checks[name]
	return c, ok
}

// ByCategory returns all detectors in a category.
func (r *Registry) ByCategory(cat check.Category) []check.Check {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []check.Check
	for _, c := range r.checks {
		if c.Category() == cat {
			out = append(out, c)
		}
	}
	return out
}

// All returns every registered detector.
func (r *Registry) All() []check.Check {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]check.Check, 0, len(r.checks))
	for _, c := range r.checks {
		out = append(out, c)
	}
	return out
}

// AddObserver attaches a violation observer.
func (r *Registry) AddObserver(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

// ForgetPlayer drops detector state for a disconnected player.
func (r *Registry) ForgetPlayer(id uuid.UUID) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.checks {
		c.Forget(id)
	}
}

// HandleViolation is the escalation path every detector flags through.
// It raises the player's violation level for the check, records the
// violation, and at the configured ceiling dispatches the punishment and
// resets the level so a punished player starts over.
func (r *Registry) HandleViolation(playerID uuid.UUID, playerName, checkName string, category check.Category, pingMillis int, detail string) {
	if r.bypass != nil && r.bypass(playerID) {
		return
	}

	st, ok := r.store.Get(playerID)
	if !ok {
		// Disconnected between detection and escalation.
		return
	}

	settings, ok := r.cfg.Settings(checkName)
	if !ok {
		// A detector registered outside the config gets safe defaults:
		// record but never punish.
		settings = config.CheckSettings{Enabled: true}
	}

	level := st.AddViolation(checkName)
	r.violationCount.Add(1)

	punish := settings.MaxViolations > 0 && level >= settings.MaxViolations

	v := check.Violation{
		ID:         uuid.New(),
		PlayerID:   playerID,
		PlayerName: playerName,
		CheckName:  checkName,
		Category:   category,
		Level:      level,
		Detail:     detail,
		PingMillis: pingMillis,
		Timestamp:  time.Now(),
		Punished:   punish,
	}

	r.logger.Warn("violation",
		"player", playerName,
		"player_id", playerID,
		"check", checkName,
		"category", category,
		"level", level,
		"ping_ms", pingMillis,
		"detail", detail,
		"punished", punish)

	r.obsMu.RLock()
	for _, o := range r.observers {
		o.ObserveViolation(v)
	}
	r.obsMu.RUnlock()

	if !punish {
		return
	}

	// Re-check bypass at punish time; permissions may have changed since
	// the level started climbing.
	if r.bypass != nil && r.bypass(playerID) {
		st.ResetViolations(checkName)
		return
	}

	command := strings.ReplaceAll(settings.Punishment, "%player%", playerName)
	if command != "" && r.dispatcher != nil {
		r.dispatcher.Dispatch(command)
	}
	r.punishCount.Add(1)
	st.ResetViolations(checkName)

	r.logger.Info("punishment dispatched",
		"player", playerName,
		"check", checkName,
		"command", command)
}

// Stats returns lifetime violation and punishment counts.
func (r *Registry) Stats() (violations, punishments uint64) {
	return r.violationCount.Load(), r.punishCount.Load()
}
