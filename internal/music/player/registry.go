package player

import "sync"

// Registry hands out the single Player for each guild, creating it lazily.
type Registry struct {
	mu      sync.Mutex
	players map[string]*Player
	factory func(guildID string) *Player
}

func NewRegistry(factory func(guildID string) *Player) *Registry {
	return &Registry{
		players: make(map[string]*Player),
		factory: factory,
	}
}

func (r *Registry) GetOrCreate(guildID string) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[guildID]; ok {
		return p
	}
	p := r.factory(guildID)
	r.players[guildID] = p
	return p
}

// Get returns the guild's player without creating one.
func (r *Registry) Get(guildID string) (*Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[guildID]
	return p, ok
}

// Remove shuts the guild's player down and forgets it, typically after a
// voice disconnect. The next playback request starts from a clean state.
func (r *Registry) Remove(guildID string) {
	r.mu.Lock()
	p, ok := r.players[guildID]
	delete(r.players, guildID)
	r.mu.Unlock()

	if ok {
		p.Shutdown()
	}
}

// All returns every live player, for shutdown.
func (r *Registry) All() []*Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	return out
}
