package quickreply

// Store exposes quick-reply lookup for the conversation and HTTP handlers.
type Store interface {
	List() []QuickReply
	FindByID(id string) (QuickReply, bool)
}

// MemoryStore implements Store with a fixed in-memory slice.
type MemoryStore struct {
	items []QuickReply
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied replies.
func NewMemoryStore(items []QuickReply) *MemoryStore {
	return &MemoryStore{items: append([]QuickReply(nil), items...)}
}

// List returns the replies in display order.
func (s *MemoryStore) List() []QuickReply {
	return append([]QuickReply(nil), s.items...)
}

// FindByID looks up a reply by identifier.
func (s *MemoryStore) FindByID(id string) (QuickReply, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return QuickReply{}, false
}
