package service

const TopicBooks = "book_events"

// BookChanged is published after every committed catalog write.
type BookChanged struct {
	Kind     string  `json:"kind"`
	BookID   uint    `json:"book_id"`
	Title    string  `json:"title,omitempty"`
	Price    float64 `json:"price,omitempty"`
	IsActive bool    `json:"is_active"`
}

func (e BookChanged) EventType() string { return "book_" + e.Kind }
