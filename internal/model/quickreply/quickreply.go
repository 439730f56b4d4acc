package quickreply

// QuickReply is a predefined phrase submitted as if the user typed it.
type QuickReply struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Phrase string `json:"phrase"`
}

// Seed returns the topic shortcuts offered under the message list.
func Seed() []QuickReply {
	return []QuickReply{
		{ID: "about", Label: "📚 Tentang Lab", Phrase: "Tentang Lab PSTI"},
		{ID: "projects", Label: "🚀 Project", Phrase: "Project PSTI"},
		{ID: "facilities", Label: "🔧 Fasilitas", Phrase: "Fasilitas Lab"},
		{ID: "hours", Label: "⏰ Jam Buka", Phrase: "Jam Operasional"},
	}
}
