package tags

import "github.com/yohamta/donburi"

var (
	Agent = donburi.NewTag().SetName("Agent")
)

// Resolv tags for picking
const (
	ResolvAgent  = "agent"
	ResolvCursor = "cursor"
)
