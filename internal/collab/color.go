package collab

// userColors is the fixed display palette. Colors are assigned by hashing the
// user id, so the same user gets a stable color across reconnects.
var userColors = [...]string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4",
	"#FFEAA7", "#DDA0DD", "#98D8C8", "#F7DC6F",
	"#BB8FCE", "#85C1E9", "#F8B500", "#00CED1",
}

// ColorFor returns the deterministic display color for a user id.
func ColorFor(userID string) string {
	var hash uint32
	for _, b := range []byte(userID) {
		hash += uint32(b)
	}
	return userColors[hash%uint32(len(userColors))]
}
