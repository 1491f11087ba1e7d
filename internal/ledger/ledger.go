// Package ledger persists per-guild experience records in a single JSON
// file. The store serializes all file access behind one mutex so that
// concurrent event handlers cannot interleave their reads and writes.
package ledger

// Record holds one user's progression within a guild.
type Record struct {
	XP    int `json:"xp"`
	Level int `json:"level"`
}

// Ledger maps guild ID to user ID to that user's Record.
type Ledger map[string]map[string]Record

// Get returns the record for the given guild and user, or a zero record when
// none exists yet.
func (l Ledger) Get(guildID, userID string) Record {
	return l[guildID][userID]
}

// Has reports whether a record exists for the given guild and user.
func (l Ledger) Has(guildID, userID string) bool {
	_, ok := l[guildID][userID]
	return ok
}

// Set stores the record for the given guild and user, creating the guild
// bucket when needed.
func (l Ledger) Set(guildID, userID string, rec Record) {
	users, ok := l[guildID]
	if !ok {
		users = make(map[string]Record)
		l[guildID] = users
	}
	users[userID] = rec
}
