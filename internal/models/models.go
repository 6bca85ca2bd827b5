package models

// All returns every persisted model for schema migration.
func All() []interface{} {
	return []interface{}{
		&UserProfile{},
		&ChatSession{},
		&ChatMessage{},
		&Post{},
		&PostLike{},
		&Comment{},
		&MoodEntry{},
	}
}
