package dto

// SeedPost is a sample forum post with display counters.
type SeedPost struct {
	Content  string `json:"content"`
	Likes    int    `json:"likes"`
	Comments int    `json:"comments"`
	UserID   string `json:"user_id"`
}

// SeedMood is a sample mood entry dated DaysAgo days in the past.
type SeedMood struct {
	Mood    string `json:"mood"`
	Journal string `json:"journal"`
	DaysAgo int    `json:"days_ago"`
	UserID  string `json:"user_id"`
}

// SeedBundle is a custom data set accepted by the seed endpoint.
type SeedBundle struct {
	Posts []SeedPost `json:"posts"`
	Moods []SeedMood `json:"moods"`
}

// SeedResult reports how many rows were written.
type SeedResult struct {
	PostsCreated int64 `json:"posts_created"`
	MoodsCreated int64 `json:"moods_created"`
}
