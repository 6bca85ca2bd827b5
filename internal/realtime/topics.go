package realtime

import "strings"

// TopicPosts signals any change to the forum feed.
const TopicPosts = "posts"

// PostTopic names the topic for a single post and its comments.
func PostTopic(postID string) string {
	return TopicPosts + ":" + postID
}

// MoodTopic names the topic for one user's mood journal.
func MoodTopic(userID string) string {
	return "moods:" + userID
}

// topicKind strips the identifier so metrics labels stay low-cardinality.
func topicKind(topic string) string {
	if idx := strings.IndexByte(topic, ':'); idx >= 0 {
		return topic[:idx] + ":*"
	}
	return topic
}
