package twitter

import "time"

// Defaults substituted when the source omits a field. Counts default to 0,
// entity lists to empty slices and flags to false via FromRaw.
const (
	DefaultText     = "No text available"
	DefaultUsername = "Unknown"
)

// FromRaw maps a raw search record into a Post, substituting defaults for
// anything the source left out. The mapping is total: it never fails, and the
// result has no nil slices so the JSON the API emits always carries arrays.
func FromRaw(raw RawPost, now time.Time) Post {
	post := Post{
		ID:        raw.ID,
		Username:  raw.Username,
		Text:      raw.Text,
		CreatedAt: now,
		Likes:     raw.Likes,
		Retweets:  raw.Retweets,
		Replies:   raw.Replies,
		Hashtags:  orEmpty(raw.Hashtags),
		Mentions:  orEmpty(raw.Mentions),
		URLs:      orEmpty(raw.URLs),
		Photos:    orEmpty(raw.Photos),
		Videos:    orEmpty(raw.Videos),
		IsRetweet: raw.IsRetweet,
		IsQuoted:  raw.IsQuoted,
		IsReply:   raw.IsReply,
	}
	if post.Username == "" {
		post.Username = DefaultUsername
	}
	if post.Text == "" {
		post.Text = DefaultText
	}
	if raw.CreatedAt != nil {
		post.CreatedAt = *raw.CreatedAt
	}
	return post
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
