package domain

// Profile is the subset of a remote account that can populate a Post.
type Profile struct {
	Name            string `json:"name"`
	ScreenName      string `json:"screen_name"`
	ProfileImageURL string `json:"profile_image_url"`
	Status          Status `json:"status"`
}

// Status is the account's latest post.
type Status struct {
	Text          string `json:"text"`
	RetweetCount  int64  `json:"retweet_count"`
	FavoriteCount int64  `json:"favorite_count"`
}
