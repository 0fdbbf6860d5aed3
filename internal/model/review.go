package model

// Review is one Google Maps review returned by the reviews actor. JSON keys
// follow the actor's dataset field names.
type Review struct {
	PlaceID      string   `json:"placeId" yaml:"place_id"`
	ReviewID     string   `json:"reviewId,omitempty" yaml:"review_id,omitempty"`
	Text         string   `json:"text,omitempty" yaml:"text,omitempty"`
	Rating       *float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
	AuthorName   string   `json:"name,omitempty" yaml:"author_name,omitempty"`
	ReviewURL    string   `json:"reviewUrl,omitempty" yaml:"review_url,omitempty"`
	PublishedAt  string   `json:"publishedAtDate,omitempty" yaml:"published_at,omitempty"`
	LikesCount   *int     `json:"likesCount,omitempty" yaml:"likes_count,omitempty"`
	ImageURLs    []string `json:"reviewImageUrls,omitempty" yaml:"image_urls,omitempty"`
	ResponseText string   `json:"responseText,omitempty" yaml:"response_text,omitempty"`
	ResponseDate string   `json:"responseDate,omitempty" yaml:"response_date,omitempty"`
}
