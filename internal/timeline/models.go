package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Failure modes reported in-band on the FeedResult rather than surfaced
// to the caller.
var (
	ErrNoConnection = errors.New("no connection to the feed service")
	ErrNoItems      = errors.New("no posts to display")
)

// Messages written to the error field of the cached document. The wording
// is part of the wire format consumed by existing widget embeds.
const (
	msgNoConnection = "No connection to the feed service."
	msgNoItems      = "No tweets to display."
)

// Post is one raw fetched item.
type Post struct {
	Text      string
	CreatedAt time.Time
}

// DisplayPost is a Post after link markup and time formatting.
type DisplayPost struct {
	Description string `json:"desc"`
	DisplayTime string `json:"time"`
}

// FeedResult is the document that gets cached and returned.
type FeedResult struct {
	Handle string        `json:"acct"`
	Link   string        `json:"acct_link"`
	Posts  []DisplayPost `json:"tweets"`
	Err    FeedError     `json:"error"`
}

// FeedError is the legacy bool-or-string error field: JSON false when no
// error occurred, a descriptive string otherwise.
type FeedError string

func (e FeedError) IsSet() bool {
	return e != ""
}

func (e FeedError) MarshalJSON() ([]byte, error) {
	if e == "" {
		return []byte("false"), nil
	}
	return json.Marshal(string(e))
}

func (e *FeedError) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*e = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("error field is neither bool nor string: %w", err)
	}
	*e = FeedError(s)
	return nil
}
