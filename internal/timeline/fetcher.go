package timeline

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dghubble/oauth1"
)

const (
	userAgent         = "chirpwidget/1.0 (feed widget; github.com/mhartman/chirpwidget)"
	defaultAPIBaseURL = "https://api.twitter.com/1.1"

	// Layout of the created_at field in the legacy timeline API.
	createdAtLayout = "Mon Jan 02 15:04:05 -0700 2006"
)

// Fetcher retrieves an account's recent posts from some upstream.
type Fetcher interface {
	Fetch(handle string, count int, excludeReplies bool) ([]Post, error)
}

// Credentials are the four opaque OAuth1 strings for the feed API.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

// APIFetcher reads an account's timeline from the authenticated JSON API.
// Request signing is delegated entirely to the OAuth1 client library.
type APIFetcher struct {
	client  *http.Client
	baseURL string
}

func NewAPIFetcher(creds Credentials, timeout time.Duration) *APIFetcher {
	cfg := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)

	client := cfg.Client(oauth1.NoContext, token)
	client.Timeout = timeout

	return &APIFetcher{
		client:  client,
		baseURL: defaultAPIBaseURL,
	}
}

type apiStatus struct {
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

func (f *APIFetcher) Fetch(handle string, count int, excludeReplies bool) ([]Post, error) {
	q := url.Values{}
	q.Set("screen_name", handle)
	q.Set("count", strconv.Itoa(count))
	if excludeReplies {
		q.Set("exclude_replies", "true")
	}

	req, err := http.NewRequest("GET", f.baseURL+"/statuses/user_timeline.json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	var statuses []apiStatus
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		return nil, fmt.Errorf("decoding timeline: %w", err)
	}

	posts := make([]Post, 0, len(statuses))
	for _, st := range statuses {
		created, err := time.Parse(createdAtLayout, st.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at %q: %w", st.CreatedAt, err)
		}
		posts = append(posts, Post{Text: st.Text, CreatedAt: created})
	}

	return posts, nil
}
