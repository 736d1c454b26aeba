package timeline

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
)

// RSSFetcher reads an account's posts from a public RSS mirror, for
// setups without API credentials. The URL template carries a {handle}
// placeholder.
type RSSFetcher struct {
	parser      *gofeed.Parser
	urlTemplate string
}

func NewRSSFetcher(urlTemplate string) *RSSFetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	return &RSSFetcher{
		parser:      parser,
		urlTemplate: urlTemplate,
	}
}

func (f *RSSFetcher) Fetch(handle string, count int, excludeReplies bool) ([]Post, error) {
	feedURL := strings.ReplaceAll(f.urlTemplate, "{handle}", url.PathEscape(handle))

	feed, err := f.parser.ParseURL(feedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoConnection, err)
	}

	posts := make([]Post, 0, count)
	for _, item := range feed.Items {
		if len(posts) == count {
			break
		}

		text := item.Title
		if text == "" {
			text = item.Description
		}

		// RSS mirrors carry replies as regular items; a leading
		// mention marks them.
		if excludeReplies && strings.HasPrefix(text, "@") {
			continue
		}

		post := Post{Text: text}
		if item.PublishedParsed != nil {
			post.CreatedAt = *item.PublishedParsed
		}

		posts = append(posts, post)
	}

	return posts, nil
}
