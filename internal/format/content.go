package format

import (
	"regexp"
	"strings"
)

// Placeholders understood by the link templates.
const (
	handleToken = "{handle}"
	tagToken    = "{tag}"
)

var (
	urlPattern     = regexp.MustCompile(`https?://[^\s]+`)
	mentionPattern = regexp.MustCompile(`(^|\s)@(\w+)`)
	hashtagPattern = regexp.MustCompile(`(^|\s)#(\w+)`)
	anchorPattern  = regexp.MustCompile(`<a href="([^"]*)">([^<]*)</a>`)
)

// Linker rewrites raw post text, wrapping bare URLs, @mentions and
// #hashtags in HTML anchors. Substitutions run in that fixed order;
// mentions and hashtags only match after start-of-text or whitespace, so
// they do not fire inside URLs that were already linked.
type Linker struct {
	// ProfileURL and SearchURL are templates with {handle} and {tag}
	// placeholders respectively.
	ProfileURL string
	SearchURL  string
}

func NewLinker(profileURL, searchURL string) *Linker {
	return &Linker{ProfileURL: profileURL, SearchURL: searchURL}
}

func (l *Linker) Render(raw string) string {
	out := urlPattern.ReplaceAllString(raw, `<a href="$0">$0</a>`)

	mentionTarget := replacementTarget(l.ProfileURL, handleToken)
	out = mentionPattern.ReplaceAllString(out, `${1}<a href="`+mentionTarget+`">@${2}</a>`)

	tagTarget := replacementTarget(l.SearchURL, tagToken)
	out = hashtagPattern.ReplaceAllString(out, `${1}<a href="`+tagTarget+`">#${2}</a>`)

	return out
}

// replacementTarget splices a link template into a regexp replacement
// string. Literal dollar signs in the template must not read as capture
// references, so they are escaped before the placeholder becomes one.
func replacementTarget(tmpl, token string) string {
	escaped := strings.ReplaceAll(tmpl, "$", "$$")
	return strings.ReplaceAll(escaped, token, "${2}")
}

// Profile expands the profile template for an account handle.
func (l *Linker) Profile(handle string) string {
	return strings.ReplaceAll(l.ProfileURL, handleToken, handle)
}

// AnchorsToMarkdown converts the HTML anchors produced by Render into
// Markdown links so rendered post text can go through a terminal
// Markdown renderer.
func AnchorsToMarkdown(s string) string {
	return anchorPattern.ReplaceAllString(s, `[${2}](${1})`)
}
