package ingestion

import "strings"

// Feed is one RSS source polled on every ingestion run.
type Feed struct {
	Name string
	URL  string
}

// DefaultFeeds lists the global news feeds the corpus is built from.
var DefaultFeeds = []Feed{
	{Name: "BBC World", URL: "http://feeds.bbci.co.uk/news/world/rss.xml"},
	{Name: "Al Jazeera", URL: "https://www.aljazeera.com/xml/rss/all.xml"},
	{Name: "DW World", URL: "https://rss.dw.com/rdf/rss-en-world"},
	{Name: "UN News", URL: "https://news.un.org/feed/subscribe/en/news/all/rss.xml"},
	{Name: "ReliefWeb", URL: "https://reliefweb.int/updates/rss.xml"},
	{Name: "NATO", URL: "https://www.nato.int/cps/en/natohq/rss/news.rss"},
	{Name: "IAEA", URL: "https://www.iaea.org/feeds/press_release.xml"},
}

// blocklistTerms drop sports and entertainment coverage before any
// further processing.
var blocklistTerms = []string{
	"sport",
	"sports",
	"football",
	"soccer",
	"cricket",
	"tennis",
	"golf",
	"basketball",
	"baseball",
	"olympic",
	"entertainment",
	"celebrity",
	"movie",
	"film",
	"music",
	"concert",
	"award",
	"fashion",
}

// isBlocked reports whether the text trips the sports/entertainment
// blocklist.
func isBlocked(text string) bool {
	lowered := strings.ToLower(text)
	for _, term := range blocklistTerms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}
