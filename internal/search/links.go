package search

import (
	"github.com/PuerkitoBio/goquery"
)

// Link is one distinct link target on the page.
type Link struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// Links lists the distinct comparison keys of the page's anchors in document
// order, so callers can see what a pattern would be matched against. Anchors
// whose href cannot be resolved are left out.
func (c *Controller) Links(resolveRelative bool) []Link {
	c.mu.Lock()
	defer c.mu.Unlock()

	pc := c.page.Context
	index := make(map[string]int)
	var links []Link

	c.page.Doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs, err := pc.Resolve(href, resolveRelative)
		if err != nil {
			return
		}
		key := pc.Normalize(abs)
		if i, ok := index[key]; ok {
			links[i].Count++
			return
		}
		index[key] = len(links)
		links = append(links, Link{Key: key, URL: abs, Count: 1})
	})

	return links
}
