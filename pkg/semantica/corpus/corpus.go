// Package corpus holds the documents gathered for one analysis run.
package corpus

// SourceType records which stage produced a document.
type SourceType string

const (
	SourceScraped     SourceType = "scraped"
	SourceSnippet     SourceType = "snippet"
	SourcePlaceholder SourceType = "placeholder"
)

// Document is one unit of competitor text. URL may be empty for
// placeholders. Documents are not modified once created.
type Document struct {
	URL     string     `json:"url"`
	Title   string     `json:"title"`
	Content string     `json:"content"`
	Keyword string     `json:"keyword"`
	Source  SourceType `json:"source_type"`
}

// Corpus is an ordered document collection that suppresses duplicate URLs.
// Documents without a URL are always accepted.
type Corpus struct {
	docs []Document
	urls map[string]struct{}
}

// New creates a corpus seeded with docs, dropping duplicate URLs.
func New(docs ...Document) *Corpus {
	c := &Corpus{urls: make(map[string]struct{})}
	for _, d := range docs {
		c.Add(d)
	}
	return c
}

// Add appends d unless its URL is already present. It reports whether d was added.
func (c *Corpus) Add(d Document) bool {
	if d.URL != "" {
		if _, ok := c.urls[d.URL]; ok {
			return false
		}
		c.urls[d.URL] = struct{}{}
	}
	c.docs = append(c.docs, d)
	return true
}

// Has reports whether url is already in the corpus.
func (c *Corpus) Has(url string) bool {
	_, ok := c.urls[url]
	return ok
}

// Len returns the number of documents.
func (c *Corpus) Len() int {
	return len(c.docs)
}

// Documents returns a copy of the documents in insertion order.
func (c *Corpus) Documents() []Document {
	return append([]Document(nil), c.docs...)
}

// CountFor returns how many documents are attributed to keyword.
func (c *Corpus) CountFor(keyword string) int {
	n := 0
	for _, d := range c.docs {
		if d.Keyword == keyword {
			n++
		}
	}
	return n
}

// Texts returns the content of every document, for term statistics.
func (c *Corpus) Texts() []string {
	out := make([]string, len(c.docs))
	for i, d := range c.docs {
		out[i] = d.Content
	}
	return out
}

// Sources counts documents per source type.
func (c *Corpus) Sources() map[SourceType]int {
	out := make(map[SourceType]int)
	for _, d := range c.docs {
		out[d.Source]++
	}
	return out
}
