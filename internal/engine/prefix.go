package engine

import (
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"
)

// prefixIndex answers the two prefix tiers of autocomplete matching
// from memory: one trie keyed by lowercased URL, one by lowercased
// title. Each trie item is the set of place URLs sharing that key
// (titles collide; URLs are unique but share the structure).
//
// The index is rebuilt from the store at engine open and kept current
// on every recorded observation. Callers synchronize access; the index
// itself is not goroutine-safe.
type prefixIndex struct {
	urls   *patricia.Trie
	titles *patricia.Trie
}

func newPrefixIndex() *prefixIndex {
	return &prefixIndex{
		urls:   patricia.NewTrie(),
		titles: patricia.NewTrie(),
	}
}

// insert registers a place under its URL and, when non-empty, its title.
// The URL trie carries both the full URL and its scheme-stripped form,
// so typing "go" prefix-matches "https://go.dev/". Re-inserting the
// same URL with a changed title leaves the old title key in place;
// stale title entries resolve to the same URL and are deduplicated at
// ranking time.
func (idx *prefixIndex) insert(url, title string) {
	lower := strings.ToLower(url)
	addTrieMember(idx.urls, lower, url)
	if stripped := stripSchemeAndWWW(lower); stripped != lower {
		addTrieMember(idx.urls, stripped, url)
	}
	if title != "" {
		addTrieMember(idx.titles, strings.ToLower(title), url)
	}
}

// stripSchemeAndWWW drops the scheme separator and a leading "www." so
// prefix matching starts at the part of the URL people actually type.
func stripSchemeAndWWW(lowerURL string) string {
	if i := strings.Index(lowerURL, "://"); i >= 0 {
		lowerURL = lowerURL[i+3:]
	}
	return strings.TrimPrefix(lowerURL, "www.")
}

func addTrieMember(trie *patricia.Trie, key, url string) {
	if key == "" {
		return
	}
	prefix := patricia.Prefix(key)
	if item := trie.Get(prefix); item != nil {
		members := item.(map[string]struct{})
		members[url] = struct{}{}
		return
	}
	trie.Insert(prefix, map[string]struct{}{url: {}})
}

// matchURLPrefix returns the URLs of places whose URL starts with the
// lowercased query.
func (idx *prefixIndex) matchURLPrefix(lowerQuery string) map[string]struct{} {
	return collectSubtree(idx.urls, lowerQuery)
}

// matchTitlePrefix returns the URLs of places whose title starts with
// the lowercased query.
func (idx *prefixIndex) matchTitlePrefix(lowerQuery string) map[string]struct{} {
	return collectSubtree(idx.titles, lowerQuery)
}

func collectSubtree(trie *patricia.Trie, lowerQuery string) map[string]struct{} {
	out := map[string]struct{}{}
	if lowerQuery == "" {
		return out
	}
	trie.VisitSubtree(patricia.Prefix(lowerQuery), func(p patricia.Prefix, item patricia.Item) error {
		for url := range item.(map[string]struct{}) {
			out[url] = struct{}{}
		}
		return nil
	})
	return out
}
