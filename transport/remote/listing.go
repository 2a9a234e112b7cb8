package remote

import (
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// parseListing extracts the direct children of dir from an HTML directory
// index as served by Apache, nginx and most repository managers.
func parseListing(dir *url.URL, r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("unable to parse directory listing of %s: %w", dir, err)
	}
	var names []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				if name, ok := childName(dir, attr.Val); ok && !slices.Contains(names, name) {
					names = append(names, name)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return names, nil
}

func childName(dir *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	target := dir.ResolveReference(ref)
	if target.Host != dir.Host || target.Scheme != dir.Scheme {
		return "", false
	}
	rest, ok := strings.CutPrefix(target.Path, dir.Path)
	if !ok {
		return "", false
	}
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" || rest == "." || rest == ".." || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
