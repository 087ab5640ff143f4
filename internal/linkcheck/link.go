package linkcheck

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type Link struct {
	// URL is the absolute URL that gets requested, without fragment.
	URL string
	// Original is the attribute value as written in the page.
	Original string
	Tag      string
	Attr     string
	Internal bool
	// Invalid is set when Original cannot be parsed as a URL.
	Invalid bool
}

// Extractor pulls checkable links out of a parsed page.
type Extractor struct {
	AcceptedSchemes  []string
	ExcludedKeywords []string
	ExcludeExternal  bool
	ExcludeInternal  bool
	SkipBlankTargets bool
}

var srcAttrTags = map[string]bool{
	"script": true, "img": true, "iframe": true, "frame": true, "embed": true,
	"audio": true, "video": true, "source": true, "track": true, "input": true,
}

var citeTags = map[string]bool{
	"blockquote": true, "q": true, "ins": true, "del": true,
}

// Extract returns the links of doc in document order. pageURL is where the
// document was loaded from; a <base href> in the document takes precedence
// for resolving relative references.
func (e Extractor) Extract(doc *goquery.Document, pageURL *url.URL) []Link {
	base := pageURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if u, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = pageURL.ResolveReference(u)
		}
	}

	var out []Link
	add := func(tag, attr, raw string) {
		if l, ok := e.resolve(tag, attr, raw, pageURL, base); ok {
			out = append(out, l)
		}
	}

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		tag := strings.ToLower(goquery.NodeName(s))

		switch {
		case tag == "a" || tag == "area":
			if e.SkipBlankTargets && strings.EqualFold(strings.TrimSpace(s.AttrOr("target", "")), "_blank") {
				return
			}
			if v, ok := s.Attr("href"); ok {
				add(tag, "href", v)
			}

		case tag == "link":
			if v, ok := s.Attr("href"); ok {
				add(tag, "href", v)
			}

		case srcAttrTags[tag]:
			if v, ok := s.Attr("src"); ok {
				add(tag, "src", v)
			}
			if v, ok := s.Attr("srcset"); ok {
				for _, candidate := range parseSrcset(v) {
					add(tag, "srcset", candidate)
				}
			}
			if tag == "video" {
				if v, ok := s.Attr("poster"); ok {
					add(tag, "poster", v)
				}
			}

		case tag == "object":
			if v, ok := s.Attr("data"); ok {
				add(tag, "data", v)
			}

		case citeTags[tag]:
			if v, ok := s.Attr("cite"); ok {
				add(tag, "cite", v)
			}

		case tag == "form":
			if v, ok := s.Attr("action"); ok {
				add(tag, "action", v)
			}

		case tag == "meta":
			if strings.EqualFold(s.AttrOr("http-equiv", ""), "refresh") {
				if v := refreshURL(s.AttrOr("content", "")); v != "" {
					add(tag, "content", v)
				}
			}
		}
	})

	return out
}

func (e Extractor) resolve(tag, attr, raw string, pageURL, base *url.URL) (Link, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Link{}, false
	}

	l := Link{Original: raw, Tag: tag, Attr: attr}

	u, err := url.Parse(raw)
	if err != nil {
		l.Invalid = true
		return l, true
	}

	resolved := base.ResolveReference(u)
	if !e.schemeAccepted(resolved.Scheme) {
		return Link{}, false
	}

	resolved.Fragment = ""
	resolved.RawFragment = ""
	l.URL = resolved.String()

	if samePage(resolved, pageURL) {
		return Link{}, false
	}

	for _, kw := range e.ExcludedKeywords {
		if kw != "" && strings.Contains(l.URL, kw) {
			return Link{}, false
		}
	}

	l.Internal = strings.EqualFold(resolved.Host, pageURL.Host)
	if l.Internal && e.ExcludeInternal {
		return Link{}, false
	}
	if !l.Internal && e.ExcludeExternal {
		return Link{}, false
	}

	return l, true
}

func (e Extractor) schemeAccepted(scheme string) bool {
	for _, s := range e.AcceptedSchemes {
		if strings.EqualFold(s, scheme) {
			return true
		}
	}
	return false
}

func samePage(u, page *url.URL) bool {
	return canonicalURL(u) == canonicalURL(page)
}

// parseSrcset splits "a.png 1x, b.png 2x" into its URLs.
func parseSrcset(v string) []string {
	var out []string
	for _, candidate := range strings.Split(v, ",") {
		fields := strings.Fields(candidate)
		if len(fields) > 0 {
			out = append(out, fields[0])
		}
	}
	return out
}

// refreshURL extracts the target of a meta refresh such as "5; url=/next".
func refreshURL(content string) string {
	_, after, ok := strings.Cut(content, ";")
	if !ok {
		return ""
	}

	after = strings.TrimSpace(after)
	if len(after) < 4 || !strings.EqualFold(after[:4], "url=") {
		return ""
	}
	return strings.Trim(strings.TrimSpace(after[4:]), `'"`)
}
