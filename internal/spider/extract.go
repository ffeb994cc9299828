package spider

import (
	"strconv"
	"strings"
)

// Text returns the first non-empty normalized text produced by the chain.
func (e Element) Text(chain Chain) string {
	for _, sel := range chain {
		for _, n := range findNodes(e.node, sel) {
			if t := (Element{doc: e.doc, node: n}).OwnText(); t != "" {
				return t
			}
		}
	}
	return ""
}

// TextAll returns every non-empty normalized text of the first matching
// selector in the chain.
func (e Element) TextAll(chain Chain) []string {
	var out []string
	for _, el := range e.Find(chain) {
		if t := el.OwnText(); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// TextJoin joins TextAll with sep. Returns "" when nothing matched.
func (e Element) TextJoin(chain Chain, sep string) string {
	return strings.Join(e.TextAll(chain), sep)
}

// FirstRaw returns the first non-empty extraction value (href attribute or
// text) without URL resolution. Used for values such as phone numbers and
// mailto links where resolution would mangle the content.
func (e Element) FirstRaw(chain Chain) string {
	for _, sel := range chain {
		for _, n := range findNodes(e.node, sel) {
			if v := (Element{doc: e.doc, node: n}).rawValue(); v != "" {
				return v
			}
		}
	}
	return ""
}

// FirstURL returns the first extraction value resolved to an absolute URL.
func (e Element) FirstURL(chain Chain) string {
	for _, sel := range chain {
		for _, n := range findNodes(e.node, sel) {
			if u := (Element{doc: e.doc, node: n}).linkURL(); u != "" {
				return u
			}
		}
	}
	return ""
}

// Links returns the absolute URLs of the first matching selector, in
// document order, without duplicates.
func (e Element) Links(chain Chain) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, el := range e.Find(chain) {
		u := el.linkURL()
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// imagePlaceholders mark lazy-load stand-in sources that must never end up
// in a record.
var imagePlaceholders = []string{"placeholder", "data:image/"}

// Images returns the absolute image URLs of the first matching selector,
// with lazy-load placeholders dropped.
func (e Element) Images(chain Chain) []string {
	var out []string
	for _, u := range e.Links(chain) {
		if isPlaceholder(u) {
			continue
		}
		out = append(out, u)
	}
	return out
}

func isPlaceholder(u string) bool {
	lower := strings.ToLower(u)
	for _, p := range imagePlaceholders {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// AttrTable extracts a label/value table. rows selects the row elements;
// key and value are evaluated relative to each row. Rows missing either
// side are dropped.
func (e Element) AttrTable(rows, key, value Chain) map[string]string {
	attrs := map[string]string{}
	for _, row := range e.Find(rows) {
		k := row.Text(key)
		v := row.Text(value)
		if k != "" && v != "" {
			attrs[k] = v
		}
	}
	return attrs
}

// LookupLabel finds a value in an attrs table by label, first by
// case-insensitive equality, then by substring match.
func LookupLabel(attrs map[string]string, label string) string {
	for k, v := range attrs {
		if strings.EqualFold(strings.TrimSpace(k), label) {
			return v
		}
	}
	lower := strings.ToLower(label)
	for k, v := range attrs {
		if strings.Contains(strings.ToLower(k), lower) {
			return v
		}
	}
	return ""
}

// Breadcrumb extracts the deepest breadcrumb entry: its text and, when the
// entry links somewhere, its absolute URL.
func (e Element) Breadcrumb(last Chain) (name, href *string) {
	el, ok := e.First(last)
	if !ok {
		return nil, nil
	}
	name = strPtr(el.OwnText())
	link := el.Attr("href")
	if link == "" {
		if a, ok := el.First(Chain{`.//a`}); ok {
			link = a.Attr("href")
		}
	}
	href = strPtr(e.doc.AbsoluteURL(link))
	return name, href
}

// priceOnRequestMarkers flag listings without a numeric price.
var priceOnRequestMarkers = []string{"consultar", "a convenir", "precio a confirmar"}

// CleanPrice normalizes a displayed price into a float. Currency symbols
// and whitespace are stripped; separator roles are inferred:
//
//	both "." and "," present: the rightmost one is the decimal separator
//	one separator, a two-digit trailing group: decimal separator
//	one separator otherwise: thousands separator
//
// Returns nil for empty input, price-on-request markers, unparseable
// leftovers and non-positive values.
func CleanPrice(raw string) *float64 {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return nil
	}
	for _, m := range priceOnRequestMarkers {
		if strings.Contains(lower, m) {
			return nil
		}
	}

	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return nil
	}

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 == 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		if strings.Count(s, ".") != 1 || len(s)-lastDot-1 != 2 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}
