package resolver

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/normalize"
)

// ProfileLinks selects player reference links
const ProfileLinks = `a[href*="/profiles/"]`

// Value is one candidate found by a strategy
type Value struct {
	Text    string
	Href    string
	Node    *goquery.Selection
	Columns []*goquery.Selection
}

// Column returns the normalized text of column i, or "" when the row is shorter
func (v Value) Column(i int) string {
	if i < 0 || i >= len(v.Columns) {
		return ""
	}
	return normalize.Text(v.Columns[i].Text())
}

// Strategy finds zero or more candidate values under root
type Strategy struct {
	Name string
	Find func(root *goquery.Selection) []Value
}

// Result is the outcome of resolving a chain
type Result struct {
	Values   []Value
	Strategy string
}

// Found reports whether any strategy produced a value
func (r Result) Found() bool {
	return len(r.Values) > 0
}

// First returns the first value found
func (r Result) First() (Value, bool) {
	if len(r.Values) == 0 {
		return Value{}, false
	}
	return r.Values[0], true
}

// Chain is an ordered list of strategies; the first one to find anything wins
type Chain []Strategy

// Resolve runs the strategies in order and stops at the first success
func (c Chain) Resolve(root *goquery.Selection) Result {
	if root == nil || root.Length() == 0 {
		return Result{}
	}
	for _, s := range c {
		if values := s.Find(root); len(values) > 0 {
			return Result{Values: values, Strategy: s.Name}
		}
	}
	return Result{}
}

// Selector matches elements by CSS selector, keeping those with text or an href
func Selector(name, css string) Strategy {
	return Strategy{
		Name: name,
		Find: func(root *goquery.Selection) []Value {
			var values []Value
			root.Find(css).Each(func(_ int, sel *goquery.Selection) {
				if v := valueOf(sel); v.Text != "" || v.Href != "" {
					values = append(values, v)
				}
			})
			return values
		},
	}
}

// Picker extracts a value from a candidate container during a label walk
type Picker func(container *goquery.Selection) (Value, bool)

// Label finds text nodes matching pattern and walks up to depth ancestors,
// starting with the element that owns the text, until pick succeeds.
func Label(name string, pattern *regexp.Regexp, depth int, pick Picker) Strategy {
	return Strategy{
		Name: name,
		Find: func(root *goquery.Selection) []Value {
			var values []Value
			seen := make(map[*html.Node]bool)
			for _, owner := range textOwners(root, pattern) {
				container := owner
				for level := 0; level < depth && container.Length() > 0; level++ {
					if v, ok := pick(container); ok {
						if n := v.Node.Get(0); !seen[n] {
							seen[n] = true
							values = append(values, v)
						}
						break
					}
					container = container.Parent()
				}
			}
			return values
		},
	}
}

// FirstLink picks the first element matching css inside the container
func FirstLink(css string) Picker {
	return func(container *goquery.Selection) (Value, bool) {
		link := container.Find(css).First()
		if link.Length() == 0 {
			return Value{}, false
		}
		return valueOf(link), true
	}
}

// SecondColumn picks the second div child of the container, the layout used for
// "label | value" rows.
func SecondColumn(label *regexp.Regexp) Picker {
	return func(container *goquery.Selection) (Value, bool) {
		cols := container.ChildrenFiltered("div")
		if cols.Length() < 2 {
			return Value{}, false
		}
		v := valueOf(cols.Eq(1))
		if v.Text == "" || label.MatchString(v.Text) {
			return Value{}, false
		}
		return v, true
	}
}

// OwnText picks the label owner itself, for fields whose label is the value
func OwnText() Picker {
	return func(container *goquery.Selection) (Value, bool) {
		v := valueOf(container)
		return v, v.Text != ""
	}
}

// NextText picks the text of the element following the label owner
func NextText() Picker {
	return func(container *goquery.Selection) (Value, bool) {
		next := container.Next()
		if next.Length() == 0 {
			return Value{}, false
		}
		v := valueOf(next)
		return v, v.Text != ""
	}
}

// Layout describes a positional table: rows are containers, columns are children
type Layout struct {
	Name string
	// Rows selects each row container.
	Rows string
	// Columns filters the row's direct children; empty means every element child.
	Columns string
	// MinColumns drops rows that are too short to be data.
	MinColumns int
	// Skip drops header, extras and total rows by the text of their first cell.
	Skip *regexp.Regexp
}

// Strategy turns the layout into a resolver strategy producing one value per row
func (l Layout) Strategy() Strategy {
	return Strategy{
		Name: l.Name,
		Find: func(root *goquery.Selection) []Value {
			var values []Value
			root.Find(l.Rows).Each(func(_ int, row *goquery.Selection) {
				children := row.Children()
				if l.Columns != "" {
					children = row.ChildrenFiltered(l.Columns)
				}
				if children.Length() < l.MinColumns {
					return
				}
				if l.Skip != nil && l.Skip.MatchString(normalize.Text(row.Children().First().Text())) {
					return
				}
				cols := make([]*goquery.Selection, 0, children.Length())
				children.Each(func(_ int, c *goquery.Selection) {
					cols = append(cols, c)
				})
				values = append(values, Value{Text: normalize.Text(row.Text()), Node: row, Columns: cols})
			})
			return values
		},
	}
}

// Marker flags reference links that co-occur with an inline marker. A link
// matches when the marker is in its own text, in the text node right after it,
// or in its parent's text when the parent holds no other candidate link.
func Marker(name string, pattern *regexp.Regexp, links string) Strategy {
	return Strategy{
		Name: name,
		Find: func(root *goquery.Selection) []Value {
			var values []Value
			root.Find(links).Each(func(_ int, link *goquery.Selection) {
				if markedLink(link, pattern, links) {
					values = append(values, valueOf(link))
				}
			})
			return values
		},
	}
}

func markedLink(link *goquery.Selection, pattern *regexp.Regexp, links string) bool {
	if pattern.MatchString(link.Text()) {
		return true
	}
	if next := link.Get(0).NextSibling; next != nil && next.Type == html.TextNode {
		if pattern.MatchString(next.Data) {
			return true
		}
	}
	parent := link.Parent()
	if parent.Length() == 0 || parent.Find(links).Length() != 1 {
		return false
	}
	return pattern.MatchString(parent.Text())
}

// textOwners returns the elements that directly own a text node matching pattern
func textOwners(root *goquery.Selection, pattern *regexp.Regexp) []*goquery.Selection {
	var owners []*goquery.Selection
	root.Find("*").Each(func(_ int, sel *goquery.Selection) {
		for c := sel.Get(0).FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode && pattern.MatchString(normalize.Text(c.Data)) {
				owners = append(owners, sel)
				return
			}
		}
	})
	return owners
}

func valueOf(sel *goquery.Selection) Value {
	href, _ := sel.Attr("href")
	return Value{
		Text: normalize.Text(sel.Text()),
		Href: href,
		Node: sel,
	}
}
