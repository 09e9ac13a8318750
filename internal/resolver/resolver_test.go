package resolver

import (
	"regexp"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parse(t *testing.T, body string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parsing HTML: %v", err)
	}
	return doc.Selection
}

var (
	captainLabel  = regexp.MustCompile(`(?i)^captain:?$`)
	captainMarker = regexp.MustCompile(`(?i)\(\s*c\s*\)`)
)

func captainChain() Chain {
	return Chain{
		Selector("badge", `[title="Captain"] `+ProfileLinks),
		Label("label", captainLabel, 3, FirstLink(ProfileLinks)),
		Marker("marker", captainMarker, ProfileLinks),
	}
}

func TestChainFallbackOrder(t *testing.T) {
	tests := []struct {
		name         string
		html         string
		wantStrategy string
		wantHref     string
		wantFound    bool
	}{
		{
			name: "structural selector wins over everything",
			html: `<div title="Captain"><a href="/profiles/1/a">A</a></div>
				<div><span>Captain</span><a href="/profiles/2/b">B</a></div>
				<p><a href="/profiles/3/c">C (c)</a></p>`,
			wantStrategy: "badge",
			wantHref:     "/profiles/1/a",
			wantFound:    true,
		},
		{
			name: "label used when selector absent",
			html: `<div><div><span>Captain</span></div><a href="/profiles/2/b">B</a></div>
				<p><a href="/profiles/3/c">C (c)</a></p>`,
			wantStrategy: "label",
			wantHref:     "/profiles/2/b",
			wantFound:    true,
		},
		{
			name:         "textual marker used when selector and label absent",
			html:         `<p><a href="/profiles/3/c">C</a> (c)</p>`,
			wantStrategy: "marker",
			wantHref:     "/profiles/3/c",
			wantFound:    true,
		},
		{
			name:      "nothing found",
			html:      `<p><a href="/profiles/3/c">C</a></p>`,
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := captainChain().Resolve(parse(t, tt.html))
			if res.Found() != tt.wantFound {
				t.Fatalf("Found() = %v, expected %v", res.Found(), tt.wantFound)
			}
			if !tt.wantFound {
				return
			}
			if res.Strategy != tt.wantStrategy {
				t.Errorf("Strategy = %q, expected %q", res.Strategy, tt.wantStrategy)
			}
			first, _ := res.First()
			if first.Href != tt.wantHref {
				t.Errorf("Href = %q, expected %q", first.Href, tt.wantHref)
			}
			if len(res.Values) != 1 {
				t.Errorf("strategies must not be merged, got %d values", len(res.Values))
			}
		})
	}
}

func TestMarkerSkipsAmbiguousContainer(t *testing.T) {
	// The marker sits in a parent with two links; it cannot be attributed.
	html := `<div><a href="/profiles/1/a">A</a>, <a href="/profiles/2/b">B</a> <span>(c)</span></div>`
	res := Chain{Marker("marker", captainMarker, ProfileLinks)}.Resolve(parse(t, html))
	if res.Found() {
		t.Errorf("expected no captain for an ambiguous container, got %+v", res.Values)
	}
}

func TestMarkerSources(t *testing.T) {
	tests := []struct {
		name string
		html string
		want int
	}{
		{"inside link text", `<div><a href="/profiles/1/a">A (C)</a><a href="/profiles/2/b">B</a></div>`, 1},
		{"next text sibling", `<div><a href="/profiles/1/a">A</a> (c), <a href="/profiles/2/b">B</a></div>`, 1},
		{"single link parent", `<div><span><a href="/profiles/1/a">A</a></span><span>(c)</span></div>`, 0},
		{"single link parent text", `<div><a href="/profiles/1/a">A</a><b>(c)</b></div>`, 1},
		{"vice captain does not match", `<div><a href="/profiles/1/a">A (vc)</a></div>`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Chain{Marker("marker", captainMarker, ProfileLinks)}.Resolve(parse(t, tt.html))
			if len(res.Values) != tt.want {
				t.Errorf("got %d values, expected %d", len(res.Values), tt.want)
			}
		})
	}
}

func TestLabelSecondColumn(t *testing.T) {
	born := regexp.MustCompile(`(?i)^born:?$`)
	html := `<div class="bio">
		<div class="row"><div>Born</div><div>September 03, 1990 (35 years)</div></div>
		<div class="row"><div>Birth Place</div><div>Dublin, Ireland</div></div>
	</div>`

	res := Chain{Label("born", born, 2, SecondColumn(born))}.Resolve(parse(t, html))
	first, ok := res.First()
	if !ok {
		t.Fatal("expected the born value to be found")
	}
	if first.Text != "September 03, 1990 (35 years)" {
		t.Errorf("Text = %q", first.Text)
	}
}

func TestLabelDepthIsBounded(t *testing.T) {
	label := regexp.MustCompile(`(?i)^player of the match$`)
	html := `<section><a href="/profiles/9/far">Far</a>
		<div><div><div><div><span>PLAYER OF THE MATCH</span></div></div></div></div></section>`

	res := Chain{Label("label", label, 3, FirstLink(ProfileLinks))}.Resolve(parse(t, html))
	if res.Found() {
		t.Errorf("expected the walk to stop before reaching a distant link, got %+v", res.Values)
	}
}

func TestLayoutPositional(t *testing.T) {
	html := `<div>
		<div class="scorecard-bat-grid"><div>Batter</div><div>R</div><div>B</div></div>
		<div class="scorecard-bat-grid"><div><a href="/profiles/1/a">A</a></div><div>45</div><div>30</div></div>
		<div class="scorecard-bat-grid"><div>Extras</div><div>7</div><div>(b 1, lb 2)</div></div>
		<div class="scorecard-bat-grid"><div><a href="/profiles/2/t">Totally Batterson</a></div><div>12</div><div>9</div></div>
		<div class="scorecard-bat-grid"><div>short</div></div>
	</div>`

	layout := Layout{
		Name:       "grid",
		Rows:       `div[class*="scorecard-bat-grid"]`,
		Columns:    "div",
		MinColumns: 3,
		Skip:       regexp.MustCompile(`(?i)^(batter|extras|total)\b`),
	}

	res := Chain{layout.Strategy()}.Resolve(parse(t, html))
	if len(res.Values) != 2 {
		t.Fatalf("expected 2 data rows, got %d", len(res.Values))
	}
	if got := res.Values[1].Column(0); got != "Totally Batterson" {
		t.Errorf("player whose name starts like a skip label was dropped, second row = %q", got)
	}
	row := res.Values[0]
	if row.Column(1) != "45" || row.Column(2) != "30" {
		t.Errorf("columns = %q, %q", row.Column(1), row.Column(2))
	}
	if row.Column(9) != "" {
		t.Error("out of range column should be empty")
	}
}

func TestResolveEmptyRoot(t *testing.T) {
	if captainChain().Resolve(nil).Found() {
		t.Error("nil root should resolve to not found")
	}
}
