package remoteok

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"jobradar/internal/config"
)

const boardFixture = `
<table id="jobsboard">
  <tr class="job" data-href="/remote-jobs/100-backend-engineer">
    <td class="company position">
      <a itemprop="url" href="/remote-jobs/100-backend-engineer">
        <h2 itemprop="title">Backend Engineer</h2>
        <h3 itemprop="name">Acme Inc</h3>
      </a>
      <div class="location">Worldwide</div>
      <div class="location">💰 $100k - $130k</div>
      <time datetime="2026-08-30T12:00:00+00:00">1d</time>
    </td>
  </tr>
  <tr class="job" data-href="/remote-jobs/101-designer">
    <td class="company position">
      <h2 itemprop="title">Product Designer</h2>
      <h3 itemprop="name">Globex</h3>
    </td>
  </tr>
  <tr class="job">
    <td><h2 itemprop="title">No Link Row</h2></td>
  </tr>
</table>`

func TestParseBoard(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(boardFixture))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	site := NewSite(config.SiteConfig{Name: "remoteok"}, "test-agent")
	postings := site.parseBoard(doc)

	if len(postings) != 2 {
		t.Fatalf("postings = %d, want 2 (row without link skipped)", len(postings))
	}

	first := postings[0]
	if first.Title != "Backend Engineer" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Company != "Acme Inc" {
		t.Errorf("company = %q", first.Company)
	}
	if first.Location != "Worldwide" {
		t.Errorf("location = %q", first.Location)
	}
	if first.SalaryText != "$100k - $130k" {
		t.Errorf("salaryText = %q", first.SalaryText)
	}
	if first.URL != "https://remoteok.com/remote-jobs/100-backend-engineer" {
		t.Errorf("url = %q", first.URL)
	}
	if first.PostedAt.IsZero() {
		t.Error("expected PostedAt to be parsed")
	}
	if first.Site != "remoteok" {
		t.Errorf("site = %q", first.Site)
	}

	second := postings[1]
	if second.Location != "Remote" {
		t.Errorf("default location = %q, want Remote", second.Location)
	}
}

func TestSearchTag(t *testing.T) {
	tests := []struct {
		what string
		want string
	}{
		{"Software Engineer", "software-engineer"},
		{"Go", "go"},
		{"  C++ Developer  ", "c-developer"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := searchTag(tt.what); got != tt.want {
			t.Errorf("searchTag(%q) = %q, want %q", tt.what, got, tt.want)
		}
	}
}
