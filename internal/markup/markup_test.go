package markup

import (
	"os"
	"testing"
)

func loadFixture(t *testing.T, name string) Document {
	t.Helper()
	f, err := os.Open("testdata/" + name)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return doc
}

func TestExtractCards(t *testing.T) {
	cards := ExtractCards(loadFixture(t, "search_page.html"))

	// The second card has no company and is skipped.
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d: %+v", len(cards), cards)
	}

	first := cards[0]
	if first.ID != "3801234567" {
		t.Errorf("expected id from entity urn, got %q", first.ID)
	}
	if first.Title != "Senior Go Engineer" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Company != "Acme & Co" {
		t.Errorf("company = %q", first.Company)
	}
	if first.Location != "Berlin, Germany" {
		t.Errorf("location = %q", first.Location)
	}
	if first.PostingAge != "2 days ago" {
		t.Errorf("posting age = %q", first.PostingAge)
	}

	second := cards[1]
	if second.ID != "3809999999" {
		t.Errorf("expected id from card link, got %q", second.ID)
	}
	if second.Company != "Globex" {
		t.Errorf("expected subtitle fallback for company, got %q", second.Company)
	}
	if second.Location != "" {
		t.Errorf("expected empty location, got %q", second.Location)
	}
	if second.PostingAge != "1 hour ago" {
		t.Errorf("posting age = %q", second.PostingAge)
	}
}

func TestExtractCards_EmptyPage(t *testing.T) {
	doc, err := ParseString("<html><body><p>No jobs</p></body></html>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cards := ExtractCards(doc); len(cards) != 0 {
		t.Fatalf("expected no cards, got %d", len(cards))
	}
}

func TestExtractListing(t *testing.T) {
	l, ok := ExtractListing(loadFixture(t, "listing_page.html"))
	if !ok {
		t.Fatal("expected listing to be recognized")
	}
	if l.Title != "Senior Go Engineer" || l.Company != "Acme & Co" {
		t.Errorf("unexpected title/company: %q / %q", l.Title, l.Company)
	}
	if l.Location != "Berlin, Germany" {
		t.Errorf("location = %q", l.Location)
	}
	if l.PostingAge != "2 days ago" {
		t.Errorf("posting age = %q", l.PostingAge)
	}

	want := "We build fast systems.\n" +
		"What you will do:\n" +
		"• Write Go services\n" +
		"• Own the pipeline\n" +
		"Benefits\n" +
		"Remote friendly\n" +
		"Equity"
	if l.Description != want {
		t.Errorf("description mismatch\n got: %q\nwant: %q", l.Description, want)
	}
}

func TestExtractListing_NotAListing(t *testing.T) {
	doc, err := ParseString(`<html><body><h1 class="top-card-layout__title">Title only</h1></body></html>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ExtractListing(doc); ok {
		t.Fatal("expected page without company to be rejected")
	}
}

func TestExtractDescription_Missing(t *testing.T) {
	doc, err := ParseString("<html><body><div>nothing here</div></body></html>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ExtractDescription(doc); got != "" {
		t.Fatalf("expected empty description, got %q", got)
	}
}

func TestRichText_NestedLists(t *testing.T) {
	doc, err := ParseString(`<div id="d"><ol><li>One<ul><li>Nested <b>bold</b></li></ul></li><li><p>Two</p></li></ol></div>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, ok := doc.FindFirst("#d")
	if !ok {
		t.Fatal("expected container")
	}
	want := "• One\n• Nested bold\n• Two"
	if got := n.RichText(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  plain   text ", "plain text"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"&lt;p&gt;Hello&lt;/p&gt;", "Hello"},
		{"<b>bold</b>\n\tline\x00two", "bold line two"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJobIDFromURL(t *testing.T) {
	tests := []struct {
		url    string
		wantID string
		wantOK bool
	}{
		{"https://www.linkedin.com/jobs/view/3801234567/", "3801234567", true},
		{"https://www.linkedin.com/jobs/view/3801234567", "3801234567", true},
		{"https://uk.linkedin.com/jobs/view/go-engineer-at-acme-3801234567?trk=x", "3801234567", true},
		{"https://www.linkedin.com/jobs/search/?currentJobId=3801234567", "3801234567", true},
		{"https://www.linkedin.com/jobs/view/not-a-job/", "", false},
		{"https://www.linkedin.com/company/acme", "", false},
		{"::not a url", "", false},
	}
	for _, tt := range tests {
		id, ok := JobIDFromURL(tt.url)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("JobIDFromURL(%q) = (%q, %v), want (%q, %v)", tt.url, id, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestIDFromURN(t *testing.T) {
	if got := IDFromURN("urn:li:jobPosting:123"); got != "123" {
		t.Errorf("got %q", got)
	}
	if got := IDFromURN("urn:li:jobPosting:"); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
	if got := IDFromURN("garbage"); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}
