package markup

import (
	"net/url"
	"regexp"
	"strings"
)

// Card is the raw content of one search result card. ID is empty when the
// card carries no recognizable listing identifier.
type Card struct {
	ID         string
	Title      string
	Company    string
	Location   string
	PostingAge string
	Link       string
}

// Listing is the content of a single listing page.
type Listing struct {
	Title       string
	Company     string
	Location    string
	PostingAge  string
	Description string
}

const (
	cardSelector = "div.base-search-card__info"
	cardLink     = "a.base-card__full-link"
	urnAttr      = "data-entity-urn"
)

var (
	cardTitle    = []string{"h3", ".base-search-card__title"}
	cardCompany  = []string{"a.hidden-nested-link", "h4.base-search-card__subtitle"}
	cardLocation = []string{"span.job-search-card__location"}
	cardAge      = []string{"time.job-search-card__listdate", "time.job-search-card__listdate--new", "time"}

	listingTitle       = []string{"h1.top-card-layout__title", "h2.top-card-layout__title", "h1"}
	listingCompany     = []string{"a.topcard__org-name-link", "span.topcard__flavor"}
	listingLocation    = []string{"span.topcard__flavor--bullet"}
	listingAge         = []string{"span.posted-time-ago__text"}
	listingDescription = []string{
		"div.description__text.description__text--rich",
		"div.show-more-less-html__markup",
		"div.description__text",
	}
)

// ExtractCards returns every usable card on a search results page in page
// order. Cards without a title or company are skipped.
func ExtractCards(doc Document) []Card {
	var cards []Card
	for _, n := range doc.FindAll(cardSelector) {
		c := Card{
			Title:      firstText(n, cardTitle),
			Company:    firstText(n, cardCompany),
			Location:   firstText(n, cardLocation),
			PostingAge: firstText(n, cardAge),
		}
		if c.Title == "" || c.Company == "" {
			continue
		}
		c.ID, c.Link = cardIdentity(n)
		cards = append(cards, c)
	}
	return cards
}

// cardIdentity reads the listing id from the enclosing card's entity URN,
// falling back to the id embedded in the card link.
func cardIdentity(info Node) (id, link string) {
	scope := info
	if p, ok := info.Parent(); ok {
		scope = p
		if urn, ok := p.Attr(urnAttr); ok {
			id = IDFromURN(urn)
		}
	}
	if a, ok := scope.FindFirst(cardLink); ok {
		link, _ = a.Attr("href")
		link = strings.TrimSpace(link)
	}
	if id == "" && link != "" {
		id, _ = JobIDFromURL(link)
	}
	return id, link
}

// ExtractListing reads a listing page. ok is false when the page has no
// title or company, which means it is not a listing.
func ExtractListing(doc Document) (Listing, bool) {
	l := Listing{
		Title:       firstText(doc, listingTitle),
		Company:     firstText(doc, listingCompany),
		Location:    firstText(doc, listingLocation),
		PostingAge:  firstText(doc, listingAge),
		Description: ExtractDescription(doc),
	}
	if l.Title == "" || l.Company == "" {
		return Listing{}, false
	}
	return l, true
}

// ExtractDescription returns the flattened description of a listing page,
// or "" when the page has none.
func ExtractDescription(doc Document) string {
	for _, sel := range listingDescription {
		if n, ok := doc.FindFirst(sel); ok {
			if text := n.RichText(); text != "" {
				return text
			}
		}
	}
	return ""
}

type finder interface {
	FindFirst(selector string) (Node, bool)
}

func firstText(scope finder, selectors []string) string {
	for _, sel := range selectors {
		if n, ok := scope.FindFirst(sel); ok {
			if text := n.Text(); text != "" {
				return text
			}
		}
	}
	return ""
}

var (
	digitsRegex   = regexp.MustCompile(`^\d+$`)
	viewPathRegex = regexp.MustCompile(`^/jobs/view/(?:[^/]*-)?(\d+)/?$`)
)

// IsJobID reports whether id looks like a listing identifier.
func IsJobID(id string) bool {
	return digitsRegex.MatchString(id)
}

// IDFromURN returns the trailing segment of "urn:li:jobPosting:<id>".
func IDFromURN(urn string) string {
	urn = strings.TrimSpace(urn)
	id := urn[strings.LastIndex(urn, ":")+1:]
	if !IsJobID(id) {
		return ""
	}
	return id
}

// JobIDFromURL extracts the listing id from "/jobs/view/<id>",
// "/jobs/view/<slug>-<id>" or a "currentJobId" query parameter.
func JobIDFromURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	if m := viewPathRegex.FindStringSubmatch(u.Path); m != nil {
		return m[1], true
	}
	if id := u.Query().Get("currentJobId"); IsJobID(id) {
		return id, true
	}
	return "", false
}
