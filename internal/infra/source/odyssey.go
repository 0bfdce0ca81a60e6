package source

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vietddude/docket/internal/core/domain"
)

var (
	hearingTimeRe = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s*[AP]M\b`)
	officerRe     = regexp.MustCompile(`\(Judicial Officer:?\s*([^)]+)\)`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// summaryFields maps Odyssey summary labels to record fields.
var summaryFields = map[string]string{
	"case type":        "case_type",
	"date filed":       "date_filed",
	"location":         "location",
	"judicial officer": "judicial_officer",
}

// OdysseyParser reads case detail pages of Tyler Odyssey public access portals.
func OdysseyParser(county string) ParseFunc {
	return func(html string) (domain.CaseRecord, error) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, &ParseError{Reason: err.Error()}
		}

		caseNumber := clean(doc.Find("div.ssCaseDetailCaseNbr span").First().Text())
		if caseNumber == "" {
			if strings.Contains(strings.ToLower(doc.Text()), "no cases matched") {
				return nil, ErrCaseNotFound
			}
			return nil, &ParseError{Reason: "no case number on page"}
		}

		rec := domain.CaseRecord{
			domain.CaseNumberField: caseNumber,
			"county":               county,
			"style":                clean(doc.Find("td.ssCaseDetailStyle, div.ssCaseDetailStyle").First().Text()),
		}

		doc.Find("th.ssTableHeaderLabel").Each(func(_ int, th *goquery.Selection) {
			label := strings.ToLower(strings.TrimSuffix(clean(th.Text()), ":"))
			if field, ok := summaryFields[label]; ok {
				rec[field] = clean(th.NextFiltered("td").Text())
			}
		})

		rec["parties"] = parseParties(doc)

		events, hearings := parseEvents(doc)
		rec["events"] = events
		rec["hearings"] = hearings

		return rec, nil
	}
}

func parseParties(doc *goquery.Document) []any {
	parties := []any{}
	doc.Find(`th[id^="PIr0"]`).Each(func(_ int, role *goquery.Selection) {
		name := role.NextFiltered(`th[id^="PIr1"]`)
		if name.Length() == 0 {
			return
		}
		parties = append(parties, map[string]any{
			"role": clean(role.Text()),
			"name": clean(name.Text()),
		})
	})
	return parties
}

func parseEvents(doc *goquery.Document) (events, hearings []any) {
	events, hearings = []any{}, []any{}

	doc.Find(`th[id^="RCDER"]`).Each(func(_ int, th *goquery.Selection) {
		date := clean(th.Text())
		cell := th.NextAllFiltered("td").Last()
		name := clean(cell.Find("b").First().Text())
		if name == "" {
			return
		}
		detail := clean(cell.Text())

		events = append(events, map[string]any{"date": date, "event": name})

		lower := strings.ToLower(name)
		if !strings.Contains(lower, "hearing") && !strings.Contains(lower, "trial") {
			return
		}
		hearing := map[string]any{
			"date":    date,
			"type":    name,
			"time":    hearingTimeRe.FindString(detail),
			"officer": "",
		}
		if m := officerRe.FindStringSubmatch(detail); m != nil {
			hearing["officer"] = clean(m[1])
		}
		hearings = append(hearings, hearing)
	})

	return events, hearings
}

func clean(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
