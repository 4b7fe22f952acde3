package mailer

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"unicode/utf8"

	"MorningDigest/internal/domain"
)

//go:embed templates
var templateFS embed.FS

const highlightPlaceholder = "요약 정보가 준비중입니다."

// summaryExtensionLimit is how many characters a summary may add to its own
// headline and still count as a repeat. Tunable.
const summaryExtensionLimit = 8

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/digest.html"))
	textTmpl = texttemplate.Must(texttemplate.New("digest.txt").
			Funcs(texttemplate.FuncMap{"inc": func(i int) int { return i + 1 }}).
			ParseFS(templateFS, "templates/digest.txt"))
)

// Content is a digest rendered for email.
type Content struct {
	Subject string
	HTML    string
	Text    string
}

type articleView struct {
	Headline   string
	Summary    string
	SourceName string
	SourceURL  string
}

type digestView struct {
	GroupName   string
	Date        string
	Highlights  []string
	Placeholder string
	Articles    []articleView
}

// RenderDigestEmail produces the subject, HTML and plain-text views of issue.
func RenderDigestEmail(issue domain.DigestIssue) (Content, error) {
	view := digestView{
		GroupName:   issue.GroupName,
		Date:        issue.Date,
		Highlights:  issue.Highlights,
		Placeholder: highlightPlaceholder,
		Articles:    make([]articleView, 0, len(issue.Articles)),
	}
	for _, article := range issue.Articles {
		summary := article.Summary
		if summaryRepeatsHeadline(article.Headline, summary) {
			summary = ""
		}
		view.Articles = append(view.Articles, articleView{
			Headline:   article.Headline,
			Summary:    summary,
			SourceName: article.SourceName,
			SourceURL:  article.SourceURL,
		})
	}

	var html, text bytes.Buffer
	if err := htmlTmpl.Execute(&html, view); err != nil {
		return Content{}, err
	}
	if err := textTmpl.Execute(&text, view); err != nil {
		return Content{}, err
	}

	return Content{
		Subject: issue.Subject,
		HTML:    html.String(),
		Text:    strings.TrimSpace(text.String()),
	}, nil
}

// summaryRepeatsHeadline is true for an empty summary, a summary equal to the
// headline, or one that only appends a few characters to it.
func summaryRepeatsHeadline(headline, summary string) bool {
	h := strings.TrimSpace(headline)
	s := strings.TrimSpace(summary)
	if s == "" || s == h {
		return true
	}
	if h == "" || !strings.HasPrefix(s, h) {
		return false
	}
	return utf8.RuneCountInString(s)-utf8.RuneCountInString(h) <= summaryExtensionLimit
}
