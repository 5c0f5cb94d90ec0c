package utils

import (
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HardenHTML 为评论 HTML 中的图片和外链增加安全属性
func HardenHTML(htmlStr string) template.HTML {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return template.HTML(htmlStr)
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
			s.SetAttr("rel", "nofollow noopener noreferrer")
			s.SetAttr("target", "_blank")
		}
	})

	// goquery wraps fragments in html/body, keep only the body content
	out, _ := doc.Find("body").Html()
	if out == "" {
		out, _ = doc.Html()
	}
	return template.HTML(out)
}

// PlainText strips markup, used for notification and mail excerpts.
func PlainText(htmlStr string, limit int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return Truncate(htmlStr, limit)
	}
	return Truncate(strings.Join(strings.Fields(doc.Text()), " "), limit)
}

// Truncate cuts s to at most limit runes, appending an ellipsis when cut.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
