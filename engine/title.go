package engine

import (
	"strings"

	"golang.org/x/net/html"
)

// PageTitle returns the trimmed text of the first <title> element, or "".
func PageTitle(body string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(body))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) != "title" {
				continue
			}
			if tokenizer.Next() == html.TextToken {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
			return ""
		}
	}
}
