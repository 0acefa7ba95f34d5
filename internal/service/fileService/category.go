package fileService

import (
	"strings"

	"filetree-service/internal/model/fileInfo"
)

type categoryRule struct {
	match    func(mimeType string) bool
	category fileInfo.Category
}

// categoryRules is evaluated top to bottom; the first match wins.
var categoryRules = []categoryRule{
	{hasPrefix("image/"), fileInfo.CategoryImage},
	{hasPrefix("video/"), fileInfo.CategoryVideo},
	{containsAny("pdf"), fileInfo.CategoryPDF},
	{containsAny("excel", "spreadsheet"), fileInfo.CategoryExcel},
	{containsAny("word", "document"), fileInfo.CategoryDocument},
}

// Categorize maps a declared media type to a file category.
func Categorize(mimeType string) fileInfo.Category {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	for _, rule := range categoryRules {
		if rule.match(m) {
			return rule.category
		}
	}
	return fileInfo.CategoryOther
}

func hasPrefix(prefix string) func(string) bool {
	return func(m string) bool { return strings.HasPrefix(m, prefix) }
}

func containsAny(subs ...string) func(string) bool {
	return func(m string) bool {
		for _, sub := range subs {
			if strings.Contains(m, sub) {
				return true
			}
		}
		return false
	}
}
