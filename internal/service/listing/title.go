package listing

import (
	"strings"
	"unicode"
)

// UntitledProduct - заголовок, когда продавец ничего не сказал
const UntitledProduct = "Untitled Product"

// ExtractTitle достаёт заголовок из надиктованного описания.
// "Заголовок, описание" - берётся часть до первой запятой (точки, точки с запятой),
// иначе первые четыре слова.
func ExtractTitle(text string) string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '.' || r == ';'
	})
	var clauses []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			clauses = append(clauses, p)
		}
	}

	if len(clauses) > 1 {
		return capitalizeWords(clauses[0])
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return UntitledProduct
	}
	if len(words) > 4 {
		words = words[:4]
	}
	return capitalizeWords(strings.Join(words, " "))
}

// capitalizeWords поднимает первую букву каждого слова
func capitalizeWords(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if i == 0 || !isWordRune(runes[i-1]) {
			runes[i] = unicode.ToUpper(r)
		}
	}
	return string(runes)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
