package parser

import (
	"regexp"
	"strings"
)

var bidiMarks = regexp.MustCompile("[‎‏‪-‮]")

var arabicDigits = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
)

// arabicOrdinals maps ordinal words accepted in lecture tags to numbers.
var arabicOrdinals = map[string]int{
	"الأولى":  1,
	"الثانية": 2,
	"الثالثة": 3,
	"الرابعة": 4,
	"الخامسة": 5,
	"السادسة": 6,
	"السابعة": 7,
	"الثامنة": 8,
	"التاسعة": 9,
	"العاشرة": 10,
}

// lecturerPrefixes are honorifics that mark a lecturer tag. Longer prefixes
// are listed first so they win.
var lecturerPrefixes = []string{
	"الدكتور_",
	"الدكتورة_",
	"الأستاذ_",
	"الأستاذة_",
	"المهندس_",
	"المهندسة_",
	"م_",
}

// Clean strips bidirectional control marks and converts Arabic-Indic digits
// to their ASCII form.
func Clean(text string) string {
	return arabicDigits.Replace(bidiMarks.ReplaceAllString(text, ""))
}

// Normalize produces the canonical alias form: cleaned, trimmed, lower-cased.
func Normalize(alias string) string {
	return strings.ToLower(strings.TrimSpace(Clean(alias)))
}

// DisplayName turns an underscore-joined tag remainder into a display name.
func DisplayName(value string) string {
	cleaned := bidiMarks.ReplaceAllString(value, "")
	return strings.TrimSpace(strings.ReplaceAll(cleaned, "_", " "))
}
