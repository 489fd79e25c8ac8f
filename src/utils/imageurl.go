package utils

import (
	"strings"
	"unicode"
)

const highResImageBaseURL = "https://oldschool.runescape.wiki/images/"

// HighResImageURL maps an item's display name to its wiki image URL.
// Wiki filenames use underscores for spaces and an uppercased first
// letter; literal '+' and '\'' must be percent-encoded by hand since
// they are valid path characters the wiki nevertheless escapes.
//
// The resulting URL is not verified to be reachable; callers supply a
// fallback on load failure.
func HighResImageURL(itemName string) string {
	if itemName == "" {
		return ""
	}

	name := strings.ReplaceAll(itemName, " ", "_")
	runes := []rune(name)
	runes[0] = unicode.ToUpper(runes[0])
	name = string(runes)

	name = strings.ReplaceAll(name, "+", "%2B")
	name = strings.ReplaceAll(name, "'", "%27")

	return highResImageBaseURL + name + ".png"
}

// IconDataURL wraps a raw icon field as a base64 PNG data URI. Input that
// already is a data URI passes through unchanged; empty input stays empty.
func IconDataURL(rawIcon string) string {
	if rawIcon == "" {
		return ""
	}
	if strings.HasPrefix(rawIcon, "data:image/") {
		return rawIcon
	}
	return "data:image/png;base64," + rawIcon
}
