package text

import (
	"net/url"
	"regexp"
	"strings"
)

// referenceHeading matches the first heading that opens a reference or
// citation section. Everything from there on is bibliography noise for
// relevance classification.
var referenceHeading = regexp.MustCompile(`(?i)#+\s*(References|Citations|Bibliography|Sources|Literature|External links)`)

// FilterBody truncates markdown to the content before the first reference
// section heading. Input is returned unchanged when no such heading exists.
func FilterBody(markdown string) string {
	loc := referenceHeading.FindStringIndex(markdown)
	if loc == nil {
		return markdown
	}
	return strings.TrimSpace(markdown[:loc[0]])
}

var dropPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^mailto:`),
	regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/`),
	regexp.MustCompile(`^javascript:void\(0\);?$`),
	regexp.MustCompile(`^(https?://)?(www\.)?(donate\.wikimedia\.org|foundation\.wikimedia\.org)/`),
	regexp.MustCompile(`^(https?://)?(www\.)?quora\.com/`),
	regexp.MustCompile(`^(https?://)?(www\.)?pinterest\.com/`),
	regexp.MustCompile(`^(https?://)?(www\.)?facebook\.com/`),
	regexp.MustCompile(`^(https?://)?(www\.)?instagram\.com/`),
	regexp.MustCompile(`^(https?://)?(www\.)?twitter\.com/`),
}

var imageExtension = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|bmp|webp|svg|tiff|tif|ico)(\?.*)?$`)

var scholarLookup = regexp.MustCompile(`^(https?://)?scholar\.google\.com/scholar_lookup`)

// FilterLinks removes mail, social-network, fundraising, no-op script and
// direct-image links from the sequence, preserving input order. Google
// Scholar lookup redirects carrying a doi parameter are rewritten to the
// canonical DOI resolver; without one the redirect is kept as-is.
func FilterLinks(links []string) []string {
	cleaned := make([]string, 0, len(links))
	for _, link := range links {
		if dropLink(link) {
			continue
		}
		if scholarLookup.MatchString(link) {
			if doi := doiParam(link); doi != "" {
				cleaned = append(cleaned, "https://doi.org/"+doi)
				continue
			}
		}
		cleaned = append(cleaned, link)
	}
	return cleaned
}

func dropLink(link string) bool {
	for _, p := range dropPatterns {
		if p.MatchString(link) {
			return true
		}
	}
	return imageExtension.MatchString(link)
}

func doiParam(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Query().Get("doi")
}
