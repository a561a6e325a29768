package markdown

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var policy = bluemonday.UGCPolicy()

func init() {
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code")
}

// ToSafeHTML renders assistant markdown to HTML that is safe to inject into a page
func ToSafeHTML(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	// Render with blackfriday, then strip anything the policy does not allow
	unsafeHTML := blackfriday.Run([]byte(markdown), blackfriday.WithExtensions(blackfriday.CommonExtensions))

	return strings.TrimSpace(string(policy.SanitizeBytes(unsafeHTML)))
}
