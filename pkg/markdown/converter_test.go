package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSafeHTML(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		contains    []string
		notContains []string
	}{
		{
			name:        "emphasis and lists",
			input:       "**重要紧急**\n\n- 季度汇报\n- 回复邮件",
			contains:    []string{"<strong>重要紧急</strong>", "<li>季度汇报</li>", "<ul>"},
			notContains: []string{"<br"},
		},
		{
			name:        "multi item list has no line breaks inside items",
			input:       "1. 回复邮件\n2. 整理文档\n3. 安排会议",
			contains:    []string{"<li>回复邮件</li>", "<li>整理文档</li>", "<li>安排会议</li>"},
			notContains: []string{"<br"},
		},
		{
			name:     "code block keeps language class",
			input:    "```go\nfmt.Println(1)\n```",
			contains: []string{"<pre><code class=\"language-go\">", "fmt.Println(1)"},
		},
		{
			name:        "script stripped",
			input:       "hello <script>alert(1)</script>",
			contains:    []string{"hello"},
			notContains: []string{"<script", "alert(1)"},
		},
		{
			name:        "javascript links dropped",
			input:       "[click](javascript:void)",
			notContains: []string{"javascript:"},
		},
		{
			name:     "external links get nofollow",
			input:    "[docs](https://example.com)",
			contains: []string{`href="https://example.com"`, `rel="nofollow`, `target="_blank"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ToSafeHTML(tt.input)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestToSafeHTML_Empty(t *testing.T) {
	assert.Equal(t, "", ToSafeHTML(""))
	assert.Equal(t, "", ToSafeHTML("  \n"))
}
