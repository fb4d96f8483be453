package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		wantTitle string
		wantDesc  string
		wantHTML  []string
		wantNot   []string
		truncated bool
	}{
		{
			name: "strips scripts and styles",
			input: `<html>
				<head>
					<title>Test Page</title>
					<meta name="description" content="Test description">
					<script>alert('evil');</script>
					<style>body { color: red; }</style>
				</head>
				<body>
					<h1 id="main-title">Hello World</h1>
					<p class="intro">This is a test.</p>
				</body>
			</html>`,
			maxLength: 10000,
			wantTitle: "Test Page",
			wantDesc:  "Test description",
			wantHTML:  []string{`<h1 id="main-title">Hello World</h1>`, `<p class="intro">This is a test.</p>`},
			wantNot:   []string{"<script>", "alert", "<style>", "color: red", "<head>", "<body>"},
		},
		{
			name: "keeps targeting attributes",
			input: `<html><body>
				<form action="/login" method="post">
					<label for="email">Email</label>
					<input type="email" name="email" id="email" placeholder="you@example.com" data-testid="email-input" aria-required="true" style="width:10px">
					<button type="submit" class="btn" onclick="go()">Sign in</button>
				</form>
			</body></html>`,
			maxLength: 10000,
			wantHTML: []string{
				`<form action="/login" method="post">`,
				`<label for="email">Email</label>`,
				`data-testid="email-input"`,
				`aria-required="true"`,
				`placeholder="you@example.com"`,
				`<button type="submit" class="btn">Sign in</button>`,
			},
			wantNot: []string{"style=", "onclick", "</input>"},
		},
		{
			name:      "drops comments and collapses whitespace",
			input:     "<div><!-- hidden -->Hello\n\n    world</div>",
			maxLength: 10000,
			wantHTML:  []string{"<div>Hello world</div>"},
			wantNot:   []string{"hidden"},
		},
		{
			name:      "truncates long text",
			input:     "<p>" + strings.Repeat("a", 200) + "</p>",
			maxLength: 50,
			wantHTML:  []string{"..."},
			truncated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cleanHTML(tt.input, tt.maxLength)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTitle, got.Title)
			assert.Equal(t, tt.wantDesc, got.Description)
			assert.Equal(t, tt.truncated, got.Truncated)
			for _, want := range tt.wantHTML {
				assert.Contains(t, got.HTML, want)
			}
			for _, not := range tt.wantNot {
				assert.NotContains(t, got.HTML, not)
			}
		})
	}
}

func TestCleanHTMLTruncationBudget(t *testing.T) {
	got, err := cleanHTML("<p>"+strings.Repeat("word ", 500)+"</p>", 100)
	require.NoError(t, err)

	assert.True(t, got.Truncated)
	assert.LessOrEqual(t, len(got.HTML), 100+len("...")+len("</p>"))
}

func TestKeepAttribute(t *testing.T) {
	assert.True(t, keepAttribute("data-cy"))
	assert.True(t, keepAttribute("ARIA-LABEL"))
	assert.True(t, keepAttribute("href"))
	assert.False(t, keepAttribute("style"))
	assert.False(t, keepAttribute("onclick"))
}
