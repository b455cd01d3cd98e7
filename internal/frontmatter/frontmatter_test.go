package frontmatter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		raw     string
		body    string
		had     bool
		wantErr bool
	}{
		{name: "no front matter", in: "# Hello\n", body: "# Hello\n"},
		{name: "lf", in: "---\ntitle: x\n---\nbody\n", raw: "title: x\n", body: "body\n", had: true},
		{name: "crlf", in: "---\r\ntitle: x\r\n---\r\nbody\r\n", raw: "title: x\r\n", body: "body\r\n", had: true},
		{name: "empty block", in: "---\n---\nbody", raw: "", body: "body", had: true},
		{name: "closing at eof", in: "---\ntitle: x\n---", raw: "title: x\n", body: "", had: true},
		{name: "unterminated", in: "---\ntitle: x\nbody\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, body, had, err := Split([]byte(tt.in))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnterminated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw, string(raw))
			assert.Equal(t, tt.body, string(body))
			assert.Equal(t, tt.had, had)
		})
	}
}

func TestParse_FieldsTitleDate(t *testing.T) {
	doc, err := Parse([]byte("---\ntitle: My Post\ndate: 2024-03-01 10:00:00 +0100\ntags: [a, b]\n---\nHello\n"))
	require.NoError(t, err)
	assert.Equal(t, "My Post", doc.Title())
	d, ok := doc.Date()
	require.True(t, ok)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, "Hello\n", doc.Body)
}

func TestParse_NoFrontMatter(t *testing.T) {
	doc, err := Parse([]byte("just text"))
	require.NoError(t, err)
	assert.False(t, doc.Had)
	assert.Empty(t, doc.Fields)
	assert.Empty(t, doc.Title())
	_, ok := doc.Date()
	assert.False(t, ok)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("---\ntitle: [unclosed\n---\nbody\n"))
	require.Error(t, err)
}

func TestFingerprint_StableAndContentSensitive(t *testing.T) {
	a, err := Fingerprint([]byte("---\ntitle: A\n---\nbody\n"))
	require.NoError(t, err)
	b, err := Fingerprint([]byte("---\ntitle: A\n---\nbody\n"))
	require.NoError(t, err)
	c, err := Fingerprint([]byte("---\ntitle: A\n---\nbody changed\n"))
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestFingerprint_IgnoresExistingFingerprintField(t *testing.T) {
	plain, err := Fingerprint([]byte("---\ntitle: A\n---\nbody\n"))
	require.NoError(t, err)
	stamped, err := Fingerprint([]byte("---\ntitle: A\nfingerprint: abc\n---\nbody\n"))
	require.NoError(t, err)
	assert.Equal(t, plain, stamped)
}
