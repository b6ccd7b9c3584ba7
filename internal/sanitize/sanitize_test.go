package sanitize

import "testing"

func TestText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"<b>bold</b> text", "bold text"},
		{"<script>alert(1)</script>safe", "safe"},
		{`<img src=x onerror=alert(1)>`, ""},
		{"a < b && b > c", "a < b && b > c"},
		{"Tom & Jerry", "Tom & Jerry"},
		{`<a href="https://example.com">link</a>`, "link"},
	}

	for _, tc := range cases {
		if got := Text(tc.in); got != tc.want {
			t.Errorf("Text(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
