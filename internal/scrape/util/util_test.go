package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Software Engineer Intern", CleanText("\n   Software Engineer \t Intern \n"))
	assert.Equal(t, "", CleanText("   "))
}

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{
			"https://www.linkedin.com/jobs/view/software-engineer-intern-at-acme-4012345678?position=1&pageNum=0&refId=abc&trackingId=xyz",
			"https://www.linkedin.com/jobs/view/software-engineer-intern-at-acme-4012345678",
		},
		{
			"https://WWW.LinkedIn.com/jobs/view/1?currentJobId=99&refId=1#frag",
			"https://www.linkedin.com/jobs/view/1?currentJobId=99",
		},
		{
			"https://boards.example.com/jobs/1?b=2&utm_source=x&a=1",
			"https://boards.example.com/jobs/1?a=1&b=2",
		},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalizeURL(tt.in), "input %q", tt.in)
	}
}
