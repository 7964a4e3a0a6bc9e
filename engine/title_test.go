package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageTitle(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"<html><head><title> Dick's Bar, Porto </title></head></html>", "Dick's Bar, Porto"},
		{"<title>a</title><title>b</title>", "a"},
		{"<title></title>", ""},
		{"<h1>no title</h1>", ""},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, PageTitle(tt.body), tt.body)
	}
}
