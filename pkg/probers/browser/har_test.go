package browser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netzbremse/nb-speedtest/pkg/probers/browser"
)

func TestSummarizeHAR(t *testing.T) {
	testCases := map[string]struct {
		given       string
		expect      browser.HARSummary
		expectError bool
	}{
		"not-json": {
			given:       `<html>`,
			expectError: true,
		},
		"empty-object": {
			given:  `{}`,
			expect: browser.HARSummary{},
		},
		"empty-log": {
			given:  `{"log":{"version":"1.2","creator":{"name":"puppeteer-har","version":"1.0"}}}`,
			expect: browser.HARSummary{},
		},
		"recording": {
			given: `{"log":{
				"version": "1.2",
				"creator": {"name":"puppeteer-har","version":"1.0"},
				"pages": [
					{"id":"page_1","title":"speed test","startedDateTime":"2024-01-15T10:30:00.000Z","pageTimings":{"onContentLoad":812.5,"onLoad":1250.5}}
				],
				"entries": [
					{"startedDateTime":"2024-01-15T10:30:00.100Z","time":42,"request":{"method":"GET","url":"https://example.com/","httpVersion":"HTTP/2.0","cookies":[],"headers":[],"queryString":[],"headersSize":-1,"bodySize":0},"response":{"status":200,"statusText":"OK","httpVersion":"HTTP/2.0","cookies":[],"headers":[],"content":{"size":512,"mimeType":"text/html"},"redirectURL":"","headersSize":-1,"bodySize":512},"cache":{},"timings":{"send":1,"wait":20,"receive":21}},
					{"startedDateTime":"2024-01-15T10:30:01.000Z","time":900,"request":{"method":"GET","url":"https://example.com/__down?bytes=1024","httpVersion":"HTTP/2.0","cookies":[],"headers":[],"queryString":[],"headersSize":-1,"bodySize":0},"response":{"status":200,"statusText":"OK","httpVersion":"HTTP/2.0","cookies":[],"headers":[],"content":{"size":1024,"mimeType":"application/octet-stream"},"redirectURL":"","headersSize":-1,"bodySize":1024},"cache":{},"timings":{"send":1,"wait":9,"receive":890}},
					{"startedDateTime":"2024-01-15T10:30:02.000Z","time":5,"request":{"method":"GET","url":"https://example.com/favicon.ico","httpVersion":"HTTP/2.0","cookies":[],"headers":[],"queryString":[],"headersSize":-1,"bodySize":0},"response":{"status":404,"statusText":"Not Found","httpVersion":"HTTP/2.0","cookies":[],"headers":[],"content":{"size":0,"mimeType":""},"redirectURL":"","headersSize":-1,"bodySize":-1},"cache":{},"timings":{"send":1,"wait":2,"receive":2}}
				]
			}}`,
			expect: browser.HARSummary{
				Pages:      1,
				Entries:    3,
				TotalBytes: 1536,
				OnLoadMs:   1250.5,
			},
		},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			got, err := browser.SummarizeHAR([]byte(test.given))
			if test.expectError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, test.expect, got)
			}
		})
	}
}

func TestHARSummary_String(t *testing.T) {
	summary := browser.HARSummary{Pages: 1, Entries: 12, TotalBytes: 4096, OnLoadMs: 987.6}
	require.Equal(t, "1 page(s), 12 request(s), 4096 bytes transferred, onLoad=988ms", summary.String())
}
