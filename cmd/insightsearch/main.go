// Package main provides the entry point for the insightsearch CLI.
//
// insightsearch runs depth-bounded, relevance-guided web crawls: it
// seeds a frontier from web search results, extracts each page as
// Markdown, classifies it against the user's query with an LLM, and
// follows links from relevant pages level by level.
//
// Usage:
//
//	insightsearch crawl
//
// See --help for all available options.
package main

// main is the entry point for insightsearch.
func main() {
	Execute()
}
