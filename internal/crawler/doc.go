// Package crawler defines the records, fetch results, run summaries and
// collaborator contracts shared by the company-list crawl pipeline.
package crawler
