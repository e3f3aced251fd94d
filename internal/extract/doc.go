// Package extract parses company-list pages: the records table on every page
// and the "Page N of M" copy on the listing page.
package extract
