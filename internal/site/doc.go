// Package site locates the pages of a built static site and serves them
// over HTTP so they can be checked the same way a browser would load them.
package site
