package site

import (
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// HTMLFiles returns every .html/.htm file under dir, relative to dir with
// forward slashes, sorted.
func HTMLFiles(dir string) ([]string, error) {
	var out []string

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !IsHTML(p) {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	sort.Strings(out)
	return out, nil
}

func IsHTML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// PageURL joins a site root URL and a page path relative to it. Each path
// segment is escaped, so file names with spaces or non-ASCII characters
// produce valid URLs.
func PageURL(base, rel string) string {
	base = strings.TrimRight(base, "/")
	rel = strings.TrimLeft(filepath.ToSlash(rel), "/")

	parts := strings.Split(rel, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}

	return base + "/" + path.Join(parts...)
}

// ParseFileList splits a list of files given as one string. A list that
// contains a comma is comma separated, otherwise any whitespace separates
// entries.
func ParseFileList(s string) []string {
	var fields []string
	if strings.Contains(s, ",") {
		fields = strings.Split(s, ",")
	} else {
		fields = strings.Fields(s)
	}

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// TrimPublicPrefix turns repository paths such as "public/about/index.html"
// into site paths ("about/index.html"). Paths outside publicDir are
// returned unchanged.
func TrimPublicPrefix(p, publicDir string) string {
	p = strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(p)), "./")

	dir := filepath.ToSlash(filepath.Clean(publicDir))
	if dir == "." {
		return p
	}
	return strings.TrimPrefix(p, dir+"/")
}
