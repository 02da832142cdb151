// Package lexicon holds the lexical resources used to decide whether a
// URL, DOI or candidate name plausibly refers to a dataset: known
// data-repository domains, DataCite DOI prefixes, English stopwords and
// a blacklist of terms too generic to name a dataset.
package lexicon

import (
	"bufio"
	"bytes"
	"embed"
	"regexp"
	"strings"
	"sync"
)

//go:embed resources/*.txt
var resources embed.FS

// URLPattern matches URLs possibly broken by whitespace, as they appear
// in extracted scientific text.
var URLPattern = regexp.MustCompile(`(?i)(https?|ftp)\s?:\s?//\s?[-A-Z0-9+&@#/%=~_:.]*[-A-Z0-9+&@#/%=~_]`)

// terms with not enough content to stand alone as a named dataset
var blacklistNamedDataset = []string{
	"data", "dataset", "datasets", "data set", "data sets", "cell", "cells",
	"file", "files", "model", "models", "record", "records", "column",
	"columns", "line", "lines", "patient", "patients", "normal", "discovery",
	"manuscript", "draft", "database", "data base", "databases", "data bases",
	"base", "bases", "square", "mission", "missions", "subject", "subjects",
}

// Lexicon is immutable after load and safe for concurrent use.
type Lexicon struct {
	domains     map[string]bool
	doiPrefixes map[string]bool
	stopwords   map[string]bool
	blacklist   map[string]bool
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
)

// Default returns the lexicon built from the embedded resources.
func Default() *Lexicon {
	defaultOnce.Do(func() {
		defaultLex = &Lexicon{
			domains:     loadSet("resources/domains.txt", false),
			doiPrefixes: loadSet("resources/doi_prefixes.txt", false),
			stopwords:   loadSet("resources/stopwords_en.txt", false),
			blacklist:   loadSet("resources/blacklist_biomed.txt", true),
		}
		for _, term := range blacklistNamedDataset {
			defaultLex.blacklist[term] = true
		}
	})
	return defaultLex
}

func loadSet(path string, lower bool) map[string]bool {
	out := make(map[string]bool)
	data, err := resources.ReadFile(path)
	if err != nil {
		// embedded resources are part of the build; absence is a bug
		panic("lexicon: missing resource " + path)
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if lower {
			line = strings.ToLower(line)
		}
		out[line] = true
	}
	return out
}

// IsDatasetURLOrDOI reports whether a URL or DOI points at a known data
// repository or carries a DataCite data DOI prefix.
func (l *Lexicon) IsDatasetURLOrDOI(value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}
	return l.IsDatasetURL(value) || l.IsDatasetDOI(value)
}

// IsDatasetURL reports whether the URL's host is a known data-repository
// domain.
func (l *Lexicon) IsDatasetURL(url string) bool {
	if strings.TrimSpace(url) == "" {
		return false
	}
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "www.")
	if ind := strings.Index(url, "/"); ind != -1 {
		url = url[:ind]
	}
	return l.domains[url]
}

// IsDatasetDOI reports whether the DOI carries a prefix collected from a
// DataCite dump.
func (l *Lexicon) IsDatasetDOI(doi string) bool {
	if doi == "" {
		return false
	}
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	if ind := strings.Index(doi, "/"); ind != -1 {
		doi = doi[:ind]
	}
	return l.doiPrefixes[doi]
}

// IsEnglishStopword reports whether the term is a stopword. Single
// characters are lowercased first.
func (l *Lexicon) IsEnglishStopword(term string) bool {
	if term == "" {
		return false
	}
	if len(term) == 1 {
		term = strings.ToLower(term)
	}
	return l.stopwords[term]
}

// RemoveLeadingStopwords strips stopwords from the front of a candidate
// dataset name.
func (l *Lexicon) RemoveLeadingStopwords(s string) string {
	s = strings.TrimSpace(s)
	for s != "" {
		fields := strings.SplitN(s, " ", 2)
		if len(fields) < 2 || !l.stopwords[fields[0]] {
			break
		}
		s = strings.TrimSpace(fields[1])
	}
	return s
}

// IsBlacklistedDatasetName reports whether the term is too generic or
// otherwise unsuitable as a named dataset.
func (l *Lexicon) IsBlacklistedDatasetName(term string) bool {
	if term == "" {
		return false
	}
	lowered := strings.ToLower(term)
	if l.blacklist[lowered] {
		return true
	}
	// models keep leaking through as dataset names; filter them wholesale
	if strings.HasSuffix(lowered, "model") || strings.HasSuffix(lowered, "models") {
		return true
	}
	// mis-decoded math glyphs
	if strings.HasPrefix(term, "ð") {
		return true
	}
	return false
}
