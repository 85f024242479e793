package searchengine

import (
	"net/url"
	"strconv"
	"strings"
)

// ParamFilter is one primary search-parameter occurrence: its modifier
// (":exact", ":not", ":missing", or "" for none) and the comma-OR'd value
// list for that occurrence. Repeated occurrences of the same parameter
// name are ANDed by the engine; url.Values naturally preserves that
// distinction (each repeated query key becomes a separate slice element).
type ParamFilter struct {
	Name     string
	Modifier string
	Values   []string
}

// ChainedFilter is "A.b.c=v": Field is "b" (a reference-typed parameter on
// A), SubParam is "c" (a parameter on the target type B).
type ChainedFilter struct {
	Field    string
	SubParam string
	Values   []string
}

// Classified holds the parameter classification spec §4.H step 1 requires.
type Classified struct {
	Primary     []ParamFilter
	Include     []string
	RevInclude  []string
	Chained     []ChainedFilter
	Sort        []string
	Count       int
	Offset      int
	Page        string
	Summary     string // "", "text", "data", "true"
	Total       string // "none", "estimate", "accurate"
}

// Classify splits raw query parameters into primary filters and the
// control parameters spec §4.H names.
func Classify(q url.Values, defaultCount, maxCount int) Classified {
	c := Classified{Count: defaultCount, Total: "none"}

	for name, occurrences := range q {
		switch name {
		case "_include":
			c.Include = append(c.Include, occurrences...)
			continue
		case "_revinclude":
			c.RevInclude = append(c.RevInclude, occurrences...)
			continue
		case "_sort":
			for _, v := range occurrences {
				c.Sort = append(c.Sort, strings.Split(v, ",")...)
			}
			continue
		case "_count":
			if len(occurrences) > 0 {
				if n, err := strconv.Atoi(occurrences[0]); err == nil && n > 0 {
					c.Count = n
				}
			}
			continue
		case "_offset":
			if len(occurrences) > 0 {
				if n, err := strconv.Atoi(occurrences[0]); err == nil && n >= 0 {
					c.Offset = n
				}
			}
			continue
		case "_page":
			if len(occurrences) > 0 {
				c.Page = occurrences[0]
			}
			continue
		case "_summary":
			if len(occurrences) > 0 {
				c.Summary = occurrences[0]
			}
			continue
		case "_total":
			if len(occurrences) > 0 {
				c.Total = occurrences[0]
			}
			continue
		}

		base, modifier := splitModifier(name)
		if field, sub, ok := splitChain(base); ok {
			for _, occ := range occurrences {
				c.Chained = append(c.Chained, ChainedFilter{Field: field, SubParam: sub, Values: splitComma(occ)})
			}
			continue
		}

		for _, occ := range occurrences {
			c.Primary = append(c.Primary, ParamFilter{Name: base, Modifier: modifier, Values: splitComma(occ)})
		}
	}

	if c.Count > maxCount {
		c.Count = maxCount
	}
	return c
}

func splitModifier(name string) (base, modifier string) {
	idx := strings.Index(name, ":")
	if idx < 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

// splitChain recognizes "A.b" chained-parameter syntax: field "b" dotted
// with a sub-parameter. A bare name with no dot is not a chain.
func splitChain(name string) (field, sub string, ok bool) {
	idx := strings.Index(name, ".")
	if idx < 0 {
		return "", "", false
	}
	return name[:idx], name[idx+1:], true
}

func splitComma(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
