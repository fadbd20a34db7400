package matching

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"moviepilot/internal/config"
	"moviepilot/internal/media"
)

const megabyte = 1 << 20

// Filter applies release rules after identity matching.
type Filter struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
	minSize int64
	maxSize int64
	minRank int
}

// NewFilter compiles the configured rules.
func NewFilter(cfg config.Filter) (*Filter, error) {
	f := &Filter{
		minSize: int64(cfg.MinSizeMB) * megabyte,
		maxSize: int64(cfg.MaxSizeMB) * megabyte,
	}
	if cfg.MinResolution != "" {
		f.minRank = media.ResolutionRank(cfg.MinResolution)
	}
	var err error
	if f.include, err = compileAll(cfg.Include); err != nil {
		return nil, fmt.Errorf("filter include: %w", err)
	}
	if f.exclude, err = compileAll(cfg.Exclude); err != nil {
		return nil, fmt.Errorf("filter exclude: %w", err)
	}
	return f, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// Accept reports whether cand passes every rule, with the failing rule.
func (f *Filter) Accept(cand Candidate) (bool, string) {
	if f == nil {
		return true, ""
	}
	title := cand.Raw.Title
	for _, re := range f.exclude {
		if re.MatchString(title) {
			return false, "excluded by " + re.String()
		}
	}
	if len(f.include) > 0 {
		matched := false
		for _, re := range f.include {
			if re.MatchString(title) {
				matched = true
				break
			}
		}
		if !matched {
			return false, "no include rule matched"
		}
	}
	size := cand.Raw.Size
	if size > 0 && f.minSize > 0 && size < f.minSize {
		return false, "below minimum size"
	}
	if size > 0 && f.maxSize > 0 && size > f.maxSize {
		return false, "above maximum size"
	}
	if f.minRank > 0 && media.ResolutionRank(cand.Guess.Resolution) < f.minRank {
		return false, "below minimum resolution"
	}
	return true, ""
}

// Apply keeps accepted candidates, best quality first.
func (f *Filter) Apply(candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if ok, _ := f.Accept(cand); ok {
			out = append(out, cand)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
