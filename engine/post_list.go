package engine

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/ardnew/brace/lang"
)

type clearPost struct{}

func (clearPost) Execute(_ *Call, results []string) ([]string, error) {
	return slices.DeleteFunc(slices.Clone(results), func(s string) bool { return s == "" }), nil
}

type firstPost struct{}

func (firstPost) Execute(_ *Call, results []string) ([]string, error) {
	return results[:min(1, len(results))], nil
}

// nthPost keeps the result at a 1-based position.
type nthPost struct{ params Params }

func (p nthPost) Execute(_ *Call, results []string) ([]string, error) {
	n, err := atoi(p.params.Key, "position", p.params.Arg(0))
	if err != nil {
		return nil, err
	}

	if n < 1 || n > len(results) {
		return nil, nil
	}

	return results[n-1 : n], nil
}

type lastPost struct{}

func (lastPost) Execute(_ *Call, results []string) ([]string, error) {
	return results[max(0, len(results)-1):], nil
}

type countPost struct{}

func (countPost) Execute(_ *Call, results []string) ([]string, error) {
	return []string{strconv.Itoa(len(results))}, nil
}

type joinPost struct{ params Params }

func (p joinPost) Execute(_ *Call, results []string) ([]string, error) {
	return []string{strings.Join(results, p.params.Arg(0))}, nil
}

// numbers returns the results that parse as numbers.
func numbers(results []string) []float64 {
	var out []float64

	for _, s := range results {
		if f, ok := lang.ParseNumber(s); ok {
			out = append(out, f)
		}
	}

	return out
}

// aggregatePost reduces the numeric results to one number. Results that are
// not numbers are ignored. Without numbers, sum is 0 and the others are
// empty.
type aggregatePost struct{ mode string }

func (p aggregatePost) Execute(_ *Call, results []string) ([]string, error) {
	nums := numbers(results)

	if len(nums) == 0 {
		if p.mode == "sum" {
			return []string{"0"}, nil
		}

		return []string{""}, nil
	}

	var v float64

	switch p.mode {
	case "min":
		v = slices.Min(nums)
	case "max":
		v = slices.Max(nums)
	default:
		for _, f := range nums {
			v += f
		}

		if p.mode == "avg" {
			v /= float64(len(nums))
		}
	}

	return []string{lang.FormatNumber(v)}, nil
}

type topPost struct{ params Params }

func (p topPost) Execute(_ *Call, results []string) ([]string, error) {
	n, err := atoi(p.params.Key, "count", p.params.Arg(0))
	if err != nil {
		return nil, err
	}

	return results[:min(max(n, 0), len(results))], nil
}

// sortKey returns the key a result is compared by: the matches of the
// pattern if one is given, otherwise the result itself.
func sortKey(x Extracted, s string) string {
	if x.Pattern == nil {
		return s
	}

	return strings.Join(x.Pattern.Matches(s, matchMode(x), ""), "")
}

// distinctPost keeps the first result of each distinct key.
type distinctPost struct{ params Params }

func (p distinctPost) Execute(_ *Call, results []string) ([]string, error) {
	x, err := p.params.Extract(0, false)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}

	var out []string

	for _, s := range results {
		if k := sortKey(x, s); !seen[k] {
			seen[k] = true
			out = append(out, s)
		}
	}

	return out, nil
}

// orderPost sorts the results by their key, descending with true.
type orderPost struct{ params Params }

func (p orderPost) Execute(_ *Call, results []string) ([]string, error) {
	x, err := p.params.Extract(0, false)
	if err != nil {
		return nil, err
	}

	desc := slices.Contains(x.Params, "true")
	out := slices.Clone(results)

	slices.SortStableFunc(out, func(a, b string) int {
		n := cmp.Compare(sortKey(x, a), sortKey(x, b))
		if desc {
			return -n
		}

		return n
	})

	return out, nil
}

// wherePost keeps the results in which the pattern matches a non-empty
// string; filterPost drops them.
type wherePost struct {
	params Params
	keep   bool
}

func (p wherePost) Execute(_ *Call, results []string) ([]string, error) {
	x, err := p.params.Extract(0, true)
	if err != nil {
		return nil, err
	}

	var out []string

	for _, s := range results {
		found := slices.ContainsFunc(x.Pattern.Matches(s, matchMode(x), ""), func(m string) bool { return m != "" })
		if found == p.keep {
			out = append(out, s)
		}
	}

	return out, nil
}
