package scrape

import (
	"fmt"
	"strings"
)

// Layout identifies one of the positional schemas a flattened station chunk
// can have. The listing page publishes no schema, so the two tables below are
// the complete set of shapes we accept.
type Layout int

const (
	LayoutUnknown Layout = iota
	// Layout49 is the common shape: the address holds no comma or colon.
	Layout49
	// Layout50 appears when the address holds a comma or a colon, which splits
	// it into two tokens and shifts every later index by one.
	Layout50
)

func (l Layout) String() string {
	switch l {
	case Layout49:
		return "layout49"
	case Layout50:
		return "layout50"
	default:
		return "unknown"
	}
}

// fieldIndex points at the title token of a pair and the token(s) holding its
// value. Multi-token values are re-joined with the separator the flattening
// removed.
type fieldIndex struct {
	title  int
	values []int
}

type layoutTable struct {
	layout Layout
	fields []fieldIndex
}

var layoutTables = map[int]layoutTable{
	49: {
		layout: Layout49,
		fields: []fieldIndex{
			{title: 1, values: []int{2}},   // id
			{title: 3, values: []int{4}},   // slug
			{title: 5, values: []int{6}},   // name
			{title: 9, values: []int{10}},  // address
			{title: 13, values: []int{14}}, // availableDocks
			{title: 18, values: []int{19}}, // lat
			{title: 20, values: []int{21}}, // lon
			{title: 26, values: []int{28}}, // bike
			{title: 32, values: []int{34}}, // ebike
			{title: 38, values: []int{40}}, // ebike_with_childseat
		},
	},
	50: {
		layout: Layout50,
		fields: []fieldIndex{
			{title: 1, values: []int{2}},
			{title: 3, values: []int{4}},
			{title: 5, values: []int{6}},
			{title: 9, values: []int{10, 11}},
			{title: 14, values: []int{15}},
			{title: 19, values: []int{20}},
			{title: 21, values: []int{22}},
			{title: 27, values: []int{29}},
			{title: 33, values: []int{35}},
			{title: 39, values: []int{41}},
		},
	},
}

var (
	titleCleaner = strings.NewReplacer(`"`, "", "{", "")
	valueCleaner = strings.NewReplacer(`"`, "", "}", "", "]", "")
)

// flatten splits a chunk on commas and then on colons.
func flatten(chunk string) []string {
	tokens, _ := splitTokens(chunk)
	return tokens
}

// splitTokens is flatten that also reports, for every token, the separator
// that preceded it (0 for the first token).
func splitTokens(chunk string) ([]string, []byte) {
	pieces := strings.Split(chunk, ",")
	tokens := make([]string, 0, len(pieces)*2)
	seps := make([]byte, 0, len(pieces)*2)
	for i, piece := range pieces {
		for j, part := range strings.Split(piece, ":") {
			var sep byte = ':'
			if j == 0 {
				sep = ','
				if i == 0 {
					sep = 0
				}
			}
			tokens = append(tokens, part)
			seps = append(seps, sep)
		}
	}
	return tokens, seps
}

func tableFor(tokenCount int) (layoutTable, error) {
	table, ok := layoutTables[tokenCount]
	if !ok {
		return layoutTable{}, &LayoutError{Tokens: tokenCount}
	}
	return table, nil
}

// DetectLayout reports which positional schema a raw station chunk follows
func DetectLayout(chunk string) (Layout, error) {
	table, err := tableFor(len(flatten(chunk)))
	if err != nil {
		return LayoutUnknown, err
	}
	return table.layout, nil
}

// pairs reads the (title, value) pairs of tokens according to the table. The
// returned map is new for every call.
func (t layoutTable) pairs(tokens []string, seps []byte) (map[string]string, error) {
	fields := make(map[string]string, len(t.fields))
	for _, f := range t.fields {
		title := strings.TrimSpace(titleCleaner.Replace(tokens[f.title]))
		if title == "" {
			return nil, fmt.Errorf("%s: empty title at token %d: %w", t.layout, f.title, ErrUnknownStationLayout)
		}
		if _, dup := fields[title]; dup {
			return nil, fmt.Errorf("%s: duplicate title %q at token %d: %w", t.layout, title, f.title, ErrUnknownStationLayout)
		}

		var value strings.Builder
		for i, idx := range f.values {
			if i > 0 {
				value.WriteByte(seps[idx])
			}
			value.WriteString(tokens[idx])
		}
		fields[title] = strings.TrimSpace(valueCleaner.Replace(value.String()))
	}
	return fields, nil
}
