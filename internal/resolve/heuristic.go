package resolve

import (
	"regexp"
	"strings"

	"github.com/sells-group/planfill-cli/internal/mapping"
)

// heuristicFromOptions matches selected field identifiers against the
// allowed-options lines by keyword overlap, used when the map entry's
// option rows are incomplete. Domain fast paths (safe-harbor money types,
// entry frequencies, graded-schedule "Other") run before the generic
// token-overlap scoring.
func (e *Engine) heuristicFromOptions(req Request) (string, bool) {
	tokensText := strings.TrimSpace(mapping.Unescape(req.OptionsAllowed))
	if tokensText == "" {
		return "", false
	}
	flags := req.Flags

	allNames := req.Entry.FieldIDs()
	var selected []string
	for _, n := range allNames {
		if flags.IsSelected(n) {
			selected = append(selected, n)
		}
	}

	selKw := make(map[string]bool)
	for _, n := range selected {
		fieldKeywords(n, selKw)
	}
	// No map-referenced selection: infer from globally selected fields.
	if len(selected) == 0 || len(selKw) == 0 {
		for name, f := range flags {
			if f.Selected {
				fieldKeywords(name, selKw)
			}
		}
	}

	tokenLines := mapping.Lines(req.OptionsAllowed)
	tokAll := strings.ToLower(tokensText)

	// Safe harbor: Match vs Profit Sharing.
	if (strings.Contains(tokAll, "match") || strings.Contains(tokAll, "profit")) && len(selKw) > 0 {
		if selKw["match"] {
			return "Match", true
		}
		if selKw["profit"] || selKw["nonelective"] {
			for _, line := range tokenLines {
				if strings.Contains(strings.ToLower(line), "profit") {
					return line, true
				}
			}
			return "Profit Sharing", true
		}
	}

	// Entry/allocation frequencies.
	for _, freq := range []string{"immediate", "monthly", "quarterly", "semi-annual", "semi annual", "annual", "weekly"} {
		first := strings.SplitN(freq, " ", 2)[0]
		first = strings.SplitN(first, "-", 2)[0]
		if strings.Contains(tokAll, freq) && selKw[first] {
			want := strings.ReplaceAll(freq, "semi-", "semi ")
			for _, line := range tokenLines {
				if strings.Contains(strings.ToLower(line), want) {
					return line, true
				}
			}
			if first == "semi" {
				return "Semi-Annual", true
			}
			return strings.ToUpper(freq[:1]) + freq[1:], true
		}
	}

	// A graded schedule with no direct token usually files under "Other".
	if selKw["graded"] {
		for _, line := range tokenLines {
			if strings.Contains(strings.ToLower(line), "other") {
				return line, true
			}
		}
	}

	if len(selected) == 0 || len(selKw) == 0 {
		return "", false
	}

	type scored struct {
		line   string
		tokens map[string]bool
	}
	sets := make([]scored, 0, len(tokenLines))
	for _, line := range tokenLines {
		sets = append(sets, scored{line: line, tokens: optionTokens(line)})
	}

	// Prefer a line whose tokens cover every selected keyword.
	for _, s := range sets {
		if subset(selKw, s.tokens) {
			return s.line, true
		}
	}
	// Otherwise the highest keyword overlap wins.
	best, bestScore := "", 0
	for _, s := range sets {
		score := 0
		for kw := range selKw {
			if s.tokens[kw] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = s.line, score
		}
	}
	if bestScore > 0 {
		return best, true
	}
	return "", false
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeWord canonicalizes unit spellings so option lines and field
// names agree on a vocabulary.
func normalizeWord(w string) string {
	w = strings.ToLower(w)
	w = strings.ReplaceAll(w, "%", " percent ")
	w = strings.ReplaceAll(w, "percentages", "percent")
	w = strings.ReplaceAll(w, "percents", "percent")
	w = strings.ReplaceAll(w, "dollars", "dollar")
	w = strings.ReplaceAll(w, "semi-monthly", "semi monthly")
	return strings.TrimSpace(nonAlnumRe.ReplaceAllString(w, " "))
}

func optionTokens(line string) map[string]bool {
	out := make(map[string]bool)
	for _, t := range strings.Fields(normalizeWord(line)) {
		if len(t) >= 2 {
			if t == "perc" {
				t = "percent"
			}
			out[t] = true
		}
	}
	return out
}

var fieldKeywordList = []string{
	"match", "profit", "immediate", "monthly", "quarterly", "semi",
	"annual", "weekly", "cliff", "graded", "retire", "disability",
	"death", "early", "vesting", "vest",
}

var digitsRe = regexp.MustCompile(`\d+`)

// fieldKeywords extracts matchable keywords from a field identifier into kw.
func fieldKeywords(name string, kw map[string]bool) {
	n := strings.ToLower(name)
	if strings.Contains(n, "dollar") {
		kw["dollar"] = true
	}
	if strings.Contains(n, "perc") {
		kw["percent"] = true
	}
	for _, k := range []string{"eaca", "qaca", "aca", "eqac"} {
		if strings.Contains(n, k) {
			kw[k] = true
		}
	}
	for _, k := range fieldKeywordList {
		if strings.Contains(n, k) {
			kw[k] = true
		}
	}
	if strings.Contains(n, "nonelective") || strings.Contains(n, "non elective") {
		kw["nonelective"] = true
	}
	for _, num := range digitsRe.FindAllString(n, -1) {
		kw[num] = true
	}
	if strings.Contains(n, "yr") || strings.Contains(n, "year") {
		kw["yr"] = true
	}
}

func subset(want, have map[string]bool) bool {
	for k := range want {
		if !have[k] {
			return false
		}
	}
	return true
}
