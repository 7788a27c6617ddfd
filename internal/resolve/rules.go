package resolve

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

// FieldLabel pairs a field identifier with its canonical short label.
type FieldLabel struct {
	Field string `yaml:"field"`
	Label string `yaml:"label"`
}

// CanonicalEntry maps a set of short-label synonyms to a verbose expansion.
type CanonicalEntry struct {
	Labels  []string `yaml:"labels"`
	Verbose string   `yaml:"verbose"`
}

// NumericCategory drives gated numeric extraction for one prompt keyword.
type NumericCategory struct {
	Keyword    string   `yaml:"keyword"`
	Fields     []string `yaml:"fields"`
	ScanTokens []string `yaml:"scan_tokens"`
}

// VestingRules groups the vesting-schedule inference tables.
type VestingRules struct {
	Graded    []FieldLabel `yaml:"graded"`
	Cliff     []FieldLabel `yaml:"cliff"`
	Immediate struct {
		Match       []string `yaml:"match"`
		NonElective []string `yaml:"nonelective"`
		SafeHarbor  []string `yaml:"safe_harbor"`
	} `yaml:"immediate"`
	Canonical       []CanonicalEntry `yaml:"canonical"`
	OtherTextFields []string         `yaml:"other_text_fields"`
}

// NumericRules drives gated numeric extraction.
type NumericRules struct {
	ScanPrefix string            `yaml:"scan_prefix"`
	Categories []NumericCategory `yaml:"categories"`
}

// ServiceRules drives service-requirement extraction.
type ServiceRules struct {
	FreeTextFields []string `yaml:"free_text_fields"`
	NumericFields  []string `yaml:"numeric_fields"`
	NameTokens     []string `yaml:"name_tokens"`
}

// Rules is the engine's immutable configuration, loaded once from the
// embedded table file so each table is independently testable.
type Rules struct {
	Vesting      VestingRules      `yaml:"vesting"`
	Numeric      NumericRules      `yaml:"numeric"`
	Service      ServiceRules      `yaml:"service"`
	Labels       map[string]string `yaml:"labels"`
	TextSuffixes []string          `yaml:"text_suffixes"`
}

// LoadRules parses the embedded rule tables.
func LoadRules() (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(rulesYAML, &r); err != nil {
		return nil, eris.Wrap(err, "resolve: parse rules")
	}
	return &r, nil
}

// MustRules loads the embedded rule tables, panicking on a broken embed.
func MustRules() *Rules {
	r, err := LoadRules()
	if err != nil {
		panic(err)
	}
	return r
}

// CanonicalVesting expands a short schedule label to its verbose form, or ""
// when the label has no canonical expansion.
func (r *Rules) CanonicalVesting(label string) string {
	key := squash(label)
	for _, ce := range r.Vesting.Canonical {
		for _, l := range ce.Labels {
			if squash(l) == key {
				return ce.Verbose
			}
		}
		// "Immediate (100%...)" style labels expand by prefix.
		if len(ce.Labels) == 1 && ce.Labels[0] == "immediate" && strings.HasPrefix(key, "immediate") {
			return ce.Verbose
		}
	}
	return ""
}

// squash lowercases and removes spaces for label comparison.
func squash(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "")
}
