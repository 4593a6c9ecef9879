package classifier

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Account names (勘定科目) produced by the classifier.
const (
	AccountTravel        = "旅費交通費"
	AccountMeeting       = "会議費"
	AccountEntertainment = "接待交際費"
	AccountSupplies      = "消耗品費"
	AccountOffice        = "事務用品費"
)

// ErrInvalidRules is returned when a rule set cannot be used.
var ErrInvalidRules = errors.New("invalid classification rules")

// Rule maps keywords to an account. A rule matches when any of Keywords
// appears in the receipt, or when every keyword of AllOf appears.
type Rule struct {
	Name     string   `yaml:"name"`
	Account  string   `yaml:"account"`
	Keywords []string `yaml:"keywords"`
	AllOf    []string `yaml:"all_of"`
}

// RuleSet is an ordered keyword cascade. The first matching rule wins.
type RuleSet struct {
	Rules          []Rule `yaml:"rules"`
	DefaultAccount string `yaml:"default_account"`
}

// DefaultRuleSet returns the built-in cascade for Japanese receipts.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Rules: []Rule{
			{
				Name:     "parking",
				Account:  AccountTravel,
				Keywords: []string{"times", "タイムズ", "パーキング", "駐車場", "リパーク", "npc24", "コインパーク"},
				AllOf:    []string{"入庫", "出庫"},
			},
			{
				Name:    "transportation",
				Account: AccountTravel,
				Keywords: []string{
					"タクシー", "taxi", "jr", "鉄道", "バス", "高速道路", "etc", "ガソリン",
					"新幹線", "地下鉄", "suica", "pasmo", "eneos", "出光",
				},
			},
			{
				Name:    "cafe",
				Account: AccountMeeting,
				Keywords: []string{
					"コーヒー", "カフェ", "coffee", "cafe", "スターバックス", "starbucks",
					"ドトール", "タリーズ", "喫茶", "コメダ",
				},
			},
			{
				Name:    "restaurant",
				Account: AccountEntertainment,
				Keywords: []string{
					"レストラン", "restaurant", "食堂", "居酒屋", "寿司", "焼肉",
					"中華", "イタリアン", "フレンチ", "和食", "割烹", "料亭",
				},
			},
			{
				Name:    "convenience_store",
				Account: AccountSupplies,
				Keywords: []string{
					"コンビニ", "ローソン", "セブン", "ファミリーマート", "ミニストップ",
					"デイリー", "セイコーマート",
				},
			},
			{
				Name:     "stationery",
				Account:  AccountOffice,
				Keywords: []string{"文具", "事務", "コクヨ", "アスクル", "文房具"},
			},
		},
		DefaultAccount: AccountSupplies,
	}
}

// LoadRules reads a YAML rule set from path.
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses and validates a YAML rule set. A missing default account
// falls back to 消耗品費.
func ParseRules(data []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if rs.DefaultAccount == "" {
		rs.DefaultAccount = AccountSupplies
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// Validate checks that every rule names an account and can match something.
func (rs RuleSet) Validate() error {
	if len(rs.Rules) == 0 {
		return fmt.Errorf("%w: no rules", ErrInvalidRules)
	}
	for i, r := range rs.Rules {
		if r.Account == "" {
			return fmt.Errorf("%w: rule %d (%s) has no account", ErrInvalidRules, i, r.Name)
		}
		if len(r.Keywords) == 0 && len(r.AllOf) == 0 {
			return fmt.Errorf("%w: rule %d (%s) has no keywords", ErrInvalidRules, i, r.Name)
		}
	}
	return nil
}
