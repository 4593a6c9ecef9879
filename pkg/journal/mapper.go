package journal

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// AccountMapping maps a Japanese account name (勘定科目) to a Beancount account.
type AccountMapping struct {
	Name      string `yaml:"name"`
	Beancount string `yaml:"beancount"`
}

// TaxCodeMapping describes a consumption tax rate and where its tax is booked.
type TaxCodeMapping struct {
	Code             string  `yaml:"code"`
	Rate             float64 `yaml:"rate"`
	Description      string  `yaml:"description"`
	BeancountAccount *string `yaml:"beancount_account"`
}

// AccountMappingConfig is the account-mapping.yaml document.
type AccountMappingConfig struct {
	Assets struct {
		Current []AccountMapping `yaml:"current"`
	} `yaml:"assets"`
	Liabilities struct {
		Current []AccountMapping `yaml:"current"`
	} `yaml:"liabilities"`
	Expenses struct {
		SGA          []AccountMapping `yaml:"sga"`
		Nonoperating []AccountMapping `yaml:"nonoperating"`
	} `yaml:"expenses"`
	TaxCodes []TaxCodeMapping `yaml:"tax_codes"`
}

// Mapper maps account names and tax rates to Beancount accounts.
type Mapper struct {
	config    AccountMappingConfig
	accounts  map[string]string
	taxByRate map[string]TaxCodeMapping
}

// NewMapper creates a new Mapper from a YAML configuration file.
func NewMapper(configPath string) (*Mapper, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseMapper(data)
}

// ParseMapper creates a Mapper from YAML.
func ParseMapper(data []byte) (*Mapper, error) {
	var config AccountMappingConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	mapper := &Mapper{
		config:    config,
		accounts:  make(map[string]string),
		taxByRate: make(map[string]TaxCodeMapping),
	}
	mapper.buildMappingMaps()

	return mapper, nil
}

func (m *Mapper) buildMappingMaps() {
	groups := [][]AccountMapping{
		m.config.Assets.Current,
		m.config.Liabilities.Current,
		m.config.Expenses.SGA,
		m.config.Expenses.Nonoperating,
	}
	for _, group := range groups {
		for _, mapping := range group {
			m.accounts[mapping.Name] = mapping.Beancount
		}
	}

	for _, taxCode := range m.config.TaxCodes {
		m.taxByRate[rateKey(decimal.NewFromFloat(taxCode.Rate))] = taxCode
	}
}

func rateKey(rate decimal.Decimal) string {
	return rate.StringFixed(4)
}

// GetBeancountAccount returns the Beancount account for name, or "" if unmapped.
func (m *Mapper) GetBeancountAccount(name string) string {
	if m == nil {
		return ""
	}
	return m.accounts[name]
}

// GetBeancountAccountWithFallback returns the Beancount account with a fallback.
func (m *Mapper) GetBeancountAccountWithFallback(name, fallback string) string {
	if account := m.GetBeancountAccount(name); account != "" {
		return account
	}
	return fallback
}

// GetTaxCode returns the tax code for rate, or nil.
func (m *Mapper) GetTaxCode(rate decimal.Decimal) *TaxCodeMapping {
	if m == nil {
		return nil
	}
	if mapping, ok := m.taxByRate[rateKey(rate)]; ok {
		return &mapping
	}
	return nil
}

// GetTaxAccount returns the Beancount account for tax at rate.
// Returns nil if the rate is unmapped or not booked separately.
func (m *Mapper) GetTaxAccount(rate decimal.Decimal) *string {
	if mapping := m.GetTaxCode(rate); mapping != nil {
		return mapping.BeancountAccount
	}
	return nil
}

// HasMapping checks if a mapping exists for an account name.
func (m *Mapper) HasMapping(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.accounts[name]
	return ok
}
