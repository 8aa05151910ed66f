// Package parser turns free-form broker confirmations into structured trades.
//
// Accepted shapes include:
//
//	Sold 200x Brent May26
//	50x pm Jul26-Dec26
//	Bought TTF 26Q4
//	D sold HH Jan26 @ 2.85
//	10 lots JKM Feb26 OTC 12.5
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Product names recognised by the parser.
const (
	ProductBrent    = "Brent"
	ProductHenryHub = "Henry Hub"
	ProductJKM      = "JKM"
	ProductTTF      = "TTF"
)

// baseYear is the two-digit year assumed when a month range omits it.
const baseYear = 26

const monthAlt = `JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC`

var monthNumbers = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

var (
	reNonNumeric = regexp.MustCompile(`[\d\s.,\-+]`)
	reDigit      = regexp.MustCompile(`\d`)

	reConfirm    = regexp.MustCompile(`^(TO\s+)?CONFIRM\s+U\s+`)
	reLineNumber = regexp.MustCompile(`^\s*\d+([.)）\]]|\s+)`)
	reLeadingQty = regexp.MustCompile(`^\s*\d+(?:\.\d+)?\s*(?:X|KB|LOTS|PM|/M)\b`)
	rePriceMark  = regexp.MustCompile(`(\d+(\.\d+)?)\s*(SCN|SCREEN|PX)\b`)

	reTTF      = regexp.MustCompile(`TTF`)
	reJKM      = regexp.MustCompile(`JKM`)
	reHenryHub = regexp.MustCompile(`\b(HH\d{4}|HH|HENRY HUB|HENRY)\b`)
	reNatGas   = regexp.MustCompile(`\bNATURAL GAS|NAT GAS|GAS\b`)
	reSell     = regexp.MustCompile(`SELL|SOLD|SHORT`)

	reQtyLots    = regexp.MustCompile(`(\d+(?:\.\d+)?)(?:\s*X|\s*KB|\s*LOTS)`)
	reQtyMonthly = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:/M|PM)`)
	reNumber     = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\b`)

	rePriceOTC = regexp.MustCompile(`OTC(?:\s*PX)?\s*(\d+(?:\.\d+)?)`)
	rePriceAt  = regexp.MustCompile(`AT\s*(\d+(?:\.\d+)?)`)
	rePriceSym = regexp.MustCompile(`@\s*(\d+(?:\.\d+)?)`)

	reRange = regexp.MustCompile(`\b(` + monthAlt + `)(\d{2})?\s*(?:-|TO)\s*(` + monthAlt + `)(\d{2})?\b`)

	reExplicit   = regexp.MustCompile(`\b(HH|JKM|TTF)\s?(\d{2})(\d{2})\b`)
	reNamed      = regexp.MustCompile(`\b(HH|JKM|TTF)\s+(` + monthAlt + `)(\d{2})\b`)
	reQuarter    = regexp.MustCompile(`\b(\d{2})Q([1-4])\b`)
	reQuarterAlt = regexp.MustCompile(`\bQ([1-4])\s*(\d{2})\b`)
	reMonthForms = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{2})-(` + monthAlt + `)\b`),
		regexp.MustCompile(`\b(\d{2})\s*(` + monthAlt + `)\b`),
		regexp.MustCompile(`\b(` + monthAlt + `)\s*(\d{2})\b`),
		regexp.MustCompile(`\b(` + monthAlt + `)(\d{2})\b`),
	}
)

// ParsedTrade is one trade recognised in the input text.
// Quantity is already signed by Side.
type ParsedTrade struct {
	Trader   string  `json:"trader"`
	Product  string  `json:"product"`
	Contract string  `json:"contract"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Side     int     `json:"side"`
	Valid    bool    `json:"is_valid"`
	Error    string  `json:"error,omitempty"`
}

// Parser recognises trades for a fixed set of traders.
type Parser struct {
	traders  []string
	matchers []*regexp.Regexp
}

// NewParser creates a Parser. The first trader is the default when a line names none.
func NewParser(traders []string) *Parser {
	if len(traders) == 0 {
		traders = []string{"W"}
	}
	matchers := make([]*regexp.Regexp, len(traders))
	for i, trader := range traders {
		matchers[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToUpper(trader)) + `\b`)
	}
	return &Parser{traders: traders, matchers: matchers}
}

// ParseText parses a batch of confirmation lines.
// Lines that lack a quantity, price or contract are skipped; lines that fail
// to parse are returned with Valid=false.
func (p *Parser) ParseText(text string) []ParsedTrade {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	var results []ParsedTrade
	for _, line := range mergeNumberLines(lines) {
		trades, err := p.parseLine(line)
		if err != nil {
			results = append(results, ParsedTrade{Side: 1, Error: err.Error()})
			continue
		}
		results = append(results, trades...)
	}
	return results
}

// mergeNumberLines appends number-only lines (a price on its own line) to the previous line.
func mergeNumberLines(lines []string) []string {
	merged := make([]string, 0, len(lines))
	for _, line := range lines {
		if isNumberLine(line) && len(merged) > 0 {
			merged[len(merged)-1] += " " + line
			continue
		}
		merged = append(merged, line)
	}
	return merged
}

func isNumberLine(line string) bool {
	return reNonNumeric.ReplaceAllString(line, "") == "" && reDigit.MatchString(line)
}

func (p *Parser) parseLine(line string) ([]ParsedTrade, error) {
	clean := preClean(line)

	trader := p.detectTrader(clean)
	product := detectProduct(clean)
	side := detectSide(clean)

	qty, err := extractQuantity(clean)
	if err != nil {
		return nil, fmt.Errorf("line %q: %w", line, err)
	}
	if qty == 0 {
		return nil, nil
	}

	price, err := extractPrice(clean)
	if err != nil {
		return nil, fmt.Errorf("line %q: %w", line, err)
	}
	if price == 0 {
		return nil, nil
	}

	newTrade := func(contract string) ParsedTrade {
		return ParsedTrade{
			Trader:   trader,
			Product:  product,
			Contract: contract,
			Quantity: qty * float64(side),
			Price:    price,
			Side:     side,
			Valid:    true,
		}
	}

	if contracts := rangeContracts(clean, product); len(contracts) > 0 {
		trades := make([]ParsedTrade, 0, len(contracts))
		for _, c := range contracts {
			trades = append(trades, newTrade(c))
		}
		return trades, nil
	}

	contract := extractContract(clean, product)
	if contract == "" {
		return nil, nil
	}
	return []ParsedTrade{newTrade(contract)}, nil
}

func preClean(text string) string {
	clean := strings.ToUpper(text)
	clean = reConfirm.ReplaceAllString(clean, "")
	// A leading size such as "10 LOTS" is not a line number.
	if !reLeadingQty.MatchString(clean) {
		clean = reLineNumber.ReplaceAllString(clean, "")
	}
	clean = rePriceMark.ReplaceAllString(clean, "")
	return strings.TrimSpace(clean)
}

func (p *Parser) detectTrader(text string) string {
	for i, re := range p.matchers {
		if re.MatchString(text) {
			return p.traders[i]
		}
	}
	return p.traders[0]
}

func detectProduct(text string) string {
	switch {
	case reTTF.MatchString(text):
		return ProductTTF
	case reJKM.MatchString(text):
		return ProductJKM
	case reHenryHub.MatchString(text), reNatGas.MatchString(text):
		return ProductHenryHub
	default:
		return ProductBrent
	}
}

func detectSide(text string) int {
	if reSell.MatchString(text) {
		return -1
	}
	return 1
}

func extractQuantity(text string) (float64, error) {
	for _, re := range []*regexp.Regexp{reQtyLots, reQtyMonthly} {
		if m := re.FindStringSubmatch(text); m != nil {
			return strconv.ParseFloat(m[1], 64)
		}
	}
	// Usually the first bare number is the size.
	if m := reNumber.FindStringSubmatch(text); m != nil {
		return strconv.ParseFloat(m[1], 64)
	}
	return 0, nil
}

func extractPrice(text string) (float64, error) {
	for _, re := range []*regexp.Regexp{rePriceOTC, rePriceAt, rePriceSym} {
		if m := re.FindStringSubmatch(text); m != nil {
			return strconv.ParseFloat(m[1], 64)
		}
	}
	// With several numbers the last one is usually the price.
	numbers := reNumber.FindAllStringSubmatch(text, -1)
	if len(numbers) >= 2 {
		return strconv.ParseFloat(numbers[len(numbers)-1][1], 64)
	}
	return 0, nil
}

// rangeContracts expands a month strip such as JUL26-DEC26 into its contracts.
func rangeContracts(text, product string) []string {
	m := reRange.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	startYear := baseYear
	if m[2] != "" {
		startYear, _ = strconv.Atoi(m[2])
	}
	endYear := startYear
	if m[4] != "" {
		endYear, _ = strconv.Atoi(m[4])
	}

	start := monthNumbers[m[1]] + (startYear-baseYear)*12 - 1
	end := monthNumbers[m[3]] + (endYear-baseYear)*12 - 1

	var contracts []string
	for i := start; i <= end; i++ {
		month := floorMod(i, 12) + 1
		year := baseYear + floorDiv(i, 12)
		contracts = append(contracts, formatContract(product, year, month))
	}
	return contracts
}

func extractContract(text, product string) string {
	if m := reExplicit.FindStringSubmatch(text); m != nil {
		if m[1] == "HH" || product == ProductHenryHub {
			return "HH" + m[2] + m[3]
		}
		return m[2] + m[3]
	}

	if m := reNamed.FindStringSubmatch(text); m != nil {
		month := fmt.Sprintf("%02d", monthNumbers[m[2]])
		if m[1] == "HH" || product == ProductHenryHub {
			return "HH" + m[3] + month
		}
		return m[3] + month
	}

	if m := reQuarter.FindStringSubmatch(text); m != nil {
		return m[1] + "Q" + m[2]
	}
	if m := reQuarterAlt.FindStringSubmatch(text); m != nil {
		return m[2] + "Q" + m[1]
	}

	for _, re := range reMonthForms {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		monthToken, yearToken := m[2], m[1]
		if _, ok := monthNumbers[m[1]]; ok {
			monthToken, yearToken = m[1], m[2]
		}
		year, _ := strconv.Atoi(yearToken)
		return formatContract(product, year, monthNumbers[monthToken])
	}

	return ""
}

func formatContract(product string, year, month int) string {
	base := fmt.Sprintf("%02d%02d", year, month)
	if product == ProductHenryHub {
		return "HH" + base
	}
	return base
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
