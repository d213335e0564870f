// Package batch implements the tabular batch interface: one CSV row per
// trade with a netting-set grouping column, processed with per-row and
// per-netting-set failure isolation.
package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/sawpanic/riskrun/internal/domain"
)

// RowError records one rejected input row with enough context to locate it
// without re-deriving anything from logs.
type RowError struct {
	Line         int    `json:"line"`
	NettingSetID string `json:"netting_set_id,omitempty"`
	TradeID      string `json:"trade_id,omitempty"`
	Field        string `json:"field,omitempty"`
	Reason       string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d (netting set %s, trade %s): field %s: %s",
		e.Line, e.NettingSetID, e.TradeID, e.Field, e.Reason)
}

// ParseOutput is the result of reading a batch file: the netting sets
// built from valid rows, the rejected rows, and which sets lost rows.
type ParseOutput struct {
	Sets        []*domain.NettingSet
	RowErrors   []RowError
	PartialSets []string // netting sets that lost at least one row
}

// requiredColumns must appear in the header; the remaining columns are
// optional and default per field.
var requiredColumns = []string{
	"netting_set_id", "trade_id", "asset_class", "product",
	"notional", "maturity_years", "market_value",
}

// ParseCSV reads the batch trade file. A malformed row is recorded and
// skipped; it never aborts the batch. Netting sets keep their first-seen
// row order, which is irrelevant to results by construction.
func ParseCSV(r io.Reader) (*ParseOutput, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read batch header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("batch header is missing required column %q", name)
		}
	}

	out := &ParseOutput{}
	sets := make(map[string]*domain.NettingSet)
	partial := make(map[string]bool)
	var order []string

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			out.RowErrors = append(out.RowErrors, RowError{Line: line, Reason: err.Error()})
			continue
		}

		row := rowReader{cols: cols, record: record}
		setID := row.str("netting_set_id")
		trade, rerr := parseTrade(row)
		if rerr != nil {
			rerr.Line = line
			rerr.NettingSetID = setID
			out.RowErrors = append(out.RowErrors, *rerr)
			if setID != "" {
				partial[setID] = true
			}
			continue
		}

		ns, ok := sets[setID]
		if !ok {
			ns = &domain.NettingSet{ID: setID}
			sets[setID] = ns
			order = append(order, setID)
		}
		// Netting-set level fields come from the first row that sets them.
		if ns.Counterparty == "" {
			ns.Counterparty = row.str("counterparty")
		}
		if ns.Collateral == 0 {
			if c, err := row.optFloat("collateral"); err == nil && c != nil {
				ns.Collateral = *c
			}
		}
		if !ns.Margined && row.str("margined") != "" {
			ns.Margined = parseBool(row.str("margined"))
			if m, err := row.optFloat("mpor_days"); err == nil && m != nil {
				ns.MarginPeriodOfRiskDays = *m
			}
		}
		ns.Trades = append(ns.Trades, trade)
	}

	for _, id := range order {
		out.Sets = append(out.Sets, sets[id])
	}
	for id := range partial {
		out.PartialSets = append(out.PartialSets, id)
	}
	sort.Strings(out.PartialSets)
	return out, nil
}

// parseTrade converts one row into a trade, reporting the first bad field.
func parseTrade(row rowReader) (domain.Trade, *RowError) {
	tradeID := row.str("trade_id")
	fail := func(field, reason string) (domain.Trade, *RowError) {
		return domain.Trade{}, &RowError{TradeID: tradeID, Field: field, Reason: reason}
	}

	if row.str("netting_set_id") == "" {
		return fail("netting_set_id", "required field is missing")
	}
	if tradeID == "" {
		return fail("trade_id", "required field is missing")
	}

	notional, err := row.float("notional")
	if err != nil {
		return fail("notional", err.Error())
	}
	maturity, err := row.float("maturity_years")
	if err != nil {
		return fail("maturity_years", err.Error())
	}
	mv, err := row.float("market_value")
	if err != nil {
		return fail("market_value", err.Error())
	}

	delta, err := row.optFloat("delta")
	if err != nil {
		return fail("delta", err.Error())
	}
	vega, err := row.optFloat("vega")
	if err != nil {
		return fail("vega", err.Error())
	}
	curvature, err := row.optFloat("curvature")
	if err != nil {
		return fail("curvature", err.Error())
	}

	return domain.Trade{
		ID:            tradeID,
		AssetClass:    domain.AssetClass(row.str("asset_class")),
		Product:       domain.Product(row.str("product")),
		Notional:      notional,
		MaturityYears: maturity,
		MarketValue:   mv,
		Sensitivities: domain.Sensitivities{Delta: delta, Vega: vega, Curvature: curvature},

		Currency:        row.str("currency"),
		ReferenceEntity: row.str("reference_entity"),
		Sector:          row.str("sector"),
		CurrencyPair:    row.str("currency_pair"),
		CreditQuality:   domain.CreditQuality(row.str("credit_quality")),
	}, nil
}

// rowReader reads typed cells from one CSV record by column name.
type rowReader struct {
	cols   map[string]int
	record []string
}

func (r rowReader) str(name string) string {
	idx, ok := r.cols[name]
	if !ok || idx >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[idx])
}

func (r rowReader) float(name string) (float64, error) {
	s := r.str(name)
	if s == "" {
		return 0, fmt.Errorf("required field is missing")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

func (r rowReader) optFloat(name string) (*float64, error) {
	s := r.str(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	return &v, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
