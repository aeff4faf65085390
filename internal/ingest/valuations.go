package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bobmcallan/folio/internal/models"
)

// ReadValuationsFile opens path and reads a valuation CSV.
func ReadValuationsFile(path, sep string) ([]models.ValuationPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open valuations: %w", err)
	}
	defer f.Close()
	return ReadValuations(f, sep)
}

// ReadValuations reads pre-computed portfolio values with a header of
// date,value and an optional cash_flow column. Any bad row is an error;
// the points go straight into the return engine, which checks ordering.
func ReadValuations(r io.Reader, sep string) ([]models.ValuationPoint, error) {
	br := bufio.NewReader(r)
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comma = sniffDelimiter(br)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	dateIdx, valueIdx, flowIdx := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "date", "datum":
			dateIdx = i
		case "value", "waarde":
			valueIdx = i
		case "cash_flow", "cashflow", "net_cash_flow":
			flowIdx = i
		}
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("%w: date", ErrMissingColumn)
	}
	if valueIdx < 0 {
		return nil, fmt.Errorf("%w: value", ErrMissingColumn)
	}

	var points []models.ValuationPoint
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read valuations: %w", err)
		}
		if blank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)

		date, err := ParseDate(cell(record, dateIdx), "")
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: date: %s", ErrMalformedRow, line, reasonFor(err))
		}
		value, err := ParseDecimal(cell(record, valueIdx), sep)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: value: %s", ErrMalformedRow, line, reasonFor(err))
		}
		p := models.ValuationPoint{Date: date, Value: value.InexactFloat64()}
		if raw := cell(record, flowIdx); raw != "" {
			flow, err := ParseDecimal(raw, sep)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: cash_flow: %s", ErrMalformedRow, line, reasonFor(err))
			}
			p.NetCashFlow = flow.InexactFloat64()
		}
		points = append(points, p)
	}
	return points, nil
}
