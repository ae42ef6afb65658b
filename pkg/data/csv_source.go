package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/This-HW/hantu-quant-sub002/pkg/types"
)

const dateLayout = "2006-01-02"

// CSVPriceSource serves prices from a CSV file loaded into memory.
// Expected columns: symbol,date,open,high,low,close,volume with a header
// row. Dates use YYYY-MM-DD.
type CSVPriceSource struct {
	prices map[cacheKey]types.PricePoint
}

// LoadCSVPriceSource reads the price file at path.
func LoadCSVPriceSource(path string) (*CSVPriceSource, error) {
	rows, err := readCSV(path, 7)
	if err != nil {
		return nil, err
	}

	src := &CSVPriceSource{prices: make(map[cacheKey]types.PricePoint, len(rows))}
	for i, row := range rows {
		date, err := time.Parse(dateLayout, row[1])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad date %q: %w", path, i+2, row[1], err)
		}
		point := types.PricePoint{Symbol: row[0], Date: date}
		if point.Open, err = strconv.ParseFloat(row[2], 64); err != nil {
			return nil, fmt.Errorf("%s row %d: bad open: %w", path, i+2, err)
		}
		if point.High, err = strconv.ParseFloat(row[3], 64); err != nil {
			return nil, fmt.Errorf("%s row %d: bad high: %w", path, i+2, err)
		}
		if point.Low, err = strconv.ParseFloat(row[4], 64); err != nil {
			return nil, fmt.Errorf("%s row %d: bad low: %w", path, i+2, err)
		}
		if point.Close, err = strconv.ParseFloat(row[5], 64); err != nil {
			return nil, fmt.Errorf("%s row %d: bad close: %w", path, i+2, err)
		}
		if point.Volume, err = strconv.ParseFloat(row[6], 64); err != nil {
			return nil, fmt.Errorf("%s row %d: bad volume: %w", path, i+2, err)
		}
		src.prices[cacheKey{point.Symbol, date.Format(dateLayout)}] = point
	}
	return src, nil
}

// GetPrice implements PriceSource.
func (s *CSVPriceSource) GetPrice(symbol string, date time.Time) (types.PricePoint, bool) {
	point, ok := s.prices[cacheKey{symbol, date.Format(dateLayout)}]
	return point, ok
}

// CSVCandidateSource serves candidates from a CSV file loaded into memory.
// Expected columns: symbol,candidate_date,entry_price,signal_confidence
// with a header row.
type CSVCandidateSource struct {
	candidates []types.Candidate
}

// LoadCSVCandidateSource reads the candidate file at path. Candidates are
// returned in chronological order regardless of file order.
func LoadCSVCandidateSource(path string) (*CSVCandidateSource, error) {
	rows, err := readCSV(path, 4)
	if err != nil {
		return nil, err
	}

	candidates := make([]types.Candidate, 0, len(rows))
	for i, row := range rows {
		date, err := time.Parse(dateLayout, row[1])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad date %q: %w", path, i+2, row[1], err)
		}
		price, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad entry price: %w", path, i+2, err)
		}
		confidence, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad confidence: %w", path, i+2, err)
		}
		candidates = append(candidates, types.Candidate{
			Symbol:           row[0],
			CandidateDate:    date,
			EntryPrice:       price,
			SignalConfidence: confidence,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CandidateDate.Before(candidates[j].CandidateDate)
	})
	return &CSVCandidateSource{candidates: candidates}, nil
}

// Candidates implements CandidateSource. A zero start or end leaves that
// side of the range unbounded.
func (s *CSVCandidateSource) Candidates(start, end time.Time) ([]types.Candidate, error) {
	var out []types.Candidate
	for _, c := range s.candidates {
		if !start.IsZero() && c.CandidateDate.Before(start) {
			continue
		}
		if !end.IsZero() && c.CandidateDate.After(end) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func readCSV(path string, minColumns int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: no data rows", path)
	}

	rows := make([][]string, 0, len(records)-1)
	for i, row := range records[1:] { // skip header
		if len(row) < minColumns {
			return nil, fmt.Errorf("%s row %d: expected %d columns, got %d", path, i+2, minColumns, len(row))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
