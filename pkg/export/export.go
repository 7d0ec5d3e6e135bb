package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/arbitrage/core/model"
)

// RunFile is the document written for a single run: the result together with
// the storage configuration it was computed for.
type RunFile struct {
	TotalCycles   int                   `json:"total_cycles"`
	Revenue       int                   `json:"revenue"`
	Data          []model.ScheduleEntry `json:"data"`
	Configuration model.StorageProfile  `json:"configuration"`
}

// BatchRow is one line of a batch summary.
type BatchRow struct {
	MarketID    string `json:"market_id"`
	Profile     string `json:"profile"`
	Status      string `json:"status"`
	Intervals   int    `json:"intervals"`
	TotalCycles int    `json:"total_cycles"`
	Revenue     int    `json:"revenue"`
	DurationMS  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}

// WriteScheduleJSON writes res and its configuration to w as indented JSON.
func WriteScheduleJSON(w io.Writer, res model.OptimizationResult, profile model.StorageProfile) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	data := res.Schedule
	if data == nil {
		data = []model.ScheduleEntry{}
	}
	return enc.Encode(RunFile{
		TotalCycles:   res.TotalCycles,
		Revenue:       res.Revenue,
		Data:          data,
		Configuration: profile,
	})
}

// WriteScheduleCSV writes one row per interval.
func WriteScheduleCSV(w io.Writer, schedule []model.ScheduleEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "price", "action", "net_flow_kWh", "SoC_kWh"}); err != nil {
		return err
	}
	for _, e := range schedule {
		rec := []string{
			e.Timestamp,
			formatFloat(e.Price),
			string(e.Action),
			formatFloat(e.NetFlow),
			formatFloat(e.StateOfCharge),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBatchCSV writes a batch summary.
func WriteBatchCSV(w io.Writer, rows []BatchRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"market_id", "profile", "status", "intervals", "total_cycles", "revenue", "duration_ms", "error"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.MarketID,
			r.Profile,
			r.Status,
			strconv.Itoa(r.Intervals),
			strconv.Itoa(r.TotalCycles),
			strconv.Itoa(r.Revenue),
			strconv.FormatInt(r.DurationMS, 10),
			r.Error,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBatchJSON writes a batch summary as a JSON array.
func WriteBatchJSON(w io.Writer, rows []BatchRow) error {
	if rows == nil {
		rows = []BatchRow{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
