// Package export writes draw history as downloadable documents.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"kiosk-lottery/internal/models"
)

// utf8BOM makes spreadsheet programs read the CSV as UTF-8.
const utf8BOM = "\xef\xbb\xbf"

// RoundFilename names the export of a single round.
func RoundFilename(record models.DrawRecord) string {
	return fmt.Sprintf("年会%s_%s_第%d轮.json", record.EventDate, record.PoolName, record.RoundNumber)
}

// PoolFilename names the export of every round of a pool.
func PoolFilename(date, poolName string) string {
	return fmt.Sprintf("年会%s_%s_全部记录.json", date, poolName)
}

// HistoryCSVFilename names the CSV export of the whole history.
func HistoryCSVFilename(date string) string {
	return fmt.Sprintf("年会%s_抽奖记录.csv", date)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteCSV writes one row per winner, oldest round first as given.
func WriteCSV(w io.Writer, records []models.DrawRecord) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"活动日期", "奖项名称", "轮次", "员工编号", "员工姓名", "部门", "中奖时间"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, record := range records {
		for _, winner := range record.Winners {
			row := []string{
				record.EventDate,
				record.PoolName,
				strconv.Itoa(record.RoundNumber),
				winner.Participant.ID,
				winner.Participant.Name,
				winner.Participant.Dept,
				winner.WonAt.Format(time.RFC3339),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
