package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one transcript from a workbook.
type Row struct {
	CallID     string `json:"call_id"`
	Transcript string `json:"transcript"`
}

// Load reads the first sheet and auto-detects the transcript and call id columns
// by header heuristics. Rows with a blank transcript are skipped.
func Load(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return parseRows(rows)
}

func parseRows(rows [][]string) ([]Row, error) {
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}
	transcriptIdx, callIDIdx := detectColumns(rows[0])
	if transcriptIdx == -1 {
		return nil, fmt.Errorf("no transcript column in header %q", rows[0])
	}

	var out []Row
	for i, r := range rows[1:] {
		if transcriptIdx >= len(r) || strings.TrimSpace(r[transcriptIdx]) == "" {
			continue
		}
		row := Row{Transcript: r[transcriptIdx]}
		if callIDIdx >= 0 && callIDIdx < len(r) {
			row.CallID = strings.TrimSpace(r[callIDIdx])
		}
		if row.CallID == "" {
			// spreadsheet row number, header is row 1
			row.CallID = "row-" + strconv.Itoa(i+2)
		}
		out = append(out, row)
	}
	return out, nil
}

func detectColumns(header []string) (transcriptIdx, callIDIdx int) {
	transcriptIdx, callIDIdx = -1, -1
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "transcript") || l == "text" || strings.Contains(l, "conversation"):
			if transcriptIdx == -1 {
				transcriptIdx = i
			}
		case strings.Contains(l, "call id") || strings.Contains(l, "callid") || strings.Contains(l, "call_id") || l == "id":
			if callIDIdx == -1 {
				callIDIdx = i
			}
		}
	}
	return transcriptIdx, callIDIdx
}

// Transcripts splits rows into parallel ref and transcript slices, keeping at most limit rows.
// limit <= 0 keeps everything.
func Transcripts(rows []Row, limit int) (refs, transcripts []string) {
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	for _, r := range rows {
		refs = append(refs, r.CallID)
		transcripts = append(transcripts, r.Transcript)
	}
	return refs, transcripts
}
