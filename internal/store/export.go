package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// WriteDaysJSONL writes one JSON object per record.
func WriteDaysJSONL(w io.Writer, days []DayRecord) error {
	enc := json.NewEncoder(w)
	for _, d := range days {
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("failed to write day %d: %w", d.Day, err)
		}
	}
	return nil
}

// ReadDaysJSONL parses records written by WriteDaysJSONL. Blank lines are
// skipped; a malformed line is an error.
func ReadDaysJSONL(r io.Reader) ([]DayRecord, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var days []DayRecord
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var d DayRecord
		if err := json.Unmarshal(line, &d); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		days = append(days, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return days, nil
}
