package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// ReadTape loads every record of a tape file. Malformed lines are skipped
// and counted.
func ReadTape(path string) ([]Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open tape: %w", err)
	}
	defer f.Close()

	var out []Record
	skipped := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			skipped++
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return out, skipped, fmt.Errorf("scan tape: %w", err)
	}
	return out, skipped, nil
}
