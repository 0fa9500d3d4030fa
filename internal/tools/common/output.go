package common

import (
	"encoding/json"
	"fmt"
	"os"
)

type CIResult struct {
	OK      bool     `json:"ok"`
	Title   string   `json:"title"`
	Details []string `json:"details,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// PrintCIResult writes one JSON line to stdout, or a short human summary when
// human is true.
func PrintCIResult(human bool, title string, details []string, err error) {
	res := CIResult{OK: err == nil, Title: title, Details: details}
	if err != nil {
		res.Error = err.Error()
	}
	if human {
		status := "OK"
		if !res.OK {
			status = "FAILED"
		}
		fmt.Fprintf(os.Stdout, "%s: %s\n", title, status)
		for _, d := range details {
			fmt.Fprintf(os.Stdout, "  - %s\n", d)
		}
		if res.Error != "" {
			fmt.Fprintf(os.Stdout, "  error: %s\n", res.Error)
		}
		return
	}
	_ = json.NewEncoder(os.Stdout).Encode(res)
}
