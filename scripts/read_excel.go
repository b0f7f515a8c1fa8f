//go:build ignore
// +build ignore

// This script prints every sheet of an Excel report for verification.
// Run with: go run scripts/read_excel.go <report.xlsx>
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

func main() {
	path := "sample-health-report-excel.xlsx"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	defer f.Close()

	fmt.Println("📊 Sheets:", f.GetSheetList())

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			fmt.Printf("Error reading %s: %v\n", sheet, err)
			continue
		}

		fmt.Println()
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  %s (%d rows)\n", sheet, len(rows))
		fmt.Println("═══════════════════════════════════════")
		for i, row := range rows {
			if i >= 20 {
				fmt.Printf("  ... %d more rows\n", len(rows)-i)
				break
			}
			fmt.Printf("  %s\n", strings.Join(row, " | "))
		}
	}
}
