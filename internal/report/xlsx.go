package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// CFRRawRow is one row of the "raw response" sheet.
type CFRRawRow struct {
	Paper      string
	TrueValue  string
	Response   string
	OverallCFR string
}

// WriteCFRWorkbook writes the two-sheet CFR validation workbook: the raw
// model responses with true values on the first sheet, and the fixed-column
// standard extraction on the second.
func WriteCFRWorkbook(path string, raw []CFRRawRow, standard []map[string]string, columns []string) error {
	file := xlsx.NewFile()

	rawSheet, err := file.AddSheet("raw response")
	if err != nil {
		return eris.Wrap(err, "report: add raw sheet")
	}

	writeRow(rawSheet, "Papers", "True CFR", "Extracted Response", "overall CFR")
	for _, r := range raw {
		writeRow(rawSheet, r.Paper, r.TrueValue, r.Response, r.OverallCFR)
	}

	stdSheet, err := file.AddSheet("standard format")
	if err != nil {
		return eris.Wrap(err, "report: add standard sheet")
	}

	writeRow(stdSheet, columns...)
	for _, record := range standard {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = record[col]
		}
		writeRow(stdSheet, cells...)
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func writeRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
