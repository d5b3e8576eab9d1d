package normalize

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, sheet string, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("write row %d: %v", i, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook fixture: %v", err)
	}
	return buf.Bytes()
}

func TestGuessColumn(t *testing.T) {
	cases := []struct {
		name    string
		headers []string
		want    int
		guessed bool
	}{
		{"objektnummer", []string{"Genstand", "Objektnummer", "Note"}, 1, true},
		{"nummer beats objekt", []string{"Objekt", "Løbenummer"}, 1, true},
		{"arkiv", []string{"Titel", "Arkivreference"}, 1, true},
		{"no match falls back to first", []string{"Titel", "Beskrivelse"}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, guessed := GuessColumn(tc.headers)
			if got != tc.want || guessed != tc.guessed {
				t.Fatalf("got (%d, %v), want (%d, %v)", got, guessed, tc.want, tc.guessed)
			}
		})
	}
}

func TestNormalizeWorkbook(t *testing.T) {
	data := workbookBytes(t, "Ark1", [][]any{
		{"Genstand", "Objektnummer", "Note"},
		{"Kande", "17:4", "god stand"},
		{"Foto", "4x30", ""},
		{"Skab", "", "mangler nummer"},
	})

	wb, err := NormalizeWorkbook(bytes.NewReader(data), true)
	if err != nil {
		t.Fatalf("normalize workbook: %v", err)
	}
	if wb.Sheet != "Ark1" {
		t.Fatalf("sheet %q, want Ark1", wb.Sheet)
	}
	if wb.Column != "Objektnummer" || !wb.Guessed {
		t.Fatalf("guessed column %q (guessed=%v), want Objektnummer", wb.Column, wb.Guessed)
	}
	if wb.Rows != 3 {
		t.Fatalf("processed %d rows, want 3", wb.Rows)
	}

	out, err := excelize.OpenReader(bytes.NewReader(wb.Data))
	if err != nil {
		t.Fatalf("reopen result: %v", err)
	}
	defer out.Close()

	rows, err := out.GetRows("Ark1")
	if err != nil {
		t.Fatalf("read result sheet: %v", err)
	}
	if got := rows[0][3]; got != "Objektnummer_normaliseret" {
		t.Fatalf("appended header %q, want Objektnummer_normaliseret", got)
	}
	wantNorm := []string{"00017:4", "0004x0030", ""}
	for i, want := range wantNorm {
		got := ""
		if len(rows[i+1]) > 3 {
			got = rows[i+1][3]
		}
		if got != want {
			t.Fatalf("row %d normalized to %q, want %q", i+1, got, want)
		}
	}
	// Original cells survive next to the new column.
	if rows[1][0] != "Kande" || rows[1][1] != "17:4" {
		t.Fatalf("original row rewritten: %v", rows[1])
	}

	mapping, err := out.GetRows("Mapping")
	if err != nil {
		t.Fatalf("read mapping sheet: %v", err)
	}
	if mapping[0][0] != "Før" || mapping[0][1] != "Efter" {
		t.Fatalf("unexpected mapping header: %v", mapping[0])
	}
	if mapping[1][0] != "17:4" || mapping[1][1] != "00017:4" {
		t.Fatalf("unexpected mapping row: %v", mapping[1])
	}
}

func TestNormalizeWorkbookWithoutMapping(t *testing.T) {
	data := workbookBytes(t, "Ark1", [][]any{
		{"Objektnummer"},
		{"17:4"},
	})

	wb, err := NormalizeWorkbook(bytes.NewReader(data), false)
	if err != nil {
		t.Fatalf("normalize workbook: %v", err)
	}

	out, err := excelize.OpenReader(bytes.NewReader(wb.Data))
	if err != nil {
		t.Fatalf("reopen result: %v", err)
	}
	defer out.Close()

	for _, name := range out.GetSheetList() {
		if name == "Mapping" {
			t.Fatalf("mapping sheet present although not requested")
		}
	}
}

func TestNormalizeWorkbookEmpty(t *testing.T) {
	data := workbookBytes(t, "Ark1", [][]any{
		{"Objektnummer"},
	})

	_, err := NormalizeWorkbook(bytes.NewReader(data), true)
	if !errors.Is(err, ErrEmptyWorkbook) {
		t.Fatalf("expected ErrEmptyWorkbook, got %v", err)
	}
}

func TestNormalizeWorkbookRejectsGarbage(t *testing.T) {
	_, err := NormalizeWorkbook(bytes.NewReader([]byte("not a zip archive")), true)
	if err == nil {
		t.Fatalf("expected an error for a non-xlsx payload")
	}
}
