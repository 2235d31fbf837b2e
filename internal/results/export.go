package results

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sachintanwar1/College-Management-System/internal/model"
)

var csvHeader = []string{"roll_no", "student_id", "name", "class", "semester", "year", "marks", "gpa"}

// WriteCSV writes one row per semester of student.
func WriteCSV(w io.Writer, student model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, sem := range student.List("semesters") {
		row := []string{
			student.Text("roll_no"),
			student.Text("student_id"),
			student.Text("name"),
			student.Text("class"),
			sem.Text("sem"),
			sem.Text("year"),
			sem.Text("marks"),
			sem.Text("gpa"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PreviewCSV parses an uploaded marks sheet for display before saving.
// Rows whose cells are all blank are dropped; ragged rows are kept as-is.
func PreviewCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows := [][]string{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if blankRow(rec) {
			continue
		}
		rows = append(rows, rec)
	}
}

func blankRow(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
