package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"expenses/internal/core"
)

// csvHeader is the column order of downloaded and uploaded files.
var csvHeader = []string{"date", "description", "amount", "source", "tags"}

// tagSeparator joins tags inside the tags column.
const tagSeparator = ";"

type csvWriter struct {
	w *csv.Writer
}

func newCSVWriter(out io.Writer) (*csvWriter, error) {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &csvWriter{w: w}, nil
}

func (c *csvWriter) Write(t core.Transaction) error {
	return c.w.Write([]string{
		t.Date.String(),
		t.Description,
		t.Amount,
		t.Source,
		strings.Join(t.Tags, tagSeparator),
	})
}

func (c *csvWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// readCSV parses an upload file. The header row is required so column
// order mistakes are caught before anything is sent. Every row is
// validated; the first invalid row stops the import.
func readCSV(in io.Reader) ([]core.Transaction, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = len(csvHeader)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, name := range csvHeader {
		if strings.ToLower(strings.TrimSpace(header[i])) != name {
			return nil, fmt.Errorf("unexpected header %v, want %v", header, csvHeader)
		}
	}

	var txns []core.Transaction
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return txns, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		txns = append(txns, t)
	}
}

func parseRecord(rec []string) (core.Transaction, error) {
	// Accept ISO dates as spreadsheets tend to rewrite them.
	date, err := core.ParseDate(strings.ReplaceAll(rec[0], "-", "/"))
	if err != nil {
		return core.Transaction{}, err
	}
	cents, err := core.ParseAmount(rec[2])
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		Date:        date,
		Description: strings.TrimSpace(rec[1]),
		Amount:      core.FormatCents(cents),
		Source:      strings.TrimSpace(rec[3]),
		Tags:        core.NormalizeTags(strings.Split(rec[4], tagSeparator)),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}
