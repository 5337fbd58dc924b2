// Package export renders a user's weather records as a downloadable file.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "weatherlog/internal/errors"
	"weatherlog/internal/model"
)

// Format is a supported export format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
)

// filenameBase is the attachment name every export is offered under.
const filenameBase = "weather-records"

// Document is a rendered export.
type Document struct {
	ContentType string
	Filename    string
	Body        []byte
}

// ParseFormat accepts json, csv or xml in any letter case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatXML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, s)
	}
}

// Render encodes records in the given format. Records must already be in
// export order; identical input always yields identical bytes.
func Render(format Format, records []model.WeatherRecord) (*Document, error) {
	var (
		body        []byte
		contentType string
		err         error
	)
	switch format {
	case FormatJSON:
		body, err = renderJSON(records)
		contentType = "application/json"
	case FormatCSV:
		body, err = renderCSV(records)
		contentType = "text/csv"
	case FormatXML:
		body, err = renderXML(records)
		contentType = "application/xml"
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return &Document{
		ContentType: contentType,
		Filename:    filenameBase + "." + string(format),
		Body:        body,
	}, nil
}

func renderJSON(records []model.WeatherRecord) ([]byte, error) {
	if records == nil {
		records = []model.WeatherRecord{}
	}
	return json.MarshalIndent(records, "", "  ")
}

var csvHeader = []string{"id", "location", "start_date", "end_date", "created_at", "sample_count"}

func renderCSV(records []model.WeatherRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for i := range records {
		r := &records[i]
		row := []string{
			r.ID.String(),
			r.Location,
			r.StartDate.String(),
			r.EndDate.String(),
			r.CreatedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(r.SampleCount()),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type xmlRecords struct {
	XMLName xml.Name    `xml:"weatherRecords"`
	Records []xmlRecord `xml:"record"`
}

type xmlRecord struct {
	ID          string `xml:"id"`
	Location    string `xml:"location"`
	StartDate   string `xml:"startDate"`
	EndDate     string `xml:"endDate"`
	CreatedAt   string `xml:"createdAt"`
	SampleCount int    `xml:"sampleCount"`
}

func renderXML(records []model.WeatherRecord) ([]byte, error) {
	doc := xmlRecords{Records: make([]xmlRecord, 0, len(records))}
	for i := range records {
		r := &records[i]
		doc.Records = append(doc.Records, xmlRecord{
			ID:          r.ID.String(),
			Location:    r.Location,
			StartDate:   r.StartDate.String(),
			EndDate:     r.EndDate.String(),
			CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
			SampleCount: r.SampleCount(),
		})
	}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
