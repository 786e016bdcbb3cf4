// Package models defines the domain types for Tabula.
package models

import "time"

// File types accepted for ingestion.
const (
	FileTypeCSV  = "csv"
	FileTypeXLSX = "xlsx"
	FileTypeXLS  = "xls"
)

// StatusCompleted is the only status a dataset reaches after ingestion.
const StatusCompleted = "completed"

// Column types produced by schema inference.
const (
	ColumnString  = "string"
	ColumnNumber  = "number"
	ColumnDate    = "date"
	ColumnBoolean = "boolean"
)

// Dataset is one ingested file.
type Dataset struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	OriginalFilename string    `json:"original_filename"`
	FileType         string    `json:"file_type"`
	RowCount         int       `json:"row_count"`
	ColumnCount      int       `json:"column_count"`
	FileSize         int64     `json:"file_size"`
	Checksum         string    `json:"checksum,omitempty"`
	Status           string    `json:"status"`
	UploadDate       time.Time `json:"upload_date"`

	// Columns is populated by detail reads only.
	Columns []Column `json:"columns,omitempty"`
}

// Column is one inferred field of a dataset.
type Column struct {
	DatasetID         string `json:"dataset_id"`
	ColumnName        string `json:"column_name"`
	ColumnType        string `json:"column_type"`
	IsFilterable      bool   `json:"is_filterable"`
	UniqueValuesCount int    `json:"unique_values_count"`
}
