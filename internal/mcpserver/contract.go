package mcpserver

// DatasetGuide explains to LLM consumers how uploaded files become
// datasets and how chart_data aggregates them.
const DatasetGuide = `# Tabula Dataset Guide

## Ingestion

- Accepted files: ` + "`" + `.csv` + "`" + `, ` + "`" + `.xlsx` + "`" + `, ` + "`" + `.xls` + "`" + ` (first sheet only).
- The first row is the header. Blank spreadsheet headers become ` + "`" + `__EMPTY` + "`" + `,
  ` + "`" + `__EMPTY_1` + "`" + `, ...; repeated headers get ` + "`" + `_1` + "`" + `, ` + "`" + `_2` + "`" + ` suffixes.
- Column names are cleaned: trimmed, punctuation removed, whitespace runs
  replaced by one underscore (` + "`" + `"Total Sales ($)"` + "`" + ` becomes ` + "`" + `Total_Sales_` + "`" + `).
- Empty cells and the literal text ` + "`" + `null` + "`" + ` are dropped, so rows may have
  fewer fields than the dataset has columns.

## Column types

Types are inferred from the first 500 rows, in this order:

1. **number** when every value parses as a number (empty values allowed)
2. **date** when every value parses as a calendar date
3. **boolean** when every value is one of true/false/yes/no/0/1
4. **string** otherwise

A column is **filterable** when its distinct values are fewer than 80% of
the dataset's rows.

## Charts

- ` + "`" + `bar` + "`" + `, ` + "`" + `line` + "`" + `, ` + "`" + `area` + "`" + `: rows are grouped by ` + "`" + `x_axis` + "`" + ` and ` + "`" + `y_axis` + "`" + ` is summed.
  Missing categories are labelled ` + "`" + `Unknown` + "`" + `, non-numeric values count as 0.
  The 20 largest groups are returned, largest first.
- ` + "`" + `pie` + "`" + `: rows are counted per category; the 10 largest slices are returned.
- When axes are omitted: x is the first column, y the first numeric column
  (else the second column), the pie category the first text column.
- ` + "`" + `filters` + "`" + ` keeps rows whose value contains the filter text,
  ignoring case. The value ` + "`" + `all` + "`" + ` disables a filter.
`
