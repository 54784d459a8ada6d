// Package tabular reads and writes row-oriented workbooks.
//
// Workbooks with an .xlsx extension are handled by excelize. Files with a .csv
// extension hold a single sheet named after the file. The first row of every
// sheet is the header and defines the column names; every cell is a string.
package tabular
