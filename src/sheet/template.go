package sheet

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/username/carteraclaro/backend/src/models"
	"github.com/username/carteraclaro/backend/src/security/validation"
	"github.com/username/carteraclaro/backend/src/utils"
)

// Header is the fixed first row of the positions tab. Column order is part of
// the contract with the spreadsheet and must not change.
var Header = []string{
	"Estado",
	"Ticker",
	"Fecha de Apertura",
	"Cantidad",
	"Precio Ingreso",
	"Monto Ingreso",
	"Precio Hoy",
	"Rentabilidad a HOY %",
	"Rentabilidad ARs",
	"Fecha de Cierre",
	"Dias",
	"Ars Cierre",
	"Rentabilidad Ars",
	"Rentabilidad %",
	"Observaciones",
}

// BlankCell is what an absent numeric or date field serializes to. The
// spreadsheet append API drops trailing empty strings, which would break the
// row shape, so a single space is used instead.
const BlankCell = " "

// openDaysFormula keeps the Dias cell of an open row live: the spreadsheet
// recomputes days-since-open on every read. Column C is Fecha de Apertura.
const openDaysFormula = `=DAYS(TODAY(); INDIRECT("C" & ROW()))`

// State labels as written to the Estado column.
const (
	estadoOpen   = "Abierta"
	estadoClosed = "Cerrada"
)

// BuildRows renders position records into the tab's row format: the fixed
// header followed by one row per record, sorted ascending by Fecha de
// Apertura. Dates are dd-mm-yyyy, floats use a decimal comma, and absent
// fields become BlankCell.
func BuildRows(records []models.PositionRecord) [][]string {
	sorted := make([]models.PositionRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpenDate.Before(sorted[j].OpenDate)
	})

	rows := make([][]string, 0, len(sorted)+1)
	rows = append(rows, Header)
	for _, record := range sorted {
		rows = append(rows, buildRow(record))
	}
	return rows
}

func buildRow(r models.PositionRecord) []string {
	estado := estadoClosed
	if r.State == models.StateOpen {
		estado = estadoOpen
	}

	dias := BlankCell
	if r.State == models.StateOpen {
		dias = openDaysFormula
	} else if r.HoldingDays != nil {
		dias = strconv.Itoa(*r.HoldingDays)
	}

	fechaCierre := BlankCell
	if r.CloseDate != nil {
		fechaCierre = utils.FormatSheetDate(*r.CloseDate)
	}

	return []string{
		estado,
		sanitizeText(r.Ticker),
		utils.FormatSheetDate(r.OpenDate),
		FormatNumber(r.Quantity),
		FormatNumber(r.EntryPrice),
		FormatNumber(r.EntryAmount),
		formatOptional(r.CurrentPrice),
		formatOptional(r.UnrealizedPnLPct),
		formatOptional(r.UnrealizedPnL),
		fechaCierre,
		dias,
		formatOptional(r.ExitAmount),
		formatOptional(r.RealizedPnL),
		formatOptional(r.RealizedPnLPct),
		sanitizeText(r.Note),
	}
}

// FormatNumber renders a numeric cell. Whole values print as integers;
// everything else is rounded to two decimals with a decimal comma, matching
// the sheet's locale.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strings.Replace(strconv.FormatFloat(utils.RoundFloat(v, 2), 'f', 2, 64), ".", ",", 1)
}

func formatOptional(v *float64) string {
	if v == nil {
		return BlankCell
	}
	return FormatNumber(*v)
}

func sanitizeText(s string) string {
	return validation.SanitizeForFormulaInjection(validation.StripUnprintable(s))
}
