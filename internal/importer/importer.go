// Package importer reads item and container tables from CSV and Excel files.
// It supports automatic delimiter detection, flexible column mapping, and
// case-insensitive header recognition. Headerless files use the positional
// layouts id,length,width,height,weight,type,cost for items and
// id,length,width,height,weight for containers.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/uldpack/internal/inspect"
	"github.com/piwi3910/uldpack/internal/model"
)

// Table selects which kind of rows a file holds.
type Table int

const (
	ItemTable Table = iota
	ContainerTable
)

func (t Table) String() string {
	if t == ContainerTable {
		return "containers"
	}
	return "items"
}

// Assignment is a pre-seeded placement read from an item row. Container
// holds the container id; it is resolved by BuildPlan.
type Assignment struct {
	Item      int
	Container string
	Position  model.Vec3
	Extent    model.Vec3 // effective dimensions, zero when not given
}

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Items       []model.Item
	Containers  []model.Container
	Assignments []Assignment
	Errors      []string
	Warnings    []string
}

// ColumnMapping maps semantic column roles to their indices in the data.
// Unused roles are -1.
type ColumnMapping struct {
	ID        int
	Length    int
	Width     int
	Height    int
	Weight    int
	Type      int
	Cost      int
	Container int
	X, Y, Z   int
	DX        int
	DY        int
	DZ        int
}

func emptyMapping() ColumnMapping {
	return ColumnMapping{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1}
}

// positional returns the headerless layout of t.
func positional(t Table) ColumnMapping {
	m := emptyMapping()
	m.ID, m.Length, m.Width, m.Height, m.Weight = 0, 1, 2, 3, 4
	if t == ItemTable {
		m.Type, m.Cost = 5, 6
	}
	return m
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"id":        {"id", "item", "item id", "carton", "package", "uld", "uld id", "name", "label"},
	"length":    {"length", "len", "l"},
	"width":     {"width", "w"},
	"height":    {"height", "h"},
	"weight":    {"weight", "wt", "mass", "weight limit", "max weight", "limit"},
	"type":      {"type", "priority", "class"},
	"cost":      {"cost", "delay cost", "penalty"},
	"container": {"container", "container id", "assigned", "assigned uld"},
	"x":         {"x", "x0"},
	"y":         {"y", "y0"},
	"z":         {"z", "z0"},
	"dx":        {"dx", "dim x", "size x"},
	"dy":        {"dy", "dim y", "size y"},
	"dz":        {"dz", "dim z", "size z"},
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}
		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}
		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}
		if weighted := score*10 + firstCols; weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping.
// Returns the mapping and true if a header was detected, or the positional
// mapping of t and false if no header was found.
func DetectColumns(row []string, t Table) (ColumnMapping, bool) {
	m := emptyMapping()
	slots := map[string]*int{
		"id": &m.ID, "length": &m.Length, "width": &m.Width, "height": &m.Height,
		"weight": &m.Weight, "type": &m.Type, "cost": &m.Cost, "container": &m.Container,
		"x": &m.X, "y": &m.Y, "z": &m.Z, "dx": &m.DX, "dy": &m.DY, "dz": &m.DZ,
	}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				if idx := slots[role]; *idx == -1 {
					*idx = i
				}
			}
		}
	}
	if !isHeader {
		return positional(t), false
	}
	if t == ContainerTable {
		m.Type, m.Cost, m.Container = -1, -1, -1
		m.X, m.Y, m.Z, m.DX, m.DY, m.DZ = -1, -1, -1, -1, -1, -1
	}
	return m, true
}

// getCell safely retrieves a cell value from a row by column index.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseNumber reads a required non-negative number.
func parseNumber(row []string, idx int, name, rowLabel string) (float64, string) {
	s := getCell(row, idx)
	if s == "" {
		return 0, fmt.Sprintf("%s: Missing %s value", rowLabel, name)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Sprintf("%s: Invalid %s '%s'", rowLabel, name, s)
	}
	if v < 0 {
		return 0, fmt.Sprintf("%s: %s must not be negative", rowLabel, name)
	}
	return v, ""
}

// parseDims reads length, width and height, which must be positive.
func parseDims(row []string, m ColumnMapping, rowLabel string) (model.Vec3, string) {
	var d model.Vec3
	for k, col := range []struct {
		idx  int
		name string
	}{{m.Length, "length"}, {m.Width, "width"}, {m.Height, "height"}} {
		v, msg := parseNumber(row, col.idx, col.name, rowLabel)
		if msg != "" {
			return d, msg
		}
		if v == 0 {
			return d, fmt.Sprintf("%s: Length, width, and height must be positive", rowLabel)
		}
		d[k] = v
	}
	return d, ""
}

// isUnassigned reports whether a container cell means "not loaded".
func isUnassigned(s string) bool {
	switch strings.ToUpper(s) {
	case "", "-1", "NONE", "-":
		return true
	}
	return false
}

// parseItemRow extracts an item and an optional assignment from a row.
// Returns the item, the assignment (nil if none), any error message, and
// any warning message.
func parseItemRow(row []string, m ColumnMapping, rowLabel string) (model.Item, *Assignment, string, string) {
	d, msg := parseDims(row, m, rowLabel)
	if msg != "" {
		return model.Item{}, nil, msg, ""
	}
	weight, msg := parseNumber(row, m.Weight, "weight", rowLabel)
	if msg != "" {
		return model.Item{}, nil, msg, ""
	}

	var warning string
	cost := model.DefaultCost
	if s := getCell(row, m.Cost); s != "" && s != "-" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			warning = fmt.Sprintf("%s: Invalid cost '%s', using %g", rowLabel, s, model.DefaultCost)
		} else {
			cost = v
		}
	}
	priority := strings.EqualFold(getCell(row, m.Type), "priority")

	item := model.NewItem(getCell(row, m.ID), d[0], d[1], d[2], weight, cost, priority)

	cont := getCell(row, m.Container)
	if isUnassigned(cont) {
		return item, nil, "", warning
	}
	a := &Assignment{Container: cont}
	for k, idx := range []int{m.X, m.Y, m.Z} {
		v, msg := parseNumber(row, idx, model.Axes[k].String(), rowLabel)
		if msg != "" {
			return model.Item{}, nil, msg, ""
		}
		a.Position[k] = v
	}
	for k, idx := range []int{m.DX, m.DY, m.DZ} {
		if s := getCell(row, idx); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return model.Item{}, nil, fmt.Sprintf("%s: Invalid extent '%s'", rowLabel, s), ""
			}
			a.Extent[k] = v
		}
	}
	return item, a, "", warning
}

// parseContainerRow extracts a container from a row.
func parseContainerRow(row []string, m ColumnMapping, rowLabel string) (model.Container, string) {
	d, msg := parseDims(row, m, rowLabel)
	if msg != "" {
		return model.Container{}, msg
	}
	limit, msg := parseNumber(row, m.Weight, "weight", rowLabel)
	if msg != "" {
		return model.Container{}, msg
	}
	return model.NewContainer(getCell(row, m.ID), d[0], d[1], d[2], limit), ""
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Import reads path as CSV or, for .xlsx and .xls files, as Excel.
func Import(path string, t Table) ImportResult {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls", ".xlsm":
		return ImportExcel(path, t)
	default:
		return ImportCSV(path, t)
	}
}

// ImportCSV imports a table from a CSV file.
// It automatically detects the delimiter and maps columns by header names.
func ImportCSV(path string, t Table) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}
	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	var warnings []string
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		warnings = append(warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}
	return importFromRows(records, "Line", warnings, t)
}

// ImportCSVFromReader imports a table from a CSV reader with a specific
// delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune, t Table) ImportResult {
	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot read CSV: %v", err)}}
	}
	return importFromRows(records, "Line", nil, t)
}

// ImportExcel imports a table from the first sheet of an Excel file.
func ImportExcel(path string, t Table) ImportResult {
	result := ImportResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}
	return importFromRows(rows, "Row", nil, t)
}

// importFromRows is the shared import logic for both CSV and Excel data.
func importFromRows(rows [][]string, rowPrefix string, initialWarnings []string, t Table) ImportResult {
	result := ImportResult{
		Warnings: initialWarnings,
	}
	if len(rows) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0], t)
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		var missing []string
		for _, col := range []struct {
			idx  int
			name string
		}{{mapping.Length, "Length"}, {mapping.Width, "Width"}, {mapping.Height, "Height"}, {mapping.Weight, "Weight"}} {
			if col.idx == -1 {
				missing = append(missing, col.name)
			}
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) >= 3 {
		if _, err := strconv.ParseFloat(strings.TrimSpace(rows[0][1]), 64); err != nil {
			// Unrecognized header: skip it and keep the positional mapping.
			startRow = 1
			result.Warnings = append(result.Warnings, "Detected header row, skipping")
		}
	}

	seen := map[string]string{}
	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}
		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)

		var id string
		switch t {
		case ContainerTable:
			c, errMsg := parseContainerRow(row, mapping, rowLabel)
			if errMsg != "" {
				result.Errors = append(result.Errors, errMsg)
				continue
			}
			id = c.ID
			result.Containers = append(result.Containers, c)
		default:
			item, a, errMsg, warning := parseItemRow(row, mapping, rowLabel)
			if errMsg != "" {
				result.Errors = append(result.Errors, errMsg)
				continue
			}
			if warning != "" {
				result.Warnings = append(result.Warnings, warning)
			}
			if a != nil {
				a.Item = len(result.Items)
				result.Assignments = append(result.Assignments, *a)
			}
			id = item.ID
			result.Items = append(result.Items, item)
		}
		if first, dup := seen[id]; dup {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: Duplicate id '%s' (first seen at %s)", rowLabel, id, first))
		} else {
			seen[id] = rowLabel
		}
	}

	if len(result.Items) == 0 && len(result.Containers) == 0 && len(result.Errors) == 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("No %s found", t))
	}
	return result
}

// orientationFor returns the orientation mapping dims onto extent, or LWH
// when extent is unset or matches none.
func orientationFor(dims, extent model.Vec3) (model.Orientation, bool) {
	if extent == (model.Vec3{}) {
		return model.OrientLWH, true
	}
	for _, o := range model.Orientations {
		e := o.Apply(dims)
		if model.Approx(e[0], extent[0]) && model.Approx(e[1], extent[1]) && model.Approx(e[2], extent[2]) {
			return o, true
		}
	}
	return model.OrientLWH, false
}

// BuildPlan combines item and container imports into a plan. Assignments
// naming an unknown container or an extent that is not a permutation of
// the item dimensions are dropped with a warning, and so are assignments
// that break a plan invariant (see dropConflicts). The plan always passes
// inspect.Verify.
func BuildPlan(items, containers ImportResult) (*model.Plan, []string) {
	var warnings []string
	index := make(map[string]int, len(containers.Containers))
	for c, cont := range containers.Containers {
		index[cont.ID] = c
	}

	its := append([]model.Item(nil), items.Items...)
	for _, a := range items.Assignments {
		it := &its[a.Item]
		c, ok := index[a.Container]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("Item %s: unknown container '%s', left unplaced", it.ID, a.Container))
			continue
		}
		o, ok := orientationFor(it.Dims, a.Extent)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("Item %s: extent %v does not match dimensions %v, left unplaced", it.ID, a.Extent, it.Dims))
			continue
		}
		it.Slot = &model.Slot{Container: c, Position: a.Position, Orientation: o}
	}

	conts := append([]model.Container(nil), containers.Containers...)
	plan := model.NewPlan(its, conts)
	return plan, append(warnings, dropConflicts(plan)...)
}

// dropConflicts unplaces assigned items until plan passes inspect.Verify:
// the later item of an overlapping pair, an item outside its container,
// and the last listed item of an overweight container.
func dropConflicts(plan *model.Plan) []string {
	var warnings []string
	for {
		violations := inspect.Verify(plan)
		if len(violations) == 0 {
			return warnings
		}
		v := violations[0]
		i := offender(plan, v)
		if i < 0 {
			for c := range plan.Containers {
				plan.Clear(c)
			}
			return append(warnings, fmt.Sprintf("%s, all assignments dropped", v))
		}
		plan.Unplace(i)
		warnings = append(warnings, fmt.Sprintf("Item %s: %s in %s, left unplaced", plan.Items[i].ID, v.Kind, v.Container))
	}
}

// offender returns the item to unplace for v, or -1.
func offender(plan *model.Plan, v inspect.Violation) int {
	for c := range plan.Containers {
		cont := &plan.Containers[c]
		if cont.ID != v.Container || len(cont.Items) == 0 {
			continue
		}
		if v.Kind == inspect.KindOverweight {
			return cont.Items[len(cont.Items)-1]
		}
		if len(v.Items) == 0 {
			return -1
		}
		id := v.Items[len(v.Items)-1]
		for k := len(cont.Items) - 1; k >= 0; k-- {
			if i := cont.Items[k]; plan.Items[i].ID == id {
				return i
			}
		}
	}
	return -1
}
