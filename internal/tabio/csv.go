// Package tabio reads and writes the tabular wire formats: the two input
// event tables and the derived ledger and alert tables, as CSV and
// newline-delimited JSON. Column names and order are fixed for
// compatibility with the demo corpus.
package tabio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/contracts"
)

var productColumns = []string{
	"product_id", "batch_number", "manufacturer_id", "manufacturer_name",
	"material_type", "material_category", "weight_kg", "carbon_footprint",
	"recyclable_percentage", "gst_hsn_code", "manufacturing_date",
	"expiry_date", "qr_code_hash", "gps_lat", "gps_lon", "source",
}

var recoveryColumns = []string{
	"recovery_id", "product_id", "recovery_center_id", "recovery_center_name",
	"recovery_date", "material_type", "weight_recovered", "condition",
	"recycling_method", "recovered_by", "circular_credit_amount",
	"gps_lat", "gps_lon", "verification_hash",
}

var ledgerColumns = []string{
	"product_id", "material_type", "material_category", "manufacturer",
	"manufacturer_id", "weight_kg", "carbon_footprint", "recovered",
	"recovery_center", "recovery_region", "recovery_date", "circular_credit",
	"days_since_production", "status", "carbon_saved",
}

var alertColumns = []string{
	"alert_id", "alert_type", "severity", "product_id", "material_type",
	"description", "days_in_transit", "recommended_action", "timestamp",
	"location",
}

// RowError is a parse failure for a single CSV row. Row errors never abort
// the rest of the file.
type RowError struct {
	Line  int
	Field string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: field %s: %v", e.Line, e.Field, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

func WriteProducts(w io.Writer, products []contracts.ProductEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(productColumns); err != nil {
		return fmt.Errorf("write product header: %w", err)
	}
	for _, p := range products {
		expiry := ""
		if p.ExpiryDate != nil {
			expiry = formatEpoch(*p.ExpiryDate)
		}
		row := []string{
			p.ProductID,
			p.BatchNumber,
			p.ManufacturerID,
			p.ManufacturerName,
			p.MaterialType,
			string(p.MaterialCategory),
			formatFloat(p.WeightKg),
			formatFloat(p.CarbonFootprint),
			formatFloat(p.RecyclablePercentage),
			p.GSTHSNCode,
			formatEpoch(p.ManufacturingDate),
			expiry,
			p.QRCodeHash,
			formatFloat(p.GPSLat),
			formatFloat(p.GPSLon),
			p.Source,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write product row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadProducts(r io.Reader) ([]contracts.ProductEvent, []*RowError, error) {
	records, err := readAll(r, productColumns)
	if err != nil {
		return nil, nil, err
	}

	products := make([]contracts.ProductEvent, 0, len(records))
	var rowErrs []*RowError
	for _, rec := range records {
		p := contracts.ProductEvent{
			ProductID:        rec.get("product_id"),
			BatchNumber:      rec.get("batch_number"),
			ManufacturerID:   rec.get("manufacturer_id"),
			ManufacturerName: rec.get("manufacturer_name"),
			MaterialType:     rec.get("material_type"),
			MaterialCategory: contracts.MaterialCategory(rec.get("material_category")),
			GSTHSNCode:       rec.get("gst_hsn_code"),
			QRCodeHash:       rec.get("qr_code_hash"),
			Source:           rec.get("source"),
		}

		var rowErr *RowError
		p.WeightKg, rowErr = rec.getFloat("weight_kg")
		if rowErr == nil {
			p.CarbonFootprint, rowErr = rec.getFloat("carbon_footprint")
		}
		if rowErr == nil {
			p.RecyclablePercentage, rowErr = rec.getFloat("recyclable_percentage")
		}
		if rowErr == nil {
			p.ManufacturingDate, rowErr = rec.getEpoch("manufacturing_date")
		}
		if rowErr == nil {
			p.GPSLat, rowErr = rec.getFloat("gps_lat")
		}
		if rowErr == nil {
			p.GPSLon, rowErr = rec.getFloat("gps_lon")
		}
		if rowErr == nil && rec.get("expiry_date") != "" {
			var expiry time.Time
			expiry, rowErr = rec.getEpoch("expiry_date")
			if rowErr == nil {
				p.ExpiryDate = &expiry
			}
		}

		if rowErr != nil {
			rowErrs = append(rowErrs, rowErr)
			continue
		}
		products = append(products, p)
	}
	return products, rowErrs, nil
}

func WriteRecoveries(w io.Writer, recoveries []contracts.RecoveryEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(recoveryColumns); err != nil {
		return fmt.Errorf("write recovery header: %w", err)
	}
	for _, r := range recoveries {
		row := []string{
			r.RecoveryID,
			r.ProductID,
			r.RecoveryCenterID,
			r.RecoveryCenterName,
			formatEpoch(r.RecoveryDate),
			r.MaterialType,
			formatFloat(r.WeightRecovered),
			string(r.Condition),
			r.RecyclingMethod,
			r.RecoveredBy,
			formatFloat(r.CircularCreditAmount),
			formatFloat(r.GPSLat),
			formatFloat(r.GPSLon),
			r.VerificationHash,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write recovery row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadRecoveries(r io.Reader) ([]contracts.RecoveryEvent, []*RowError, error) {
	records, err := readAll(r, recoveryColumns)
	if err != nil {
		return nil, nil, err
	}

	recoveries := make([]contracts.RecoveryEvent, 0, len(records))
	var rowErrs []*RowError
	for _, rec := range records {
		rv := contracts.RecoveryEvent{
			RecoveryID:         rec.get("recovery_id"),
			ProductID:          rec.get("product_id"),
			RecoveryCenterID:   rec.get("recovery_center_id"),
			RecoveryCenterName: rec.get("recovery_center_name"),
			MaterialType:       rec.get("material_type"),
			Condition:          contracts.Condition(rec.get("condition")),
			RecyclingMethod:    rec.get("recycling_method"),
			RecoveredBy:        rec.get("recovered_by"),
			VerificationHash:   rec.get("verification_hash"),
		}

		var rowErr *RowError
		rv.RecoveryDate, rowErr = rec.getEpoch("recovery_date")
		if rowErr == nil {
			rv.WeightRecovered, rowErr = rec.getFloat("weight_recovered")
		}
		if rowErr == nil {
			rv.CircularCreditAmount, rowErr = rec.getFloat("circular_credit_amount")
		}
		if rowErr == nil {
			rv.GPSLat, rowErr = rec.getFloat("gps_lat")
		}
		if rowErr == nil {
			rv.GPSLon, rowErr = rec.getFloat("gps_lon")
		}

		if rowErr != nil {
			rowErrs = append(rowErrs, rowErr)
			continue
		}
		recoveries = append(recoveries, rv)
	}
	return recoveries, rowErrs, nil
}

func WriteLedger(w io.Writer, rows []contracts.LedgerRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledgerColumns); err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}
	for _, row := range rows {
		recoveryDate := ""
		if row.RecoveryDate != nil {
			recoveryDate = formatEpoch(*row.RecoveryDate)
		}
		out := []string{
			row.ProductID,
			row.MaterialType,
			string(row.MaterialCategory),
			row.Manufacturer,
			row.ManufacturerID,
			formatFloat(row.WeightKg),
			formatFloat(row.CarbonFootprint),
			strconv.FormatBool(row.Recovered),
			row.RecoveryCenter,
			row.RecoveryRegion,
			recoveryDate,
			formatFloat(row.CircularCredit),
			formatFloat(row.DaysSinceProduction),
			string(row.Status),
			formatFloat(row.CarbonSaved),
		}
		if err := cw.Write(out); err != nil {
			return fmt.Errorf("write ledger row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteAlerts(w io.Writer, alerts []contracts.Alert) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(alertColumns); err != nil {
		return fmt.Errorf("write alert header: %w", err)
	}
	for _, a := range alerts {
		row := []string{
			a.AlertID,
			a.AlertType,
			string(a.Severity),
			a.ProductID,
			a.MaterialType,
			a.Description,
			formatFloat(a.DaysInTransit),
			a.RecommendedAction,
			formatEpoch(a.Timestamp),
			a.Location,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write alert row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// record is one parsed CSV row with header-indexed access.
type record struct {
	line   int
	index  map[string]int
	fields []string
}

func (r record) get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

func (r record) getFloat(column string) (float64, *RowError) {
	raw := r.get(column)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &RowError{Line: r.line, Field: column, Err: err}
	}
	return v, nil
}

func (r record) getEpoch(column string) (time.Time, *RowError) {
	raw := r.get(column)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, &RowError{Line: r.line, Field: column, Err: err}
	}
	sec := int64(v)
	nsec := int64((v - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC(), nil
}

func readAll(r io.Reader, columns []string) ([]record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, required := range columns {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var records []record
	line := 1
	for {
		fields, err := cr.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		records = append(records, record{line: line, index: index, fields: fields})
	}
	return records, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatEpoch(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
