// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package recordio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mobiletoly/go-storegeo/storegeo"
)

// ReadCSV decodes a CSV file whose first row names the columns. Header names
// match the table columns case-insensitively and may appear in any order;
// STORE_NBR is required and missing optional columns read as empty.
// Empty cells in nullable columns become NULL.
func ReadCSV(r io.Reader) ([]storegeo.StoreGeography, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	var records []storegeo.StoreGeography
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line, _ := reader.FieldPos(0)

		rec, err := decodeCSVRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func headerIndex(header []string) (map[string]int, error) {
	known := make(map[string]bool, len(storegeo.Columns))
	for _, c := range storegeo.Columns {
		known[c] = true
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if !known[name] {
			return nil, fmt.Errorf("unknown column %q in header", h)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("column %q appears twice in header", h)
		}
		index[name] = i
	}
	if _, ok := index[storegeo.ColStoreNbr]; !ok {
		return nil, fmt.Errorf("header is missing %s", storegeo.ColStoreNbr)
	}
	return index, nil
}

func decodeCSVRow(row []string, index map[string]int) (storegeo.StoreGeography, error) {
	var rec storegeo.StoreGeography
	var err error

	cell := func(col string) string {
		if i, ok := index[col]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	optInt := func(col string, dst **int64) {
		if err != nil {
			return
		}
		if *dst, err = parseOptionalInt(cell(col)); err != nil {
			err = fmt.Errorf("%s: %w", col, err)
		}
	}

	keyText := cell(storegeo.ColStoreNbr)
	if keyText != "" {
		rec.StoreNbr, err = strconv.ParseInt(keyText, 10, 64)
		if err != nil {
			return rec, fmt.Errorf("%s: %w", storegeo.ColStoreNbr, err)
		}
	}

	optInt(storegeo.ColRetailSqFt, &rec.RetailSqFt)
	optInt(storegeo.ColClinicLinkStoreNbr, &rec.ClinicLinkStoreNbr)
	optInt(storegeo.ColPrimaryDCID, &rec.PrimaryDCID)
	optInt(storegeo.ColDistrictNbr, &rec.DistrictNbr)
	optInt(storegeo.ColAreaNbr, &rec.AreaNbr)
	optInt(storegeo.ColRegionNbr, &rec.RegionNbr)
	if err != nil {
		return rec, err
	}

	if rec.StoreOpenDt, err = parseOptionalDate(cell(storegeo.ColStoreOpenDt)); err != nil {
		return rec, fmt.Errorf("%s: %w", storegeo.ColStoreOpenDt, err)
	}
	if rec.StoreCloseDt, err = parseOptionalDate(cell(storegeo.ColStoreCloseDt)); err != nil {
		return rec, fmt.Errorf("%s: %w", storegeo.ColStoreCloseDt, err)
	}

	rec.HR24Ind = cell(storegeo.ColHR24Ind)
	rec.CityName = cell(storegeo.ColCityName)
	rec.StateCd = cell(storegeo.ColStateCd)
	rec.ZipCd = cell(storegeo.ColZipCd)
	rec.PharmacyInd = cell(storegeo.ColPharmacyInd)
	rec.ActiveStoreInd = cell(storegeo.ColActiveStoreInd)
	rec.MinClinicInd = cell(storegeo.ColMinClinicInd)
	rec.WebSalePickupLocationInd = cell(storegeo.ColWebSalePickupLocationInd)
	rec.StreetTxt = cell(storegeo.ColStreetTxt)
	return rec, nil
}

// WriteCSV writes a header row followed by one row per record, in table column order.
func WriteCSV(w io.Writer, records []storegeo.StoreGeography) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(storegeo.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.FormatInt(r.StoreNbr, 10),
			formatOptionalInt(r.RetailSqFt),
			r.HR24Ind,
			r.CityName,
			r.StateCd,
			r.ZipCd,
			r.PharmacyInd,
			r.ActiveStoreInd,
			formatOptionalInt(r.ClinicLinkStoreNbr),
			r.MinClinicInd,
			formatOptionalInt(r.PrimaryDCID),
			r.WebSalePickupLocationInd,
			formatOptionalInt(r.DistrictNbr),
			formatOptionalDate(r.StoreOpenDt),
			formatOptionalDate(r.StoreCloseDt),
			formatOptionalInt(r.AreaNbr),
			formatOptionalInt(r.RegionNbr),
			r.StreetTxt,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for store %d: %w", r.StoreNbr, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
