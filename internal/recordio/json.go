// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package recordio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mobiletoly/go-storegeo/storegeo"
)

// jsonRecord is the file shape of a record: dates travel as "2006-01-02".
type jsonRecord struct {
	StoreNbr                 int64   `json:"STORE_NBR"`
	RetailSqFt               *int64  `json:"RETAIL_SQ_FT"`
	HR24Ind                  string  `json:"HR24_IND"`
	CityName                 string  `json:"CITY_NAME"`
	StateCd                  string  `json:"STATE_CD"`
	ZipCd                    string  `json:"ZIP_CD"`
	PharmacyInd              string  `json:"PHARMACY_IND"`
	ActiveStoreInd           string  `json:"ACTIVE_STORE_IND"`
	ClinicLinkStoreNbr       *int64  `json:"CLINIC_LINK_STORE_NBR"`
	MinClinicInd             string  `json:"MIN_CLINIC_IND"`
	PrimaryDCID              *int64  `json:"PRIMARY_DC_ID"`
	WebSalePickupLocationInd string  `json:"WEB_SALE_PICKUP_LOCATION_IND"`
	DistrictNbr              *int64  `json:"DISTRICT_NBR"`
	StoreOpenDt              *string `json:"STORE_OPEN_DT"`
	StoreCloseDt             *string `json:"STORE_CLOSE_DT"`
	AreaNbr                  *int64  `json:"AREA_NBR"`
	RegionNbr                *int64  `json:"REGION_NBR"`
	StreetTxt                string  `json:"STREET_TXT"`
}

// ReadJSON decodes a JSON array of records, one element at a time.
// Unknown keys are rejected.
func ReadJSON(r io.Reader) ([]storegeo.StoreGeography, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("expected a JSON array of records")
	}

	var records []storegeo.StoreGeography
	for i := 0; dec.More(); i++ {
		var jr jsonRecord
		if err := dec.Decode(&jr); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rec, err := jr.toRecord()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read end of array: %w", err)
	}
	return records, nil
}

func (jr jsonRecord) toRecord() (storegeo.StoreGeography, error) {
	rec := storegeo.StoreGeography{
		StoreNbr:                 jr.StoreNbr,
		RetailSqFt:               jr.RetailSqFt,
		HR24Ind:                  jr.HR24Ind,
		CityName:                 jr.CityName,
		StateCd:                  jr.StateCd,
		ZipCd:                    jr.ZipCd,
		PharmacyInd:              jr.PharmacyInd,
		ActiveStoreInd:           jr.ActiveStoreInd,
		ClinicLinkStoreNbr:       jr.ClinicLinkStoreNbr,
		MinClinicInd:             jr.MinClinicInd,
		PrimaryDCID:              jr.PrimaryDCID,
		WebSalePickupLocationInd: jr.WebSalePickupLocationInd,
		DistrictNbr:              jr.DistrictNbr,
		AreaNbr:                  jr.AreaNbr,
		RegionNbr:                jr.RegionNbr,
		StreetTxt:                jr.StreetTxt,
	}

	var err error
	if jr.StoreOpenDt != nil {
		if rec.StoreOpenDt, err = parseOptionalDate(*jr.StoreOpenDt); err != nil {
			return rec, fmt.Errorf("%s: %w", storegeo.ColStoreOpenDt, err)
		}
	}
	if jr.StoreCloseDt != nil {
		if rec.StoreCloseDt, err = parseOptionalDate(*jr.StoreCloseDt); err != nil {
			return rec, fmt.Errorf("%s: %w", storegeo.ColStoreCloseDt, err)
		}
	}
	return rec, nil
}

func fromRecord(r storegeo.StoreGeography) jsonRecord {
	jr := jsonRecord{
		StoreNbr:                 r.StoreNbr,
		RetailSqFt:               r.RetailSqFt,
		HR24Ind:                  r.HR24Ind,
		CityName:                 r.CityName,
		StateCd:                  r.StateCd,
		ZipCd:                    r.ZipCd,
		PharmacyInd:              r.PharmacyInd,
		ActiveStoreInd:           r.ActiveStoreInd,
		ClinicLinkStoreNbr:       r.ClinicLinkStoreNbr,
		MinClinicInd:             r.MinClinicInd,
		PrimaryDCID:              r.PrimaryDCID,
		WebSalePickupLocationInd: r.WebSalePickupLocationInd,
		DistrictNbr:              r.DistrictNbr,
		AreaNbr:                  r.AreaNbr,
		RegionNbr:                r.RegionNbr,
		StreetTxt:                r.StreetTxt,
	}
	if r.StoreOpenDt != nil {
		s := formatOptionalDate(r.StoreOpenDt)
		jr.StoreOpenDt = &s
	}
	if r.StoreCloseDt != nil {
		s := formatOptionalDate(r.StoreCloseDt)
		jr.StoreCloseDt = &s
	}
	return jr
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []storegeo.StoreGeography) error {
	out := make([]jsonRecord, len(records))
	for i, r := range records {
		out[i] = fromRecord(r)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return nil
}
