// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package storegeo

import "time"

// Column names of the store geography table, in insert order.
const (
	ColStoreNbr                 = "STORE_NBR"
	ColRetailSqFt               = "RETAIL_SQ_FT"
	ColHR24Ind                  = "HR24_IND"
	ColCityName                 = "CITY_NAME"
	ColStateCd                  = "STATE_CD"
	ColZipCd                    = "ZIP_CD"
	ColPharmacyInd              = "PHARMACY_IND"
	ColActiveStoreInd           = "ACTIVE_STORE_IND"
	ColClinicLinkStoreNbr       = "CLINIC_LINK_STORE_NBR"
	ColMinClinicInd             = "MIN_CLINIC_IND"
	ColPrimaryDCID              = "PRIMARY_DC_ID"
	ColWebSalePickupLocationInd = "WEB_SALE_PICKUP_LOCATION_IND"
	ColDistrictNbr              = "DISTRICT_NBR"
	ColStoreOpenDt              = "STORE_OPEN_DT"
	ColStoreCloseDt             = "STORE_CLOSE_DT"
	ColAreaNbr                  = "AREA_NBR"
	ColRegionNbr                = "REGION_NBR"
	ColStreetTxt                = "STREET_TXT"
)

// Columns is the allow-list of column names the loader will ever put into SQL text.
// The order matches StoreGeography.Values.
var Columns = []string{
	ColStoreNbr,
	ColRetailSqFt,
	ColHR24Ind,
	ColCityName,
	ColStateCd,
	ColZipCd,
	ColPharmacyInd,
	ColActiveStoreInd,
	ColClinicLinkStoreNbr,
	ColMinClinicInd,
	ColPrimaryDCID,
	ColWebSalePickupLocationInd,
	ColDistrictNbr,
	ColStoreOpenDt,
	ColStoreCloseDt,
	ColAreaNbr,
	ColRegionNbr,
	ColStreetTxt,
}

// StoreGeography is one row of the store geography table.
// Nullable columns are pointers; a nil pointer is written as NULL.
type StoreGeography struct {
	StoreNbr                 int64      `json:"STORE_NBR"`
	RetailSqFt               *int64     `json:"RETAIL_SQ_FT"`
	HR24Ind                  string     `json:"HR24_IND"`
	CityName                 string     `json:"CITY_NAME"`
	StateCd                  string     `json:"STATE_CD"`
	ZipCd                    string     `json:"ZIP_CD"`
	PharmacyInd              string     `json:"PHARMACY_IND"`
	ActiveStoreInd           string     `json:"ACTIVE_STORE_IND"`
	ClinicLinkStoreNbr       *int64     `json:"CLINIC_LINK_STORE_NBR"`
	MinClinicInd             string     `json:"MIN_CLINIC_IND"`
	PrimaryDCID              *int64     `json:"PRIMARY_DC_ID"`
	WebSalePickupLocationInd string     `json:"WEB_SALE_PICKUP_LOCATION_IND"`
	DistrictNbr              *int64     `json:"DISTRICT_NBR"`
	StoreOpenDt              *time.Time `json:"STORE_OPEN_DT"`
	StoreCloseDt             *time.Time `json:"STORE_CLOSE_DT"`
	AreaNbr                  *int64     `json:"AREA_NBR"`
	RegionNbr                *int64     `json:"REGION_NBR"`
	StreetTxt                string     `json:"STREET_TXT"`
}

// Key returns the natural key used for replace matching.
func (r StoreGeography) Key() int64 {
	return r.StoreNbr
}

// Values returns the row values in Columns order, ready to be bound as query arguments.
func (r StoreGeography) Values() []any {
	return []any{
		r.StoreNbr,
		r.RetailSqFt,
		r.HR24Ind,
		r.CityName,
		r.StateCd,
		r.ZipCd,
		r.PharmacyInd,
		r.ActiveStoreInd,
		r.ClinicLinkStoreNbr,
		r.MinClinicInd,
		r.PrimaryDCID,
		r.WebSalePickupLocationInd,
		r.DistrictNbr,
		r.StoreOpenDt,
		r.StoreCloseDt,
		r.AreaNbr,
		r.RegionNbr,
		r.StreetTxt,
	}
}
