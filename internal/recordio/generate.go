// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package recordio

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/mobiletoly/go-storegeo/storegeo"
)

var (
	syntheticCities = []struct{ city, state, zip string }{
		{"Deerfield", "IL", "60015"},
		{"Chicago", "IL", "60601"},
		{"Phoenix", "AZ", "85004"},
		{"Austin", "TX", "78701"},
		{"Orlando", "FL", "32801"},
		{"Denver", "CO", "80202"},
		{"Seattle", "WA", "98101"},
		{"Columbus", "OH", "43215"},
	}
	syntheticStreets = []string{"Main St", "Oak Ave", "Lake Shore Dr", "Elm St", "Broadway", "Market St"}
)

// Generate returns n synthetic records with distinct store numbers starting at
// firstStore. The same seed always yields the same records.
func Generate(n int, firstStore int64, seed uint64) []storegeo.StoreGeography {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	epoch := time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

	yn := func(pct int) string {
		if rng.IntN(100) < pct {
			return "Y"
		}
		return "N"
	}
	optInt := func(pct int, limit int64) *int64 {
		if rng.IntN(100) >= pct {
			return nil
		}
		v := rng.Int64N(limit) + 1
		return &v
	}

	records := make([]storegeo.StoreGeography, n)
	for i := range records {
		loc := syntheticCities[rng.IntN(len(syntheticCities))]
		opened := epoch.AddDate(0, 0, rng.IntN(12000))

		rec := storegeo.StoreGeography{
			StoreNbr:                 firstStore + int64(i),
			RetailSqFt:               optInt(95, 30000),
			HR24Ind:                  yn(15),
			CityName:                 loc.city,
			StateCd:                  loc.state,
			ZipCd:                    loc.zip,
			PharmacyInd:              yn(85),
			ActiveStoreInd:           yn(95),
			MinClinicInd:             yn(20),
			PrimaryDCID:              optInt(90, 60),
			WebSalePickupLocationInd: yn(70),
			DistrictNbr:              optInt(98, 900),
			StoreOpenDt:              &opened,
			AreaNbr:                  optInt(98, 40),
			RegionNbr:                optInt(98, 8),
			StreetTxt:                fmt.Sprintf("%d %s", rng.IntN(9000)+100, syntheticStreets[rng.IntN(len(syntheticStreets))]),
		}
		if rec.MinClinicInd == "Y" && i > 0 {
			link := firstStore + rng.Int64N(int64(i))
			rec.ClinicLinkStoreNbr = &link
		}
		if rec.ActiveStoreInd == "N" {
			closed := opened.AddDate(0, 0, rng.IntN(3000)+30)
			rec.StoreCloseDt = &closed
		}
		records[i] = rec
	}
	return records
}
