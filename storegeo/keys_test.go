package storegeo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareKeys(t *testing.T) {
	t.Run("UniqueKeysPassThrough", func(t *testing.T) {
		records := makeRecords(10, 1, "v1")
		out, dropped, err := prepareKeys(records, DuplicateReject)
		require.NoError(t, err)
		assert.Zero(t, dropped)
		assert.Equal(t, records, out)
	})

	t.Run("EmptyKeyRejected", func(t *testing.T) {
		records := makeRecords(3, 1, "v1")
		records[2].StoreNbr = 0
		_, _, err := prepareKeys(records, DuplicateKeepLast)
		require.ErrorIs(t, err, ErrEmptyKey)
		assert.Contains(t, err.Error(), "position 2")
	})

	t.Run("DuplicateRejected", func(t *testing.T) {
		records := append(makeRecords(3, 1, "v1"), makeRecords(1, 2, "v2")...)
		_, _, err := prepareKeys(records, DuplicateReject)
		require.ErrorIs(t, err, ErrDuplicateKey)
		assert.Contains(t, err.Error(), "STORE_NBR=2 at positions 1 and 3")
	})

	t.Run("KeepLastIsStable", func(t *testing.T) {
		records := []StoreGeography{
			{StoreNbr: 1, StreetTxt: "a"},
			{StoreNbr: 2, StreetTxt: "b"},
			{StoreNbr: 1, StreetTxt: "c"},
			{StoreNbr: 3, StreetTxt: "d"},
			{StoreNbr: 2, StreetTxt: "e"},
		}
		snapshot := append([]StoreGeography(nil), records...)

		out, dropped, err := prepareKeys(records, DuplicateKeepLast)
		require.NoError(t, err)
		assert.Equal(t, 2, dropped)
		assert.Equal(t, []StoreGeography{
			{StoreNbr: 1, StreetTxt: "c"},
			{StoreNbr: 3, StreetTxt: "d"},
			{StoreNbr: 2, StreetTxt: "e"},
		}, out)
		assert.Equal(t, snapshot, records, "input must not be modified")
	})
}
