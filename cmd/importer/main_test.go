package main

import (
	"strings"
	"testing"

	"region-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "sido_cd,sido_nm,sgg_cd,sgg_nm,emd_cd,emd_nm,lat,lon\n"

func TestParseCSV(t *testing.T) {
	records, err := parseCSV(strings.NewReader(header +
		"11,서울특별시,11020,중구,11020550,명동,37.5636,126.9834\n" +
		"31, 경기도 ,31011,수원시 장안구,31011510,파장동,37.3020,127.0100\n"))

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, RegionRecord{
		Address: models.AdministrativeAddress{
			ProvinceCode: "11", ProvinceName: "서울특별시",
			CountyCode: "11020", CountyName: "중구",
			NeighborhoodCode: "11020550", NeighborhoodName: "명동",
		},
		Center: models.Point{Latitude: 37.5636, Longitude: 126.9834},
	}, records[0])
	assert.Equal(t, "경기도", records[1].Address.ProvinceName)
	assert.Equal(t, "수원시 장안구", records[1].Address.CountyName)
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
	}{
		{name: "empty file", input: "", contains: "failed to read header"},
		{name: "short row", input: header + "11,서울특별시,11020\n", contains: "line 2: invalid record length: 3"},
		{name: "bad latitude", input: header + "11,서울특별시,11020,중구,11020550,명동,north,126.9834\n", contains: "line 2: invalid latitude"},
		{name: "bad longitude", input: header + "11,서울특별시,11020,중구,11020550,명동,37.5636,east\n", contains: "line 2: invalid longitude"},
		{name: "missing code", input: header + "11,서울특별시,11020,중구,,명동,37.5636,126.9834\n", contains: "line 2: missing region code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
