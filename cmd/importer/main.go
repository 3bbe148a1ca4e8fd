package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"region-api/internal/config"
	"region-api/internal/models"
	"region-api/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RegionRecord is one row of an SGIS boundary export:
// sido_cd,sido_nm,sgg_cd,sgg_nm,emd_cd,emd_nm,lat,lon
type RegionRecord struct {
	Address models.AdministrativeAddress
	Center  models.Point
}

const recordColumns = 8

func main() {
	file := flag.String("file", "", "Path to the CSV file to import")
	flag.Parse()

	if *file == "" {
		fmt.Println("Error: --file flag is required")
		os.Exit(1)
	}

	fmt.Printf("Starting import from file: %s\n", *file)

	f, err := os.Open(*file)
	if err != nil {
		fmt.Printf("Error opening file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	records, err := parseCSV(f)
	if err != nil {
		fmt.Printf("Error parsing CSV: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Parsed %d records\n", len(records))

	// Load config
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Connect to DB
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DBSource)
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := repository.NewRepository(pool)

	// Ensure tables exist
	if err := repo.EnsureSchema(ctx); err != nil {
		fmt.Printf("Error creating schema: %v\n", err)
		os.Exit(1)
	}

	// Upsert the hierarchy row by row; codes already present are left untouched
	for i, r := range records {
		if _, err := repo.EnsureHierarchy(ctx, r.Address, r.Center); err != nil {
			fmt.Printf("Error importing record %d (%s): %v\n", i+1, r.Address.NeighborhoodCode, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Successfully imported %d records\n", len(records))
}

func parseCSV(r io.Reader) ([]RegionRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields

	// Skip header
	_, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var records []RegionRecord
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		if len(record) < recordColumns {
			return nil, fmt.Errorf("line %d: invalid record length: %d, expected at least %d columns", line, len(record), recordColumns)
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}

		lat, err := strconv.ParseFloat(record[6], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid latitude: %s", line, record[6])
		}

		lon, err := strconv.ParseFloat(record[7], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid longitude: %s", line, record[7])
		}

		addr := models.AdministrativeAddress{
			ProvinceCode:     record[0],
			ProvinceName:     record[1],
			CountyCode:       record[2],
			CountyName:       record[3],
			NeighborhoodCode: record[4],
			NeighborhoodName: record[5],
		}
		if addr.ProvinceCode == "" || addr.CountyCode == "" || addr.NeighborhoodCode == "" {
			return nil, fmt.Errorf("line %d: missing region code", line)
		}

		records = append(records, RegionRecord{
			Address: addr,
			Center:  models.Point{Latitude: lat, Longitude: lon},
		})
	}

	return records, nil
}
