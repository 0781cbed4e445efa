// spawnconv converts legacy spawnlist.sql-style INSERT dumps into this
// core's spawn point YAML (data.SpawnPoint, loaded by
// data.LoadSpawnPointTable). Grounded on the teacher's cmd/sqlconv
// convertSpawn: same line-scan-for-INSERT / regex-capture-values /
// positional-field-parse shape, narrowed from the teacher's tile-grid
// spawnlist columns down to this domain's shard/region/room-coordinate
// columns.
//
// Usage:
//
//	go run ./cmd/spawnconv -shard shard-1 -region greenwood -type mob spawnlist.sql spawn_points.yaml
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type spawnEntryYAML struct {
	ID        int32   `yaml:"id"`
	SpawnID   string  `yaml:"spawn_id"`
	ShardID   string  `yaml:"shard_id"`
	RegionID  string  `yaml:"region_id"`
	Type      string  `yaml:"type"`
	ProtoID   int32   `yaml:"proto_id"`
	VariantID string  `yaml:"variant_id"`
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	Z         float64 `yaml:"z"`
}

// legacy row shape: INSERT INTO spawnlist VALUES ('<id>','<proto_id>','<x>','<y>','<z>');
var rowPattern = regexp.MustCompile(`VALUES\s*\(\s*'(-?\d+)'\s*,\s*'(-?\d+)'\s*,\s*'(-?\d+)'\s*,\s*'(-?\d+)'\s*,\s*'(-?\d+)'\s*\)`)

func main() {
	shard := flag.String("shard", "shard-1", "shard_id to stamp on every converted row")
	region := flag.String("region", "", "region_id to stamp on every converted row (required)")
	spawnType := flag.String("type", "mob", "spawn point type: npc|mob|creature|node|resource")
	authority := flag.String("authority", "seed", "spawn_id authority prefix: anchor|seed|brain|manual")
	flag.Parse()

	args := flag.Args()
	if *region == "" || len(args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: spawnconv -region <region_id> [-shard shard-1] [-type mob] [-authority seed] <input.sql> <output.yaml>")
		os.Exit(1)
	}

	entries, err := convert(args[0], *shard, *region, *spawnType, *authority)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}

	if err := writeYAML(args[1], entries); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	fmt.Printf("spawn: %d entries -> %s\n", len(entries), args[1])
}

func convert(sqlPath, shard, region, spawnType, authority string) ([]spawnEntryYAML, error) {
	f, err := os.Open(sqlPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", sqlPath, err)
	}
	defer f.Close()

	var entries []spawnEntryYAML
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 1024*1024)
	scanner.Buffer(buf, len(buf))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.Contains(strings.ToUpper(line), "INSERT INTO") {
			continue
		}
		m := rowPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, _ := strconv.Atoi(m[1])
		protoID, _ := strconv.Atoi(m[2])
		x, _ := strconv.Atoi(m[3])
		y, _ := strconv.Atoi(m[4])
		z, _ := strconv.Atoi(m[5])

		entries = append(entries, spawnEntryYAML{
			ID:       int32(id),
			SpawnID:  fmt.Sprintf("%s:%d", authority, id),
			ShardID:  shard,
			RegionID: region,
			Type:     spawnType,
			ProtoID:  int32(protoID),
			X:        float64(x),
			Y:        float64(y),
			Z:        float64(z),
		})
	}
	return entries, scanner.Err()
}

func writeYAML(path string, entries []spawnEntryYAML) error {
	out, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	fmt.Fprintln(f, "# generated by cmd/spawnconv — review before committing")
	_, err = f.Write(out)
	return err
}
