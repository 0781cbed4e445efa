// charconv imports legacy character.sql-style INSERT rows into this core's
// characters table, one persist.CharacterRepo.Create call per row. Grounded
// on the teacher's cmd/sqlconv row-scan/regex-capture shape applied to a
// database target instead of a YAML file — the closer parallel here is the
// teacher's own persist bootstrap (internal/persist/db.go's pgxpool dial),
// since a character import is a one-shot database write rather than a
// content-catalog conversion.
//
// Usage:
//
//	go run ./cmd/charconv -shard shard-1 character.sql
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/worldcore/server/internal/config"
	"github.com/worldcore/server/internal/persist"
)

// legacy row shape:
// INSERT INTO characters VALUES ('<account>','<name>','<class_id>','<level>','<xp>','<hp>','<max_hp>','<x>','<y>','<z>');
var rowPattern = regexp.MustCompile(`VALUES\s*\(\s*'([^']*)'\s*,\s*'([^']*)'\s*,\s*'(-?\d+)'\s*,\s*'(-?\d+)'\s*,\s*'(-?\d+)'\s*,\s*'(-?\d+)'\s*,\s*'(-?\d+)'\s*,\s*'(-?\d+)'\s*,\s*'(-?\d+)'\s*,\s*'(-?\d+)'\s*\)`)

func main() {
	shard := flag.String("shard", "shard-1", "shard_id to stamp on every imported character")
	cfgPath := flag.String("config", "config/server.toml", "worldcore config file (for the database DSN)")
	dryRun := flag.Bool("dry-run", false, "parse and print rows without writing to the database")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: charconv [-shard shard-1] [-config config/server.toml] [-dry-run] <character.sql>")
		os.Exit(1)
	}

	rows, err := parseRows(args[0], *shard)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	fmt.Printf("parsed %d character rows from %s\n", len(rows), args[0])

	if *dryRun {
		for _, r := range rows {
			fmt.Printf("  %-16s class=%d level=%d xp=%d hp=%d/%d pos=(%.0f,%.0f,%.0f)\n",
				r.Name, r.ClassID, r.Level, r.XP, r.HP, r.MaxHP, r.X, r.Y, r.Z)
		}
		return
	}

	if err := importRows(rows, *cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
	fmt.Println("Done!")
}

func parseRows(path, shard string) ([]persist.CharacterRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var rows []persist.CharacterRow
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
		classID, _ := strconv.Atoi(m[3])
		level, _ := strconv.Atoi(m[4])
		xp, _ := strconv.Atoi(m[5])
		hp, _ := strconv.Atoi(m[6])
		maxHP, _ := strconv.Atoi(m[7])
		x, _ := strconv.Atoi(m[8])
		y, _ := strconv.Atoi(m[9])
		z, _ := strconv.Atoi(m[10])

		rows = append(rows, persist.CharacterRow{
			AccountName: m[1],
			Name:        m[2],
			ShardID:     shard,
			ClassID:     int32(classID),
			Level:       int32(level),
			XP:          int64(xp),
			HP:          int32(hp),
			MaxHP:       int32(maxHP),
			X:           float64(x),
			Y:           float64(y),
			Z:           float64(z),
		})
	}
	return rows, scanner.Err()
}

func importRows(rows []persist.CharacterRow, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := zap.NewNop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	repo := persist.NewCharacterRepo(db)
	imported := 0
	for i := range rows {
		row := rows[i]
		if err := repo.Create(ctx, &row); err != nil {
			fmt.Fprintf(os.Stderr, "  skip %s: %v\n", row.Name, err)
			continue
		}
		imported++
	}
	fmt.Printf("imported %d/%d characters\n", imported, len(rows))
	return nil
}
