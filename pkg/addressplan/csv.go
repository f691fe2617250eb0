/*
Copyright 2019 Alexander Eldeib.
*/

package addressplan

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
)

const (
	regionColumn = "region"
	cidrColumn   = "cidr"

	byteOrderMark = "\ufeff"
)

type csvFile struct {
	path string
	log  logr.Logger
}

// CSVFile reads a plan from a file with a Region,Cidr header. Bad rows are logged and skipped.
func CSVFile(path string, log logr.Logger) Source {
	return &csvFile{path: path, log: log}
}

func (c *csvFile) Resolve(ctx context.Context, regions []string) (Plan, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, inventory.NewConfigurationError("failed to open address plan: %v", err)
	}
	defer f.Close()

	plan, err := ParseCSV(f, regions, c.log)
	if plan == nil {
		return nil, inventory.NewConfigurationError("failed to read address plan %s: %v", c.path, err)
	}
	if err != nil {
		c.log.Info("skipped invalid address plan rows", "file", c.path, "error", err.Error())
	}
	return plan, nil
}

// ParseCSV builds a plan for the regions in scope. Column order and header case do not matter.
// A nil plan means the input is unusable. Otherwise the error, if any, holds one entry per rejected
// line, numbered as in the file. Blank lines and lines starting with '#' are skipped.
func ParseCSV(r io.Reader, regions []string, log logr.Logger) (Plan, error) {
	lines := &lineReader{scanner: bufio.NewScanner(r)}

	header, err := lines.next()
	if err == io.EOF {
		return nil, errors.New("empty file, expected a Region,Cidr header")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not read header on line %d", lines.line)
	}

	cols := make(map[string]int)
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	regionCol, ok := cols[regionColumn]
	if !ok {
		return nil, errors.New("could not find 'Region' column")
	}
	cidrCol, ok := cols[cidrColumn]
	if !ok {
		return nil, errors.New("could not find 'Cidr' column")
	}

	scope := map[string]bool{}
	for _, region := range regions {
		scope[inventory.NormalizeRegion(region)] = true
	}

	plan := Plan{}
	var result *multierror.Error
	for {
		record, err := lines.next()
		if err == io.EOF {
			break
		}
		line := lines.line
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "line %d", line))
			if _, ok := err.(*csv.ParseError); ok {
				continue
			}
			break
		}
		if regionCol >= len(record) || cidrCol >= len(record) {
			result = multierror.Append(result, errors.Errorf("line %d: expected region and cidr, got %d fields", line, len(record)))
			continue
		}

		region := inventory.NormalizeRegion(record[regionCol])
		if region == "" {
			result = multierror.Append(result, errors.Errorf("line %d: empty region", line))
			continue
		}
		cidr, err := ValidateCIDR(record[cidrCol])
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "line %d", line))
			continue
		}
		if !scope[region] {
			log.V(1).Info("ignoring region outside scope", "region", region, "line", line)
			continue
		}
		if existing, ok := plan[region]; ok {
			if existing != cidr {
				result = multierror.Append(result, errors.Errorf("line %d: region %s already planned as %s, ignoring %s", line, region, existing, cidr))
			}
			continue
		}
		plan[region] = cidr
	}

	return plan, result.ErrorOrNil()
}

// lineReader parses one record per physical line so errors can point at the line in the file.
type lineReader struct {
	scanner *bufio.Scanner
	line    int
}

func (l *lineReader) next() ([]string, error) {
	for l.scanner.Scan() {
		l.line++
		text := strings.TrimSpace(l.scanner.Text())
		if l.line == 1 {
			text = strings.TrimPrefix(text, byteOrderMark)
		}
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		reader := csv.NewReader(strings.NewReader(text))
		reader.TrimLeadingSpace = true
		reader.FieldsPerRecord = -1
		return reader.Read()
	}
	if err := l.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
