package driverstore

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/drvault/drvault/pkg/oscmd"
)

const enumerateDriversScript = `Get-WindowsDriver -Online | ` +
	`Select-Object Driver,OriginalFileName,ProviderName,ClassName,Date,Version | ` +
	`ConvertTo-Json -Compress`

// .NET JSON date serialization: "/Date(1593561600000)/"
var dotNetDateRe = regexp.MustCompile(`^/Date\((\d+)\)/$`)

func (s *Store) enumeratePowerShell(ctx context.Context) ([]DriverRecord, error) {
	cmd := s.powerShellCommand("enumerate installed drivers via DISM module", enumerateDriversScript)

	res, err := s.runner.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if !res.Succeeded() {
		return nil, errors.Errorf("Get-WindowsDriver exited with code %s: %s",
			formatExitCode(res.ExitCode), strings.TrimSpace(res.Stderr))
	}

	return ParseWindowsDriverJSON(res.Stdout)
}

// ParseWindowsDriverJSON parses the ConvertTo-Json output of
// Get-WindowsDriver -Online. PowerShell collapses single-element arrays
// into a bare object, both shapes must be accepted.
func ParseWindowsDriverJSON(raw string) ([]DriverRecord, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if !gjson.Valid(raw) {
		return nil, errors.New("driverstore: Get-WindowsDriver output is not valid JSON")
	}

	parsed := gjson.Parse(raw)

	var rows []gjson.Result
	if parsed.IsArray() {
		rows = parsed.Array()
	} else {
		rows = []gjson.Result{parsed}
	}

	var records []DriverRecord
	for _, row := range rows {
		fullInfPath := row.Get("OriginalFileName").String()
		if fullInfPath == "" {
			log.Debugf("driverstore: skipping driver row without OriginalFileName: %s", row.Get("Driver").String())
			continue
		}

		records = append(records, DriverRecord{
			PublishedName: row.Get("Driver").String(),
			OriginalName:  infBaseName(fullInfPath),
			Provider:      row.Get("ProviderName").String(),
			ClassName:     row.Get("ClassName").String(),
			Version:       row.Get("Version").String(),
			Date:          normalizeJSONDate(row.Get("Date").String()),
			FullInfPath:   fullInfPath,
		})
	}

	return records, nil
}

// infBaseName extracts the INF file name from a FileRepository path,
// regardless of the path separator convention of the producing tool.
func infBaseName(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Base(p)
}

// normalizeJSONDate converts the .NET "/Date(ms)/" serialization into the
// MM/DD/YYYY form used everywhere else, other values pass through.
func normalizeJSONDate(value string) string {
	matches := dotNetDateRe.FindStringSubmatch(strings.TrimSpace(value))
	if matches == nil {
		return value
	}

	ms, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return value
	}

	return time.Unix(ms/1000, 0).UTC().Format("01/02/2006")
}

// ResolveInfPaths fills in missing FileRepository paths on the given
// records using the PowerShell enumeration, the only source that reports
// them. pnputil-sourced records need this before they can be copied out
// of the store. Matching is by (originalName, version) key first, then by
// published name.
func (s *Store) ResolveInfPaths(ctx context.Context, records []DriverRecord) ([]DriverRecord, error) {
	needLookup := false
	for _, rec := range records {
		if rec.FullInfPath == "" {
			needLookup = true
			break
		}
	}
	if !needLookup {
		return records, nil
	}

	detailed, err := s.enumeratePowerShell(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "driverstore: resolve driver package paths")
	}

	byKey := make(map[string]string, len(detailed))
	byPublished := make(map[string]string, len(detailed))
	for _, d := range detailed {
		byKey[d.Key()] = d.FullInfPath
		if d.PublishedName != "" {
			byPublished[strings.ToLower(d.PublishedName)] = d.FullInfPath
		}
	}

	resolved := make([]DriverRecord, 0, len(records))
	for _, rec := range records {
		if rec.FullInfPath == "" {
			if p, ok := byKey[rec.Key()]; ok {
				rec.FullInfPath = p
			} else if p, ok := byPublished[strings.ToLower(rec.PublishedName)]; ok && rec.PublishedName != "" {
				rec.FullInfPath = p
			} else {
				log.Debugf("driverstore: no FileRepository path found for %s", rec.DisplayName())
			}
		}
		resolved = append(resolved, rec)
	}

	return resolved, nil
}

// CopyPackageCommand copies the whole FileRepository folder of one
// installed driver package into destDir, used by selective backup.
func (s *Store) CopyPackageCommand(rec DriverRecord, destDir string) (oscmd.Command, error) {
	if rec.FullInfPath == "" {
		return oscmd.Command{}, errors.Errorf("driverstore: no FileRepository path known for %s", rec.DisplayName())
	}

	srcDir := parentDir(rec.FullInfPath)
	script := fmt.Sprintf(`Copy-Item -LiteralPath %s -Destination %s -Recurse -Force`,
		oscmd.QuotePSString(srcDir), oscmd.QuotePSString(destDir))

	return s.powerShellCommand(fmt.Sprintf("back up driver package %s", rec.DisplayName()), script), nil
}

// parentDir strips the file name from a path without assuming the host
// separator convention, the input may come from a Windows tool.
func parentDir(p string) string {
	idx := strings.LastIndexAny(p, `\/`)
	if idx <= 0 {
		return p
	}
	return p[:idx]
}
