package backup

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/drvault/drvault/pkg/driverstore"
)

// reportError is the error item shape of the scan transport.
type reportError struct {
	IsError bool   `json:"isError"`
	InfPath string `json:"infPath"`
	Message string `json:"message"`
}

// EncodeReport serializes a scan result as the compact JSON array
// consumed by UI frontends: one flattened object per driver, one
// {isError:true} object per error.
func EncodeReport(result *ScanResult) ([]byte, error) {
	items := make([]interface{}, 0, len(result.Drivers)+len(result.Errors))

	for _, d := range result.Drivers {
		items = append(items, d)
	}
	for _, e := range result.Errors {
		items = append(items, reportError{IsError: true, InfPath: e.Path, Message: e.Message})
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return nil, errors.Wrap(err, "backup: encode scan report")
	}

	return raw, nil
}

// DecodeReport parses a scan transport document. Producers that went
// through PowerShell collapse single-element arrays into a bare object,
// both shapes are accepted.
func DecodeReport(raw []byte) (*ScanResult, error) {
	text := string(raw)
	if !gjson.Valid(text) {
		return nil, errors.New("backup: scan report is not valid JSON")
	}

	parsed := gjson.Parse(text)

	var items []gjson.Result
	if parsed.IsArray() {
		items = parsed.Array()
	} else {
		items = []gjson.Result{parsed}
	}

	result := &ScanResult{}
	for _, item := range items {
		if !item.IsObject() {
			continue
		}

		if item.Get("isError").Bool() {
			result.AddError(item.Get("infPath").String(), item.Get("message").String())
			continue
		}

		result.Drivers = append(result.Drivers, ScannedDriver{
			DriverRecord: driverstore.DriverRecord{
				PublishedName: item.Get("publishedName").String(),
				OriginalName:  item.Get("originalName").String(),
				Provider:      item.Get("provider").String(),
				ClassName:     item.Get("className").String(),
				Version:       item.Get("version").String(),
				Date:          item.Get("date").String(),
				FullInfPath:   item.Get("fullInfPath").String(),
			},
		})
	}

	return result, nil
}
