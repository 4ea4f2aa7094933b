package driverstore

import (
	"strings"
)

// field labels as emitted by `pnputil /enum-drivers`, normalized by
// normalizeLabel. Older pnputil builds emit lowercase labels with a space
// before the colon ("Published name :"), newer builds emit title case.
const (
	labelPublishedName = "publishedname"
	labelOriginalName  = "originalname"
	labelProviderName  = "providername"
	labelClassName     = "classname"
	labelDriverVersion = "driverversion"
)

// ParsePnputilEnum extracts driver records from `pnputil /enum-drivers`
// output. Records are delimited by the Published Name field, unknown
// fields are ignored.
func ParsePnputilEnum(text string) []DriverRecord {
	var records []DriverRecord
	var current *DriverRecord

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")

		key, value, ok := splitLabelledLine(line)
		if !ok {
			continue
		}

		if key == labelPublishedName {
			if current != nil && current.usable() {
				records = append(records, *current)
			}
			current = &DriverRecord{PublishedName: value}
			continue
		}

		if current == nil {
			continue
		}

		switch key {
		case labelOriginalName:
			current.OriginalName = value
		case labelProviderName:
			current.Provider = value
		case labelClassName:
			current.ClassName = value
		case labelDriverVersion:
			current.Date, current.Version = splitDriverVersionField(value)
		}
	}

	if current != nil && current.usable() {
		records = append(records, *current)
	}

	return records
}

// usable reports whether enough fields were collected to identify the
// package. Provider plus either original name or class is required.
func (d *DriverRecord) usable() bool {
	return d.Provider != "" && (d.OriginalName != "" || d.ClassName != "")
}

// splitLabelledLine splits "Some Label :  value" at the first colon and
// normalizes the label by lowercasing it and removing inner whitespace.
func splitLabelledLine(line string) (key string, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}

	label := strings.ToLower(line[:idx])
	label = strings.Join(strings.Fields(label), "")
	if label == "" {
		return "", "", false
	}

	return label, strings.TrimSpace(line[idx+1:]), true
}

// splitDriverVersionField splits the "Driver Version" field which holds
// "date version" separated by whitespace. A value without a date part is
// taken as the version alone.
func splitDriverVersionField(value string) (date string, version string) {
	fields := strings.Fields(value)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return "", fields[0]
	default:
		return fields[0], fields[len(fields)-1]
	}
}
