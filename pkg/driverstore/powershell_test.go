package driverstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindowsDriverJSONArray(t *testing.T) {
	raw := `[{"Driver":"oem3.inf","OriginalFileName":"C:\\Windows\\System32\\DriverStore\\FileRepository\\prnms003.inf_amd64_123\\prnms003.inf","ProviderName":"Microsoft","ClassName":"Printer","Date":"\/Date(1150848000000)\/","Version":"10.0.19041.1"},
{"Driver":"oem5.inf","OriginalFileName":"C:\\Windows\\System32\\DriverStore\\FileRepository\\acmenet.inf_amd64_456\\acmenet.inf","ProviderName":"Acme Corp","ClassName":"Net","Date":"\/Date(1666310400000)\/","Version":"3.1.2.0"}]`

	records, err := ParseWindowsDriverJSON(raw)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "oem3.inf", records[0].PublishedName)
	assert.Equal(t, "prnms003.inf", records[0].OriginalName)
	assert.Equal(t, "Microsoft", records[0].Provider)
	assert.Equal(t, "Printer", records[0].ClassName)
	assert.Equal(t, "10.0.19041.1", records[0].Version)
	assert.Equal(t, "06/21/2006", records[0].Date)
	assert.Equal(t, `C:\Windows\System32\DriverStore\FileRepository\prnms003.inf_amd64_123\prnms003.inf`, records[0].FullInfPath)

	assert.Equal(t, "acmenet.inf", records[1].OriginalName)
	assert.Equal(t, "3.1.2.0", records[1].Version)
}

func TestParseWindowsDriverJSONCollapsedObject(t *testing.T) {
	// PowerShell collapses single-element arrays into a bare object
	raw := `{"Driver":"oem7.inf","OriginalFileName":"C:\\Store\\ctsound.inf","ProviderName":"Contoso Ltd","ClassName":"MEDIA","Date":null,"Version":"6.0.1.8186"}`

	records, err := ParseWindowsDriverJSON(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "oem7.inf", records[0].PublishedName)
	assert.Equal(t, "ctsound.inf", records[0].OriginalName)
	assert.Equal(t, "Contoso Ltd", records[0].Provider)
	assert.Equal(t, "6.0.1.8186", records[0].Version)
}

func TestParseWindowsDriverJSONRowWithoutPathSkipped(t *testing.T) {
	raw := `[{"Driver":"oem1.inf","OriginalFileName":null,"ProviderName":"X","ClassName":"Y","Version":"1.0"},
{"Driver":"oem2.inf","OriginalFileName":"C:\\Store\\real.inf","ProviderName":"Real","ClassName":"Net","Version":"2.0"}]`

	records, err := ParseWindowsDriverJSON(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "real.inf", records[0].OriginalName)
}

func TestParseWindowsDriverJSONInvalid(t *testing.T) {
	_, err := ParseWindowsDriverJSON("Get-WindowsDriver : The term 'Get-WindowsDriver' is not recognized")
	assert.Error(t, err)
}

func TestParseWindowsDriverJSONEmpty(t *testing.T) {
	records, err := ParseWindowsDriverJSON("")
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestNormalizeJSONDate(t *testing.T) {
	assert.Equal(t, "06/21/2006", normalizeJSONDate("/Date(1150848000000)/"))
	assert.Equal(t, "10/21/2022", normalizeJSONDate("10/21/2022"))
	assert.Equal(t, "", normalizeJSONDate(""))
}

func TestCopyPackageCommand(t *testing.T) {
	s := NewStore(nil)

	rec := DriverRecord{
		OriginalName: "acmenet.inf",
		Provider:     "Acme Corp",
		FullInfPath:  `C:\Windows\System32\DriverStore\FileRepository\acmenet.inf_amd64_456\acmenet.inf`,
	}

	cmd, err := s.CopyPackageCommand(rec, `D:\backup`)
	require.NoError(t, err)
	assert.Equal(t, "powershell", cmd.Path)
	assert.Contains(t, cmd.Args[len(cmd.Args)-1], `FileRepository\acmenet.inf_amd64_456'`)
	assert.Contains(t, cmd.Args[len(cmd.Args)-1], `'D:\backup'`)

	_, err = s.CopyPackageCommand(DriverRecord{OriginalName: "x.inf"}, "dest")
	assert.Error(t, err)
}
