package backup

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodInf = `[Version]
Signature = "$WINDOWS NT$"
Class     = Net
Provider  = %Vendor%
DriverVer = 10/21/2022,3.1.2.0

[Strings]
Vendor = "Acme Corp"
`

const infWithoutVersionSection = `[Strings]
Vendor = "Broken Corp"
`

func writeDriverFolder(t *testing.T, root, folder, infName, content string) string {
	dir := filepath.Join(root, folder)
	require.NoError(t, os.MkdirAll(dir, 0755))

	path := filepath.Join(dir, infName)
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func TestScanFolder(t *testing.T) {
	root, err := ioutil.TempDir("", "drvault-scan")
	require.NoError(t, err)
	defer os.RemoveAll(root)

	writeDriverFolder(t, root, "acmenet.inf_amd64_456", "acmenet.inf", goodInf)
	writeDriverFolder(t, root, "broken.inf_amd64_789", "broken.inf", infWithoutVersionSection)

	result := ScanFolder(root)

	require.Len(t, result.Drivers, 1)
	require.Len(t, result.Errors, 1)

	d := result.Drivers[0]
	assert.Equal(t, "acmenet.inf", d.OriginalName)
	assert.Equal(t, "Acme Corp", d.Provider)
	assert.Equal(t, "Net", d.ClassName)
	assert.Equal(t, "3.1.2.0", d.Version)
	assert.True(t, filepath.IsAbs(d.FullInfPath))

	assert.Contains(t, result.Errors[0].Path, "broken.inf")
	assert.Contains(t, result.Errors[0].Message, "[Version]")
}

func TestScanFolderMalformedFilesAreIsolated(t *testing.T) {
	root, err := ioutil.TempDir("", "drvault-scan")
	require.NoError(t, err)
	defer os.RemoveAll(root)

	// 5 files, 2 malformed: expect exactly 3 records and 2 errors
	writeDriverFolder(t, root, "a", "a.inf", goodInf)
	writeDriverFolder(t, root, "b", "b.inf", infWithoutVersionSection)
	writeDriverFolder(t, root, "c", "c.inf", goodInf)
	writeDriverFolder(t, root, "d", "d.inf", "[Version]\nSignature = x\n")
	writeDriverFolder(t, root, "e", "e.inf", goodInf)

	result := ScanFolder(root)
	assert.Len(t, result.Drivers, 3)
	assert.Len(t, result.Errors, 2)
}

func TestScanFolderEmpty(t *testing.T) {
	root, err := ioutil.TempDir("", "drvault-scan")
	require.NoError(t, err)
	defer os.RemoveAll(root)

	// a stray non-INF file must not count
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "readme.txt"), []byte("x"), 0644))

	result := ScanFolder(root)
	assert.Empty(t, result.Drivers)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, NoInfFilesMessage, result.Errors[0].Message)
}

func TestScanFolderMissingRoot(t *testing.T) {
	result := ScanFolder(filepath.Join(os.TempDir(), "drvault-does-not-exist-4242"))
	assert.Empty(t, result.Drivers)
	require.Len(t, result.Errors, 1)
	assert.NotEqual(t, NoInfFilesMessage, result.Errors[0].Message)
}

func TestScanFolderAttachesSidecar(t *testing.T) {
	root, err := ioutil.TempDir("", "drvault-scan")
	require.NoError(t, err)
	defer os.RemoveAll(root)

	infPath := writeDriverFolder(t, root, "acmenet.inf_amd64_456", "acmenet.inf", goodInf)
	sc := &Sidecar{
		BackupDate:    "2022-11-01 12:00:00",
		BackupOS:      "Microsoft Windows 10 Pro",
		BackupOSBuild: "19045",
		INFFile:       "acmenet.inf",
	}
	require.NoError(t, WriteSidecar(filepath.Dir(infPath), sc))

	result := ScanFolder(root)
	require.Len(t, result.Drivers, 1)
	require.NotNil(t, result.Drivers[0].Backup)
	assert.Equal(t, "Microsoft Windows 10 Pro", result.Drivers[0].Backup.BackupOS)
	assert.Equal(t, "19045", result.Drivers[0].Backup.BackupOSBuild)
}

func TestRecordsReturnsPlainDriverRecords(t *testing.T) {
	root, err := ioutil.TempDir("", "drvault-scan")
	require.NoError(t, err)
	defer os.RemoveAll(root)

	writeDriverFolder(t, root, "a", "a.inf", goodInf)

	records := ScanFolder(root).Records()
	require.Len(t, records, 1)
	assert.Equal(t, "a.inf", records[0].OriginalName)
}
