package tables

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaron8/lossreport-infra/records"
)

func overviewRows() []records.OverviewRow {
	return []records.OverviewRow{
		{
			Duration: 10, Method: "CUSTOM", TestID: "t-1", Client: "10.0.0.1", Server: "10.0.0.2", Port: 5001,
			CycleTime: 10000, DatagramSize: 80, QoS: true, Stress: "CPU", Intensity: 4, Location: "SERVER",
			Status: "SUCCESS", Losses: 50, LossRatio: 0.05, LossLocation: "Server [NO DATA]  Route (Switch)",
			Packets: 100000, PPSUDP: 10000, PPSIP: 10000, BandwidthNet: 6.4, BandwidthGross: 9.76,
			TimerMisses: 1, Remarks: "Server data missing.",
		},
		{Duration: 20, TestID: "t-2", DatagramSize: 8900, Status: "ERROR"},
	}
}

func TestWriteCampaignOverview_CSV(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteCampaignOverview(Options{}, dir, "camp", overviewRows())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "camp_campaign_overview.csv"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	header := strings.SplitN(string(raw), "\n", 2)[0]
	assert.Equal(t, strings.Join(records.GetOverviewHeader(), ","), header)

	var back []records.OverviewRow
	require.NoError(t, gocsv.UnmarshalBytes(raw, &back))
	assert.Equal(t, overviewRows(), back)

	_, err = os.Stat(filepath.Join(dir, "camp_campaign_overview.xlsx"))
	assert.True(t, os.IsNotExist(err), "xlsx must not be written when disabled")
}

func TestWriteCampaignOverview_Excel(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteCampaignOverview(Options{Excel: true}, dir, "camp", overviewRows())
	require.NoError(t, err)

	xlsx, err := excelize.OpenFile(filepath.Join(dir, "camp_campaign_overview.xlsx"))
	require.NoError(t, err)

	assert.Equal(t, "Duration (s)", xlsx.GetCellValue("Sheet1", "A1"))
	assert.Equal(t, "Remarks", xlsx.GetCellValue("Sheet1", "W1"))
	assert.Equal(t, "t-1", xlsx.GetCellValue("Sheet1", "C2"))
	assert.Equal(t, "10000", xlsx.GetCellValue("Sheet1", "R2"))
	assert.False(t, xlsx.GetColVisible("Sheet1", "D"))
	assert.True(t, xlsx.GetColVisible("Sheet1", "G"))
}

func TestWriteQueryOverview(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scenario", "t-1")
	repaired := []records.SampleReport{
		{Timestamp: 1, Total: 1000, Losses: 3, Difference: 3},
		{Timestamp: 2, Total: 2000, Losses: 3, Difference: 0},
		{Timestamp: 2.5, Total: 2500, Losses: 8, Difference: 5},
	}
	path, err := WriteQueryOverview(Options{Excel: true}, dir, repaired)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"Timestamp,Packets [total],Losses [Total],Losses [Difference]\n"+
			"1,1000,3,3\n"+
			"2,2000,3,0\n"+
			"2.5,2500,8,5\n",
		string(raw))

	xlsx, err := excelize.OpenFile(filepath.Join(dir, "query_overview.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "Losses [Difference]", xlsx.GetCellValue("Sheet1", "D1"))
	assert.True(t, xlsx.GetColVisible("Sheet1", "D"))
}

func TestSaveAsExcel_HeaderOnly(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteQueryOverview(Options{Excel: true}, dir, nil)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.FileExists(t, filepath.Join(dir, "query_overview.xlsx"))
}

func TestCellName(t *testing.T) {
	assert.Equal(t, "A1", CellName(0, 1))
	assert.Equal(t, "W24", CellName(22, 24))
	assert.Equal(t, "Z2", CellName(25, 2))
	assert.Equal(t, "AA3", CellName(26, 3))
	assert.Equal(t, "AZ1", CellName(51, 1))
}
