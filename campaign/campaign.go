// Package campaign walks a campaign folder and parses every test scenario in it.
//
// A campaign folder holds a client/ directory with one sub-directory per test
// and, optionally, a server/ directory with the matching server-side logs.
package campaign

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/yaron8/lossreport-infra/records"
	"github.com/yaron8/lossreport-infra/xmllog"
)

const (
	ClientFolder = "client"
	ServerFolder = "server"
)

// Failure records a scenario that could not be parsed.
type Failure struct {
	Test string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Test, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Campaign is a parsed campaign folder.
type Campaign struct {
	Name      string
	Dir       string
	Scenarios []*records.Scenario
	Failures  []Failure
}

// Err joins all scenario failures, or returns nil.
func (c *Campaign) Err() error {
	errs := make([]error, 0, len(c.Failures))
	for _, f := range c.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// IsTestFolder reports whether dir holds both log files of a test.
func IsTestFolder(dir string) bool {
	for _, name := range []string{xmllog.DescriptionFile, xmllog.ResultsFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || info.IsDir() {
			return false
		}
	}
	return true
}

// Discover returns the campaign folders directly below root, sorted by name.
func Discover(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read results folder: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if info, err := os.Stat(filepath.Join(dir, ClientFolder)); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}

// Load parses all scenarios of the campaign in dir. Scenarios with malformed
// logs are skipped and reported in Failures; only an unreadable client folder
// is an error. Scenarios are sorted by datagram size, then cycle time.
func Load(dir string) (*Campaign, error) {
	clientDir := filepath.Join(dir, ClientFolder)
	entries, err := os.ReadDir(clientDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read client folder: %w", err)
	}

	c := &Campaign{
		Name: filepath.Base(filepath.Clean(dir)),
		Dir:  dir,
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		testClientDir := filepath.Join(clientDir, e.Name())
		if !IsTestFolder(testClientDir) {
			continue
		}
		sc, err := LoadScenario(testClientDir, filepath.Join(dir, ServerFolder, e.Name()))
		if err != nil {
			c.Failures = append(c.Failures, Failure{Test: e.Name(), Err: err})
			continue
		}
		sc.Name = e.Name()
		c.Scenarios = append(c.Scenarios, sc)
	}

	sort.SliceStable(c.Scenarios, func(i, j int) bool {
		a, b := c.Scenarios[i].Description.Connection, c.Scenarios[j].Description.Connection
		if a.DatagramSize != b.DatagramSize {
			return a.DatagramSize < b.DatagramSize
		}
		return a.CycleTime < b.CycleTime
	})
	return c, nil
}

// LoadScenario parses one test. serverDir may not exist, in which case the
// scenario has no server data.
func LoadScenario(clientDir, serverDir string) (*records.Scenario, error) {
	desc, err := xmllog.ParseDescriptionFile(clientDir)
	if err != nil {
		return nil, err
	}
	client, err := xmllog.ParseResultsFile(clientDir)
	if err != nil {
		return nil, err
	}

	sc := &records.Scenario{
		Name:        filepath.Base(clientDir),
		Description: desc,
		Client:      client.File,
		Samples:     client.Samples,
		HasSamples:  client.HasSamples,
	}

	if serverDir != "" && IsTestFolder(serverDir) {
		server, err := xmllog.ParseResultsFile(serverDir)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		sc.Server = &server.File
	}
	return sc, nil
}
