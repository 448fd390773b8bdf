package integration_tests

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/yaron8/lossreport-infra/bootstrap"
	"github.com/yaron8/lossreport-infra/config"
	"github.com/yaron8/lossreport-infra/pipeline"
	"github.com/yaron8/lossreport-infra/xmllog/xmltest"
)

const (
	maxRetries = 30
	retryDelay = 100 * time.Millisecond
)

// IntegrationTestSuite reports a fixture campaign into Redis and serves it.
type IntegrationTestSuite struct {
	suite.Suite
	redis     *miniredis.Miniredis
	bootstrap *bootstrap.Bootstrap
	server    *httptest.Server
	results   []*pipeline.Result
	workDir   string
	ctx       context.Context
	cancel    context.CancelFunc
}

// SetupSuite runs once before all tests in the suite
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	var err error
	s.workDir, err = os.MkdirTemp("", "lossreport-it")
	s.Require().NoError(err)

	s.T().Log("Starting Redis...")
	s.redis, err = miniredis.Run()
	s.Require().NoError(err, "Failed to start miniredis")

	campaignDir, err := xmltest.WriteCampaign(s.workDir+"/results", "cpu_stress", fixtureTests(), map[string]xmltest.Test{
		"t-80-10000": fixtureTests()[0],
	})
	s.Require().NoError(err)

	cfg := config.NewConfig()
	cfg.OutputFolder = s.workDir + "/output"
	cfg.Log.Dir = s.workDir + "/logs"
	cfg.Redis.Enabled = true
	cfg.Redis.Host = s.redis.Host()
	_, err = fmt.Sscan(s.redis.Port(), &cfg.Redis.Port)
	s.Require().NoError(err)
	s.Require().NoError(cfg.Validate())

	s.bootstrap, err = bootstrap.NewBootstrap(cfg, true)
	s.Require().NoError(err)

	p, err := s.bootstrap.Pipeline()
	s.Require().NoError(err)

	s.T().Log("Reporting fixture campaign...")
	s.results, err = p.RunAll(s.ctx, []string{campaignDir})
	s.Require().NoError(err)

	api, err := s.bootstrap.APIServer(s.ctx)
	s.Require().NoError(err)
	s.server = httptest.NewServer(api.Handler())

	s.T().Log("Waiting for API to be ready...")
	s.waitForService(s.server.URL + "/health")
}

// TearDownSuite runs once after all tests in the suite
func (s *IntegrationTestSuite) TearDownSuite() {
	s.cancel()
	if s.server != nil {
		s.server.Close()
	}
	if s.bootstrap != nil {
		_ = s.bootstrap.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
	os.RemoveAll(s.workDir)
}

// waitForService waits for a service to become available
func (s *IntegrationTestSuite) waitForService(url string) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	for i := 0; i < maxRetries; i++ {
		resp, err := client.Get(url)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(retryDelay)
	}

	s.Require().Fail(fmt.Sprintf("Service at %s did not become ready after %d attempts", url, maxRetries))
}

func fixtureTests() []xmltest.Test {
	return []xmltest.Test{
		{
			ID: "t-80-10000", DatagramSize: 80, CycleTime: 10000, Duration: 10,
			Total: 100000, Losses: 8, Elapsed: 10, MTU: 1500,
			QueryLosses: []int64{5, 3}, QueryTotals: []int64{40000, 80000},
		},
		{
			ID: "t-8900-10000", DatagramSize: 8900, CycleTime: 10000, Duration: 10,
			Total: 50000, Losses: 500, Elapsed: 10, MTU: 1500, TxDropped: 2,
		},
	}
}
