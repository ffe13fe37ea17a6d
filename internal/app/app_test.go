package app

import (
	"context"
	"fmt"
	"testing"

	"github.com/playvault/playvault/internal/config"
	"github.com/playvault/playvault/internal/events"
	"github.com/stretchr/testify/suite"
)

type ApplicationSuite struct {
	suite.Suite
	app *Application
}

func TestApplication(t *testing.T) {
	suite.Run(t, &ApplicationSuite{})
}

func (s *ApplicationSuite) SetupTest() {
	s.app = New()
}

func (s *ApplicationSuite) TestWait() {
	ctx, cancel := context.WithCancel(context.Background())

	s.app.errCh = make(chan error)
	go func() {
		s.app.errCh <- fmt.Errorf("mock error")
	}()

	err := s.app.Wait(ctx, cancel)

	s.Require().Error(err)
	s.Contains(err.Error(), "mock error")
}

func (s *ApplicationSuite) TestGetRedis() {
	s.Nil(getRedis(&config.Config{}))
	s.NotNil(getRedis(&config.Config{RedisAddr: "localhost:6379"}))
}

func (s *ApplicationSuite) TestGetPublisher() {
	publisher, err := getPublisher(&config.Config{})
	s.NoError(err)
	s.IsType(events.NopPublisher{}, publisher)
}
