package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/sasinspect/pkg/api"
	"github.com/ssargent/sasinspect/pkg/ledger"
	"github.com/ssargent/sasinspect/pkg/notify"
	"github.com/ssargent/sasinspect/pkg/notify/rabbitmq"
)

type stubStarter struct{ called bool }

func (s *stubStarter) StartServer(context.Context, api.Inspector, api.ServerConfig) error {
	s.called = true
	return nil
}

type stubServerFactory struct{ starter *stubStarter }

func (f *stubServerFactory) CreateServerStarter() api.ServerStarter { return f.starter }

type stubPublisherFactory struct{ rec *notify.Recorder }

func (f *stubPublisherFactory) NewPublisher(string, string) (notify.Publisher, error) {
	return f.rec, nil
}

func TestNewContainer_Defaults(t *testing.T) {
	c := NewContainer()

	assert.IsType(t, &api.DefaultServerFactory{}, c.GetServerFactory())
	assert.IsType(t, &ledger.DefaultFactory{}, c.GetLedgerFactory())
	assert.IsType(t, rabbitmq.Factory{}, c.GetPublisherFactory())

	l, err := c.GetLedgerFactory().NewLedger(ledger.Config{Endpoint: "http://127.0.0.1:8899"})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8899", l.(*ledger.Client).Endpoint())
}

func TestContainer_Overrides(t *testing.T) {
	c := NewContainer()

	starter := &stubStarter{}
	c.SetServerFactory(&stubServerFactory{starter: starter})
	require.NoError(t, c.GetServerFactory().CreateServerStarter().StartServer(context.Background(), nil, api.ServerConfig{}))
	assert.True(t, starter.called)

	rec := &notify.Recorder{}
	c.SetPublisherFactory(&stubPublisherFactory{rec: rec})
	p, err := c.GetPublisherFactory().NewPublisher("amqp://ignored", "q")
	require.NoError(t, err)
	require.NoError(t, p.Publish([]byte("x"), notify.ContentTypeJSON))
	assert.Len(t, rec.Messages(), 1)

	c.SetLedgerFactory(nil)
	assert.Nil(t, c.GetLedgerFactory())
}
