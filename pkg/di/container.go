// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/sasinspect/pkg/api" //nolint:depguard
	"github.com/ssargent/sasinspect/pkg/ledger"
	"github.com/ssargent/sasinspect/pkg/notify"
	"github.com/ssargent/sasinspect/pkg/notify/rabbitmq"
)

// Container holds all the dependencies for the application
type Container struct {
	serverFactory    api.ServerFactory
	ledgerFactory    ledger.Factory
	publisherFactory notify.Factory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		serverFactory:    api.NewServerFactory(),
		ledgerFactory:    &ledger.DefaultFactory{},
		publisherFactory: rabbitmq.Factory{},
	}
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// GetLedgerFactory returns the ledger client factory
func (c *Container) GetLedgerFactory() ledger.Factory {
	return c.ledgerFactory
}

// GetPublisherFactory returns the report publisher factory
func (c *Container) GetPublisherFactory() notify.Factory {
	return c.publisherFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// SetLedgerFactory allows overriding the ledger factory (for testing)
func (c *Container) SetLedgerFactory(factory ledger.Factory) {
	c.ledgerFactory = factory
}

// SetPublisherFactory allows overriding the publisher factory (for testing)
func (c *Container) SetPublisherFactory(factory notify.Factory) {
	c.publisherFactory = factory
}
