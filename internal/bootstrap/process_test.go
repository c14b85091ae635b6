package bootstrap

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
)

func TestCloseRunsInReverseAndCollectsErrors(t *testing.T) {
	var logs bytes.Buffer
	p := &Process{Logger: logger.New(logger.Options{ServiceName: "test", Format: logger.FormatJSON, Output: &logs})}

	var order []string
	record := func(name string, err error) func() error {
		return func() error {
			order = append(order, name)
			return err
		}
	}
	p.OnClose("database", record("database", nil))
	p.OnClose("redis", record("redis", errors.New("conn reset")))
	p.OnClose("pubsub", record("pubsub", errors.New("grpc closing")))

	err := p.Close()
	require.Error(t, err)
	assert.Equal(t, []string{"pubsub", "redis", "database"}, order)
	assert.ErrorContains(t, err, "close redis: conn reset")
	assert.ErrorContains(t, err, "close pubsub: grpc closing")
	assert.Contains(t, logs.String(), "error closing redis")

	order = nil
	require.NoError(t, p.Close(), "second close is a no-op")
	assert.Empty(t, order)
}
