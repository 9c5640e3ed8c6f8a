package main

import (
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/require"
)

func TestRetryCount(t *testing.T) {
	require.Equal(t, 0, retryCount(amqp.Delivery{}))
	require.Equal(t, 2, retryCount(amqp.Delivery{Headers: amqp.Table{"x-retry-count": int32(2)}}))
	require.Equal(t, 3, retryCount(amqp.Delivery{Headers: amqp.Table{"x-retry-count": int64(3)}}))
	require.Equal(t, 0, retryCount(amqp.Delivery{Headers: amqp.Table{"x-retry-count": "bogus"}}))
}
