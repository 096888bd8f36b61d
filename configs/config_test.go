package configs

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBytes_ExpandsEnvAndReadsCheckout(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "s3cret")

	require.NoError(t, LoadBytes([]byte(`
jwt:
  secret_key: ${TEST_JWT_SECRET}
checkout:
  fee_percent: "8"
  order_expiration_minutes: 15
  ticket_code_length: 16
`)))

	assert.Equal(t, "s3cret", GetJWTSecret())
	assert.True(t, decimal.NewFromInt(8).Equal(GetServiceFeePercent()))
	assert.Equal(t, 15, GetOrderExpirationMinutes())
	assert.Equal(t, 16, GetTicketCodeLength())
}

func TestGetters_DefaultsWhenMissing(t *testing.T) {
	require.NoError(t, LoadBytes([]byte(`server: {}`)))

	assert.Equal(t, "8080", GetServerPort())
	assert.Equal(t, 30, GetOrderExpirationMinutes())
	assert.Equal(t, 12, GetTicketCodeLength())
	assert.True(t, GetServiceFeePercent().IsZero())
	assert.Equal(t, []string{"http://localhost:5173"}, GetAllowedOrigins())
}

func TestGetServiceFeePercent_InvalidFallsBackToZero(t *testing.T) {
	require.NoError(t, LoadBytes([]byte(`
checkout:
  fee_percent: "five"
`)))

	assert.True(t, GetServiceFeePercent().IsZero())
}
