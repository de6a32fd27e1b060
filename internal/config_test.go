package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_PaymentsDisabledWithoutProvider(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/translearn_test")
	t.Setenv("PAYMENT_PROVIDER", "")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.False(t, cfg.PaymentsEnabled())
	assert.Empty(t, cfg.PaymentProvider)
}

func TestNewConfig_AcceptsKnownPaymentProviders(t *testing.T) {
	for _, provider := range []string{"flutterwave", "paystack"} {
		t.Run(provider, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/translearn_test")
			t.Setenv("ENV", "development")
			t.Setenv("PAYMENT_PROVIDER", provider)

			cfg, err := NewConfig()
			require.NoError(t, err)

			assert.True(t, cfg.PaymentsEnabled())
			assert.Equal(t, provider, cfg.PaymentProvider)
		})
	}
}

func TestNewConfig_RejectsUnknownPaymentProvider(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/translearn_test")
	t.Setenv("PAYMENT_PROVIDER", "stripe")

	_, err := NewConfig()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "PAYMENT_PROVIDER")
}

func TestNewConfig_ProviderSecretRequiredOutsideDevelopment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/translearn_test")
	t.Setenv("ENV", "production")
	t.Setenv("PAYMENT_PROVIDER", "paystack")
	t.Setenv("PAYSTACK_SECRET_KEY", "")

	_, err := NewConfig()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "PAYSTACK_SECRET_KEY")
}

func TestNewConfig_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := NewConfig()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
