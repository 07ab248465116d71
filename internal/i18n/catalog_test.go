package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"en.yaml": {Data: []byte("login:\n  invalid_credentials: Invalid email or password.\ngeneral:\n  internal_error: Oops\n")},
		"es.yaml": {Data: []byte("login:\n  invalid_credentials: Correo o contraseña incorrectos.\n")},
		"fr.yaml": {Data: []byte("")},
	}
}

func TestLoadCatalog_SkipsEmptyFiles(t *testing.T) {
	c, err := LoadCatalog(testFS(), "en")
	require.NoError(t, err)

	assert.Equal(t, []string{"en", "es"}, c.Languages())
}

func TestLoadCatalog_MissingDefault(t *testing.T) {
	_, err := LoadCatalog(testFS(), "de")
	assert.Error(t, err)
}

func TestLoadCatalog_InvalidYAML(t *testing.T) {
	fsys := fstest.MapFS{"en.yaml": {Data: []byte("login: [unclosed")}}
	_, err := LoadCatalog(fsys, "en")
	assert.Error(t, err)
}

func TestCatalog_Resolve(t *testing.T) {
	c, err := LoadCatalog(testFS(), "en")
	require.NoError(t, err)

	tests := []struct {
		name     string
		locale   string
		expected string
	}{
		{"empty header", "", "en"},
		{"bare tag", "es", "es"},
		{"regional variant", "es-MX", "es"},
		{"weighted list prefers spanish", "es-ES,es;q=0.9,en;q=0.8", "es"},
		{"weighted list prefers english", "en-GB,es;q=0.5", "en"},
		{"unknown language", "de-DE", "en"},
		{"empty catalog falls back", "fr", "en"},
		{"garbage", ";;;", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Resolve(tt.locale).Lang())
		})
	}
}

func TestTranslations_Get(t *testing.T) {
	c, err := LoadCatalog(testFS(), "en")
	require.NoError(t, err)

	en := c.Resolve("en")
	assert.Equal(t, "Invalid email or password.", en.Get("login.invalid_credentials"))
	assert.Equal(t, "login.unknown_key", en.Get("login.unknown_key"))
	assert.Equal(t, "login", en.Get("login"), "subtree is not a message")
	assert.Equal(t, "login.invalid_credentials.deeper", en.Get("login.invalid_credentials.deeper"))

	es := c.Resolve("es")
	assert.Equal(t, "Correo o contraseña incorrectos.", es.Get("login.invalid_credentials"))
	assert.Equal(t, "general.internal_error", es.Get("general.internal_error"), "no cross-language fallback per key")
}

func TestNewCatalog_EmbeddedLocalesAgree(t *testing.T) {
	c, err := NewCatalog("en")
	require.NoError(t, err)

	en := c.Resolve("en")
	es := c.Resolve("es")
	require.Equal(t, "es", es.Lang())

	keys := []string{
		"general.too_many_attempts",
		"general.user_not_found",
		"general.invalid_code",
		"general.internal_error",
		"register.register_success",
		"register.registered_email",
		"confirm_email.confirmation_success",
		"login.login_success",
		"login.invalid_credentials",
		"login.unconfirmed_email",
		"forget_password.reset_code_sent",
		"reset_password.reset_success",
		"reset_password.code_expired",
		"password.too_short",
		"password.missing_case",
		"password.missing_number",
		"password.missing_special",
		"password.common_password",
	}

	for _, key := range keys {
		assert.NotEqual(t, key, en.Get(key), "en missing %s", key)
		assert.NotEqual(t, key, es.Get(key), "es missing %s", key)
	}
}
