package config

import "testing"

func TestValidateSchemaAcceptsDefault(t *testing.T) {
	if err := validateSchema("1.0.0"); err != nil {
		t.Fatalf("expected default schema version to validate, got %v", err)
	}
}

func TestValidateSchemaRejectsIncompatible(t *testing.T) {
	if err := validateSchema("2.0.0"); err == nil {
		t.Fatal("expected schema version 2.0.0 to be rejected by the 1.x constraint")
	}
}

func TestValidateSchemaRejectsGarbage(t *testing.T) {
	if err := validateSchema("not-a-version"); err == nil {
		t.Fatal("expected malformed schema version to fail validation")
	}
}

func TestSetDefaultsPopulatesEverySection(t *testing.T) {
	c := &Config{}
	setDefaults(c)

	if c.SchemaVersion == "" {
		t.Fatal("expected a default schema version")
	}
	if c.Input.RateLimitPerSecond <= 0 {
		t.Fatal("expected a positive default rate limit")
	}
	if c.Monitoring.LogLevel == "" {
		t.Fatal("expected a default log level")
	}
}
