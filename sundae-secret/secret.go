// Package sundaesecret loads configuration secrets from AWS Secrets Manager
// into Go structs.
package sundaesecret

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/savaki/secrets"
)

// LoadSecret decodes the JSON secret secretName into data, which must be a
// pointer.
func LoadSecret(s *session.Session, secretName string, data interface{}) error {
	api := secrets.WithSecretsManager(secretsmanager.New(s))
	manager, err := secrets.NewManager(api)
	if err != nil {
		return fmt.Errorf("failed to initialize secrets: %w", err)
	}

	if err := manager.Decode(secretName, data); err != nil {
		return fmt.Errorf("failed to load secret %v: %w", secretName, err)
	}
	return nil
}

// Load is LoadSecret for a value type.
func Load[T any](s *session.Session, secretName string) (T, error) {
	var v T
	if err := LoadSecret(s, secretName, &v); err != nil {
		return v, err
	}
	return v, nil
}
